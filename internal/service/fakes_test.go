package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-gin-auth-profile/internal/core/auth"
	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/pkg/utils"
)

// memUsers 内存版凭据存储
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	deleted map[string]bool
	creates int
	updates int
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*domain.User{}, deleted: map[string]bool{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ErrDuplicateIdentity
	}
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	m.byEmail[u.Email] = &cp
	m.creates++
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e, u := range m.byEmail {
		if u.ID == id && !m.deleted[e] {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok || m.deleted[email] {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memUsers) List(_ context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for e, u := range m.byEmail {
		if m.deleted[e] && !q.WithDeleted {
			continue
		}
		if q.Q != "" && !strings.Contains(e, q.Q) && !strings.Contains(u.FullName, q.Q) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := int64(len(out))
	if q.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; !ok || m.deleted[u.Email] {
		return domain.ErrNotFound
	}
	cp := *u
	m.byEmail[u.Email] = &cp
	m.updates++
	return nil
}

func (m *memUsers) SoftDelete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e, u := range m.byEmail {
		if u.ID == id && !m.deleted[e] {
			m.deleted[e] = true
			return true, nil
		}
	}
	return false, nil
}

type memRoles struct{ roles map[domain.Role]bool }

func (r *memRoles) FindByName(_ context.Context, name domain.Role) (*domain.RoleDef, error) {
	if !r.roles[name] {
		return nil, nil
	}
	return &domain.RoleDef{Name: name, Description: domain.DefaultRoles[name]}, nil
}

func (r *memRoles) EnsureDefaults(context.Context) error {
	for name := range domain.DefaultRoles {
		r.roles[name] = true
	}
	return nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type authFixture struct {
	svc    *AuthService
	users  *memUsers
	roles  *memRoles
	tokens *auth.TokenService
	clock  *testClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMemUsers()
	roles := &memRoles{roles: map[domain.Role]bool{}}
	require.NoError(t, roles.EnsureDefaults(context.Background()))

	tokens, err := auth.NewTokenService([]byte("unit-test-secret-0123456789abcdef"), "test", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	clk := &testClock{t: time.Unix(1_700_000_000, 0)}
	tokens.Now = clk.Now

	svc, err := NewAuthService(users, roles, utils.NewBcrypt(bcrypt.MinCost), tokens, nil)
	require.NoError(t, err)
	return &authFixture{svc: svc, users: users, roles: roles, tokens: tokens, clock: clk}
}
