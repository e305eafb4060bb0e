package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-gin-auth-profile/internal/core/auth"
	"go-gin-auth-profile/internal/domain"
)

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Compare(pw, hashed string) bool
}

type TokenIssuer interface {
	IssueAccess(u *domain.User) (string, error)
	IssueRefresh(u *domain.User) (string, error)
	Validate(token, expectedSubject string) (string, error)
	Subject(token string) (string, error)
	ExpiresInSeconds() int64
}

var _ TokenIssuer = (*auth.TokenService)(nil)

type Registration struct {
	Email       string
	Password    string
	FullName    string
	Address     string
	PhoneNumber string
}

type Credentials struct {
	Email    string
	Password string
}

type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthService struct {
	users  domain.UserRepository
	roles  domain.RoleRepository
	hasher PasswordHasher
	tokens TokenIssuer
	log    *zap.Logger
	// 未知邮箱时也做一次比较，两条失败路径耗时一致
	dummyHash string
}

func NewAuthService(users domain.UserRepository, roles domain.RoleRepository, hasher PasswordHasher, tokens TokenIssuer, l *zap.Logger) (*AuthService, error) {
	if l == nil {
		l = zap.NewNop()
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return &AuthService{users: users, roles: roles, hasher: hasher, tokens: tokens, log: l, dummyHash: dummy}, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Signup 注册普通用户（角色 USER）
func (s *AuthService) Signup(ctx context.Context, in Registration) (*domain.User, error) {
	return s.register(ctx, in, domain.RoleUser)
}

// CreateAdministrator ADMIN 角色未初始化时返回 ErrRoleNotProvisioned（配置问题）
func (s *AuthService) CreateAdministrator(ctx context.Context, in Registration) (*domain.User, error) {
	return s.registerProvisioned(ctx, in, domain.RoleAdmin)
}

// CreateSuperAdmin 仅供启动时引导首个超级管理员
func (s *AuthService) CreateSuperAdmin(ctx context.Context, in Registration) (*domain.User, error) {
	return s.registerProvisioned(ctx, in, domain.RoleSuperAdmin)
}

func (s *AuthService) registerProvisioned(ctx context.Context, in Registration, name domain.Role) (*domain.User, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if role == nil {
		s.log.Warn("create administrator skipped: role missing", zap.String("role", string(name)))
		return nil, domain.ErrRoleNotProvisioned
	}
	return s.register(ctx, in, role.Name)
}

func (s *AuthService) register(ctx context.Context, in Registration, role domain.Role) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrMalformedRequest
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateIdentity
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     strings.TrimSpace(in.FullName),
		Address:      strings.TrimSpace(in.Address),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
	}
	// 并发注册由唯一索引兜底，仓储层映射为 ErrDuplicateIdentity
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("uid", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate 邮箱不存在与密码错误返回同一个错误
func (s *AuthService) Authenticate(ctx context.Context, in Credentials) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.hasher.Compare(in.Password, s.dummyHash)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Compare(in.Password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, in Credentials) (*TokenPair, error) {
	u, err := s.Authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	s.log.Debug("login", zap.String("uid", u.ID))
	return &TokenPair{Token: access, RefreshToken: refresh, ExpiresIn: s.tokens.ExpiresInSeconds()}, nil
}

// Refresh 用刷新令牌换新的访问令牌。刷新令牌不轮换、不记录，
// 泄露后在自然过期前始终可用。
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, domain.ErrMalformedRequest
	}
	email, err := s.tokens.Subject(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrForbidden, err)
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := s.tokens.Validate(refreshToken, u.Email); err != nil {
		s.log.Debug("refresh token rejected", zap.String("reason", auth.Reason(err)))
		return nil, fmt.Errorf("%w: %v", domain.ErrForbidden, err)
	}
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &TokenPair{Token: access, RefreshToken: refreshToken, ExpiresIn: s.tokens.ExpiresInSeconds()}, nil
}
