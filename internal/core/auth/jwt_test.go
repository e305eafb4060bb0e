package auth

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-auth-profile/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time           { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	s, err := NewTokenService([]byte("test-secret-0123456789abcdef0123"), "auth-test", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s.Now = clk.Now
	return s, clk
}

var alice = &domain.User{ID: "u1", Email: "a@x.com", Role: domain.RoleUser}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService(nil, "i", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService([]byte("k"), "i", time.Hour, time.Minute)
	assert.Error(t, err, "refresh ttl must exceed access ttl")

	s, err := NewTokenService([]byte("k"), "i", 15*time.Minute, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 900, s.ExpiresInSeconds())
}

func TestAccessTokenLifetime(t *testing.T) {
	s, clk := newTestService(t)

	tok, err := s.IssueAccess(alice)
	require.NoError(t, err)

	sub, err := s.Validate(tok, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, sub)

	clk.Advance(s.AccessTTL - time.Second)
	_, err = s.Validate(tok, alice.Email)
	require.NoError(t, err)

	// now == exp 视为过期
	clk.Advance(time.Second)
	_, err = s.Validate(tok, alice.Email)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "expired", Reason(err))
}

func TestRefreshTokenOutlivesAccessToken(t *testing.T) {
	s, clk := newTestService(t)

	access, err := s.IssueAccess(alice)
	require.NoError(t, err)
	refresh, err := s.IssueRefresh(alice)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = s.Validate(access, alice.Email)
	assert.ErrorIs(t, err, ErrTokenExpired)
	sub, err := s.Validate(refresh, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, sub)

	clk.Advance(s.RefreshTTL)
	_, err = s.Validate(refresh, alice.Email)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	s, _ := newTestService(t)
	tok, err := s.IssueAccess(alice)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.Validate(tampered, alice.Email)
	assert.ErrorIs(t, err, ErrTokenSignature)
	assert.Equal(t, "signature", Reason(err))
}

func TestValidateRejectsTamperedClaims(t *testing.T) {
	s, _ := newTestService(t)
	tok, err := s.IssueAccess(alice)
	require.NoError(t, err)

	forged, err := s.IssueAccess(&domain.User{Email: "mallory@x.com"})
	require.NoError(t, err)

	// 用别人的 payload 拼上原签名
	p1 := strings.Split(tok, ".")
	p2 := strings.Split(forged, ".")
	spliced := p1[0] + "." + p2[1] + "." + p1[2]

	_, err = s.Validate(spliced, "")
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	s, clk := newTestService(t)
	other, err := NewTokenService([]byte("another-secret-entirely-different"), s.Issuer, s.AccessTTL, s.RefreshTTL)
	require.NoError(t, err)
	other.Now = clk.Now

	tok, err := other.IssueAccess(alice)
	require.NoError(t, err)
	_, err = s.Validate(tok, "")
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	s, clk := newTestService(t)
	claims := jwt.RegisteredClaims{
		Subject:   alice.Email,
		Issuer:    s.Issuer,
		IssuedAt:  jwt.NewNumericDate(clk.Now()),
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.Secret)
	require.NoError(t, err)

	_, err = s.Validate(tok, "")
	assert.ErrorIs(t, err, ErrTokenSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Validate(none, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateMalformedAndSubject(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Validate("not-a-token", "")
	assert.ErrorIs(t, err, ErrTokenMalformed)
	_, err = s.Validate("", "")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	tok, err := s.IssueAccess(alice)
	require.NoError(t, err)
	_, err = s.Validate(tok, "bob@x.com")
	assert.ErrorIs(t, err, ErrTokenSubject)

	sub, err := s.Validate(tok, "")
	require.NoError(t, err)
	assert.Equal(t, alice.Email, sub)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	s, clk := newTestService(t)
	other, err := NewTokenService(s.Secret, "someone-else", s.AccessTTL, s.RefreshTTL)
	require.NoError(t, err)
	other.Now = clk.Now

	tok, err := other.IssueAccess(alice)
	require.NoError(t, err)
	_, err = s.Validate(tok, "")
	assert.ErrorIs(t, err, ErrTokenClaims)
}

func TestSubjectIsRelaxed(t *testing.T) {
	s, clk := newTestService(t)
	tok, err := s.IssueRefresh(alice)
	require.NoError(t, err)

	clk.Advance(s.RefreshTTL + time.Hour)
	sub, err := s.Subject(tok)
	require.NoError(t, err, "subject extraction ignores expiry")
	assert.Equal(t, alice.Email, sub)

	_, err = s.Validate(tok, sub)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = s.Subject("garbage")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestIssueRequiresEmail(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.IssueAccess(&domain.User{ID: "x"})
	assert.Error(t, err)
	_, err = s.IssueRefresh(nil)
	assert.Error(t, err)
}

func TestConcurrentIssueAndValidate(t *testing.T) {
	s, _ := newTestService(t)
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := s.IssueAccess(alice)
			if err == nil {
				_, err = s.Validate(tok, alice.Email)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
