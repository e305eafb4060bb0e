package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-gin-auth-profile/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")

	// 具体失败原因（仅用于日志/指标），对外统一为 unauthorized
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenSubject   = fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	ErrTokenClaims    = fmt.Errorf("%w: bad claims", ErrInvalidToken)
)

// TokenService 签发/校验 HS256 访问令牌与刷新令牌。
// 令牌无状态：有效性只取决于签名、过期时间和 subject。
type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now 可注入时钟，默认 time.Now
	Now func() time.Time
}

func NewTokenService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token service: empty secret")
	}
	if accessTTL <= 0 || refreshTTL <= accessTTL {
		return nil, fmt.Errorf("token service: refresh ttl (%s) must exceed access ttl (%s)", refreshTTL, accessTTL)
	}
	return &TokenService{
		Secret:     secret,
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
	}, nil
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) IssueAccess(u *domain.User) (string, error) {
	return s.issue(u, s.AccessTTL)
}

// IssueRefresh 与访问令牌结构一致，仅有效期更长
func (s *TokenService) IssueRefresh(u *domain.User) (string, error) {
	return s.issue(u, s.RefreshTTL)
}

func (s *TokenService) issue(u *domain.User, ttl time.Duration) (string, error) {
	if u == nil || u.Email == "" {
		return "", errors.New("issue token: user without email")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.Email,
		Issuer:    s.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Validate 校验签名、过期（now == exp 视为过期）与签发方；
// expectedSubject 非空时还要求 subject 一致。返回令牌中的 subject。
func (s *TokenService) Validate(tokenStr, expectedSubject string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	if expectedSubject != "" {
		opts = append(opts, jwt.WithSubject(expectedSubject))
	}

	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, opts...)
	if err != nil {
		return "", classify(err)
	}
	if !t.Valid {
		return "", ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrTokenSubject
	}
	return claims.Subject, nil
}

// Subject 只解析 claims，不校验签名与过期；调用方必须随后调用 Validate
func (s *TokenService) Subject(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return "", ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrTokenSubject
	}
	return claims.Subject, nil
}

// ExpiresInSeconds 访问令牌有效期（秒），返回给客户端
func (s *TokenService) ExpiresInSeconds() int64 {
	return int64(s.AccessTTL / time.Second)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenInvalidSubject):
		return ErrTokenSubject
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenClaims
	}
}

// Reason 失败原因标签（metrics label）
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenSubject):
		return "subject"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenClaims):
		return "claims"
	default:
		return "other"
	}
}
