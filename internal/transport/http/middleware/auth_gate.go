package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-profile/internal/core/auth"
	"go-gin-auth-profile/internal/domain"
	resp "go-gin-auth-profile/internal/transport/http/response"
)

// KeyUser gin 上下文中已认证用户的 key
const KeyUser = "auth.user"

const bearerPrefix = "Bearer "

type TokenValidator interface {
	Validate(token, expectedSubject string) (string, error)
}

type UserResolver interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Gate 受保护路由的鉴权：取令牌 -> 校验 -> 解析用户 -> 角色判定 -> 放行
type Gate struct {
	tokens TokenValidator
	users  UserResolver
	log    *zap.Logger
}

func NewGate(tokens TokenValidator, users UserResolver, l *zap.Logger) *Gate {
	if l == nil {
		l = zap.NewNop()
	}
	return &Gate{tokens: tokens, users: users, log: l}
}

// Authenticate 根据 Authorization 头解析出当前用户
func (g *Gate) Authenticate(ctx context.Context, header string) (*domain.User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		tokenRejections.WithLabelValues("missing").Inc()
		return nil, domain.ErrUnauthenticated
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		tokenRejections.WithLabelValues("missing").Inc()
		return nil, domain.ErrUnauthenticated
	}

	subject, err := g.tokens.Validate(raw, "")
	if err != nil {
		reason := auth.Reason(err)
		tokenRejections.WithLabelValues(reason).Inc()
		g.log.Debug("token rejected", zap.String("reason", reason))
		return nil, domain.ErrUnauthenticated
	}

	u, err := g.users.FindByEmail(ctx, subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		tokenRejections.WithLabelValues("unknown_subject").Inc()
		g.log.Debug("token subject not resolvable")
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

// Require 仅允许 roles 中的角色；不传表示任意已登录用户
func (g *Gate) Require(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := g.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				resp.Abort(c, resp.CodeUnauthorized, "unauthenticated")
				return
			}
			g.log.Error("resolve user failed", zap.Error(err))
			resp.Abort(c, resp.CodeServerError, "internal error")
			return
		}
		if !u.HasRole(roles...) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Set(KeyUser, u)
		c.Request = c.Request.WithContext(domain.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

// CurrentUser 取网关放行时写入的用户
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(KeyUser)
	if !ok {
		return domain.UserFromContext(c.Request.Context())
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}
