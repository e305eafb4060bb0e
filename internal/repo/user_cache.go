package repo

import (
	"context"
	"strings"
	"time"

	"go-gin-auth-profile/internal/core/cache"
	"go-gin-auth-profile/internal/domain"
)

// UserLookup 鉴权网关解析 subject 用
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CachedUserLookup Redis 读穿缓存。缓存的 JSON 不含密码哈希，
// 只能给鉴权网关用，登录校验必须直接查库。
type CachedUserLookup struct {
	c    *cache.Cache
	next UserLookup
	ttl  time.Duration
}

func NewCachedUserLookup(c *cache.Cache, next UserLookup, ttl time.Duration) *CachedUserLookup {
	return &CachedUserLookup{c: c, next: next, ttl: ttl}
}

func userKey(email string) string { return "user:email:" + strings.ToLower(email) }

func (l *CachedUserLookup) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return cache.GetOrLoadJSON(ctx, l.c, userKey(email), l.ttl, func(ctx context.Context) (*domain.User, error) {
		return l.next.FindByEmail(ctx, email)
	})
}

// Invalidate 写操作后调用，保证同一会话读到自己的写
func (l *CachedUserLookup) Invalidate(ctx context.Context, email string) error {
	return l.c.Delete(ctx, userKey(email))
}
