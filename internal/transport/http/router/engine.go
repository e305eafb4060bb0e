package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-auth-profile/internal/core/config"
	"go-gin-auth-profile/internal/core/server"
	"go-gin-auth-profile/internal/service"
	"go-gin-auth-profile/internal/transport/http/ez"
	mdw "go-gin-auth-profile/internal/transport/http/middleware"
	resp "go-gin-auth-profile/internal/transport/http/response"
)

// Deps 两个 engine 共用的依赖
type Deps struct {
	Log    *zap.Logger
	Mode   string
	Gate   *mdw.Gate
	Auth   *service.AuthService
	Users  *service.UserService
	Limits config.Limits
	// Ready 健康检查时探测下游（DB/Redis），可为空
	Ready func(ctx context.Context) error
}

func newEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := server.NewRouter(d.Log, server.Options{Mode: d.Mode})

	// 中间件：先记录再兜底，panic 也能进指标和访问日志
	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		mdw.Recovery(d.Log),
	)
	if d.Limits.RPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(d.Limits.RPS), max(d.Limits.Burst, 1)))
	}
	if d.Limits.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(d.Limits.MaxConcurrent))
	}
	if d.Limits.MaxBodyMB > 0 {
		r.Use(mdw.MaxBodyBytes(int64(d.Limits.MaxBodyMB) << 20))
	}
	if d.Limits.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(d.Limits.RequestTimeout()))
	}

	r.GET("/health", health(d.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func health(ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				resp.Abort(c, resp.CodeUnavailable, "not ready")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	}
}

// authLimiter 认证接口的每 IP 限速；未配置时不限
func authLimiter(l config.Limits) []gin.HandlerFunc {
	if l.AuthRPS <= 0 {
		return nil
	}
	return []gin.HandlerFunc{mdw.RateLimitPerIP(rate.Limit(l.AuthRPS), max(l.AuthBurst, 1))}
}

// guard 避免 nil *Gate 变成非 nil 接口
func (d Deps) guard() ez.Guard {
	if d.Gate == nil {
		return nil
	}
	return d.Gate
}
