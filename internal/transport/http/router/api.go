package router

import (
	"github.com/gin-gonic/gin"

	"go-gin-auth-profile/internal/transport/http/handler"
)

// NewAPIEngine 用户端：/api/v1
func NewAPIEngine(d Deps) *gin.Engine {
	r := newEngine(d)

	reg := &Registry{}
	reg.Register(handler.NewAuthHandler(d.Auth), authLimiter(d.Limits)...)
	reg.Register(handler.NewUserHandler(d.Users))
	reg.MountAllAPI(r.Group("/api/v1"), d.guard(), d.Log)
	return r
}
