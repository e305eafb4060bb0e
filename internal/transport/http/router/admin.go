package router

import (
	"github.com/gin-gonic/gin"

	"go-gin-auth-profile/internal/transport/http/handler"
)

// NewAdminEngine 管理端：/admin/v1，所有接口都要求管理员角色
func NewAdminEngine(d Deps) *gin.Engine {
	r := newEngine(d)

	reg := &Registry{}
	reg.Register(handler.NewAdminHandler(d.Auth, d.Users))
	reg.MountAllAdmin(r.Group("/admin/v1"), d.guard(), d.Log)
	return r
}
