package router

import (
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-profile/internal/transport/http/ez"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(ez.EZ) }
type AdminModule interface{ MountAdmin(ez.EZ) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

type entry struct {
	mod any
	use []gin.HandlerFunc // 仅作用于该模块的中间件
}

// Registry 每个 engine 一份，构建期使用，不做并发保护
type Registry struct {
	mods []entry
}

// Register 统一注册入口；use 只挂在该模块的路由上
func (r *Registry) Register(mod any, use ...gin.HandlerFunc) {
	r.mods = append(r.mods, entry{mod: mod, use: use})
}

func (r *Registry) sorted() []entry {
	out := append([]entry(nil), r.mods...)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOf(out[i].mod) < priorityOf(out[j].mod)
	})
	return out
}

// MountAllAPI 在 /api/v1 上挂载所有 API 模块
func (r *Registry) MountAllAPI(g *gin.RouterGroup, gate ez.Guard, l *zap.Logger) {
	for _, e := range r.sorted() {
		if m, ok := e.mod.(APIModule); ok {
			m.MountAPI(ez.New(g.Group("", e.use...), gate, l))
		}
	}
}

// MountAllAdmin 在 /admin/v1 上挂载所有 Admin 模块
func (r *Registry) MountAllAdmin(g *gin.RouterGroup, gate ez.Guard, l *zap.Logger) {
	for _, e := range r.sorted() {
		if m, ok := e.mod.(AdminModule); ok {
			m.MountAdmin(ez.New(g.Group("", e.use...), gate, l))
		}
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
