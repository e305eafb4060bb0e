package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/service"
	"go-gin-auth-profile/internal/transport/http/ez"
)

// AdminHandler 管理端：用户列表、封禁、创建管理员
type AdminHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

func NewAdminHandler(auth *service.AuthService, users *service.UserService) *AdminHandler {
	return &AdminHandler{auth: auth, users: users}
}

func (h *AdminHandler) Priority() int { return 10 }

var staff = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}

type adminListIn struct {
	Offset      int    `form:"offset,default=0"`
	Limit       int    `form:"limit,default=20"`
	Q           string `form:"q"`            // 按 email/姓名模糊搜
	WithDeleted bool   `form:"with_deleted"` // 包含已封禁
}

type banIn struct {
	ID string `uri:"id" binding:"required"`
}

type createAdminIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
	FullName string `json:"fullName" binding:"omitempty,max=128"`
}

func (h *AdminHandler) MountAdmin(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[adminListIn, listOut]{
		Method:  http.MethodGet,
		Path:    "/users",
		Binder:  ez.BindQuery,
		Roles:   staff,
		Handler: h.list,
	})
	ez.RegisterAction(e, ez.Action[banIn, gin.H]{
		Method:  http.MethodPost,
		Path:    "/users/:id/ban",
		Binder:  ez.BindURI,
		Roles:   staff,
		Handler: h.ban,
	})
	ez.RegisterAction(e, ez.Action[createAdminIn, *domain.User]{
		Method:  http.MethodPost,
		Path:    "/admins",
		Binder:  ez.BindJSON,
		Roles:   []domain.Role{domain.RoleSuperAdmin},
		Status:  http.StatusCreated,
		Handler: h.createAdmin,
	})
}

func (h *AdminHandler) list(c *gin.Context, in *adminListIn) (listOut, error) {
	items, total, err := h.users.ListUsers(c.Request.Context(), domain.ListQuery{
		Offset: in.Offset, Limit: in.Limit, Q: in.Q, WithDeleted: in.WithDeleted,
	})
	if err != nil {
		return listOut{}, err
	}
	if items == nil {
		items = []domain.User{}
	}
	return listOut{Total: total, Items: items}, nil
}

func (h *AdminHandler) ban(c *gin.Context, in *banIn) (gin.H, error) {
	if u, err := current(c); err == nil && u.ID == in.ID {
		return nil, ez.BadRequest("cannot ban yourself")
	}
	if err := h.users.Ban(c.Request.Context(), in.ID); err != nil {
		return nil, err
	}
	return gin.H{"id": in.ID}, nil
}

func (h *AdminHandler) createAdmin(c *gin.Context, in *createAdminIn) (*domain.User, error) {
	return h.auth.CreateAdministrator(c.Request.Context(), service.Registration{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
	})
}
