package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/service"
	"go-gin-auth-profile/internal/transport/http/ez"
)

// AuthHandler /auth/*：注册、登录、刷新令牌（公开接口）
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Priority() int { return 10 }

type signupIn struct {
	Email       string `json:"email"       binding:"required,email"`
	Password    string `json:"password"    binding:"required,max=72"`
	FullName    string `json:"fullName"    binding:"omitempty,max=128"`
	Address     string `json:"address"     binding:"omitempty,max=255"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,max=32"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshIn struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[signupIn, *domain.User]{
		Method:  http.MethodPost,
		Path:    "/auth/signup",
		Binder:  ez.BindJSON,
		Status:  http.StatusCreated,
		Handler: h.signup,
	})
	ez.RegisterAction(e, ez.Action[loginIn, *service.TokenPair]{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Binder:  ez.BindJSON,
		Handler: h.login,
	})
	ez.RegisterAction(e, ez.Action[refreshIn, *service.TokenPair]{
		Method:  http.MethodPost,
		Path:    "/auth/refresh-token",
		Binder:  ez.BindJSON,
		Handler: h.refresh,
	})
}

func (h *AuthHandler) signup(c *gin.Context, in *signupIn) (*domain.User, error) {
	return h.svc.Signup(c.Request.Context(), service.Registration{
		Email:       in.Email,
		Password:    in.Password,
		FullName:    in.FullName,
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
	})
}

func (h *AuthHandler) login(c *gin.Context, in *loginIn) (*service.TokenPair, error) {
	return h.svc.Login(c.Request.Context(), service.Credentials{Email: in.Email, Password: in.Password})
}

// refresh 除缺少字段（400）外，所有失败统一 403
func (h *AuthHandler) refresh(c *gin.Context, in *refreshIn) (*service.TokenPair, error) {
	pair, err := h.svc.Refresh(c.Request.Context(), in.RefreshToken)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, domain.ErrMalformedRequest):
		return nil, ez.BadRequest("refreshToken is required")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthenticated):
		return nil, ez.Forbidden("invalid refresh token")
	default:
		return nil, err
	}
}
