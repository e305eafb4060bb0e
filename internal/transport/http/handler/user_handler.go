package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/service"
	"go-gin-auth-profile/internal/transport/http/ez"
	mdw "go-gin-auth-profile/internal/transport/http/middleware"
)

// UserHandler /users/*：当前用户资料与头像；列表仅管理员
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 20 }

type profileIn struct {
	FullName    string `json:"fullName"    binding:"max=128"`
	Address     string `json:"address"     binding:"max=255"`
	PhoneNumber string `json:"phoneNumber" binding:"max=32"`
}

type uploadIn struct {
	File *multipart.FileHeader `form:"file" binding:"required"`
}

type imageNameIn struct {
	Filename string `uri:"filename" binding:"required"`
}

type listIn struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"`
}

type listOut struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

// image 直接输出图片字节
type image struct {
	data []byte
	ct   string
}

func (i image) Render(c *gin.Context) {
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, i.ct, i.data)
}

func (h *UserHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method:  http.MethodGet,
		Path:    "/users/me",
		Binder:  ez.BindNone,
		Auth:    true,
		Handler: h.me,
	})
	ez.RegisterAction(e, ez.Action[profileIn, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/users/profile",
		Binder:  ez.BindJSON,
		Auth:    true,
		Handler: h.updateProfile,
	})
	ez.RegisterAction(e, ez.Action[uploadIn, *domain.User]{
		Method:  http.MethodPost,
		Path:    "/users/profile/image",
		Binder:  ez.BindMultipart,
		Auth:    true,
		Handler: h.uploadImage,
	})
	ez.RegisterAction(e, ez.Action[struct{}, image]{
		Method:  http.MethodGet,
		Path:    "/users/profile/image",
		Binder:  ez.BindNone,
		Auth:    true,
		Handler: h.myImage,
	})
	ez.RegisterAction(e, ez.Action[imageNameIn, image]{
		Method:  http.MethodGet,
		Path:    "/users/profile/image/:filename",
		Binder:  ez.BindURI,
		Auth:    true,
		Handler: h.imageByName,
	})
	ez.RegisterAction(e, ez.Action[listIn, listOut]{
		Method:  http.MethodGet,
		Path:    "/users/",
		Binder:  ez.BindQuery,
		Roles:   []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin},
		Handler: h.list,
	})
}

func current(c *gin.Context) (*domain.User, error) {
	u, ok := mdw.CurrentUser(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

func (h *UserHandler) me(c *gin.Context, _ *struct{}) (*domain.User, error) {
	return current(c)
}

func (h *UserHandler) updateProfile(c *gin.Context, in *profileIn) (*domain.User, error) {
	u, err := current(c)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateProfile(c.Request.Context(), u.Email, service.ProfileUpdate{
		FullName:    in.FullName,
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
	})
}

func (h *UserHandler) uploadImage(c *gin.Context, in *uploadIn) (*domain.User, error) {
	u, err := current(c)
	if err != nil {
		return nil, err
	}
	f, err := in.File.Open()
	if err != nil {
		return nil, ez.BadRequest("cannot read upload")
	}
	defer f.Close()
	return h.svc.UploadProfileImage(c.Request.Context(), u.Email, in.File.Filename, f)
}

func (h *UserHandler) myImage(c *gin.Context, _ *struct{}) (image, error) {
	u, err := current(c)
	if err != nil {
		return image{}, err
	}
	data, ct, err := h.svc.ProfileImage(c.Request.Context(), u.Email)
	if err != nil {
		return image{}, err
	}
	return image{data: data, ct: ct}, nil
}

func (h *UserHandler) imageByName(c *gin.Context, in *imageNameIn) (image, error) {
	data, ct, err := h.svc.ImageByName(c.Request.Context(), in.Filename)
	if err != nil {
		return image{}, err
	}
	return image{data: data, ct: ct}, nil
}

func (h *UserHandler) list(c *gin.Context, in *listIn) (listOut, error) {
	items, total, err := h.svc.ListUsers(c.Request.Context(), domain.ListQuery{Offset: in.Offset, Limit: in.Limit, Q: in.Q})
	if err != nil {
		return listOut{}, err
	}
	if items == nil {
		items = []domain.User{}
	}
	return listOut{Total: total, Items: items}, nil
}
