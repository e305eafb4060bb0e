package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"go-gin-auth-profile/internal/domain"
	mdw "go-gin-auth-profile/internal/transport/http/middleware"
	resp "go-gin-auth-profile/internal/transport/http/response"
)

// Guard 鉴权网关（middleware.Gate）
type Guard interface {
	Require(roles ...domain.Role) gin.HandlerFunc
}

type EZ struct {
	g    *gin.RouterGroup
	gate Guard
	log  *zap.Logger
}

func New(g *gin.RouterGroup, gate Guard, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, gate: gate, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON      Binder = "json"      // JSON body
	BindQuery     Binder = "query"     // ?a=b
	BindURI       Binder = "uri"       // 路径参数 :id
	BindMultipart Binder = "multipart" // multipart/form-data
	BindNone      Binder = "none"
)

// Renderer 出参自行写响应（如图片字节），不走 JSON 信封
type Renderer interface {
	Render(c *gin.Context)
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	Auth   bool          // 需要登录
	Roles  []domain.Role // 角色白名单，非空时隐含 Auth
	Status int           // 成功状态码，默认 200
	// URI 与 body 同时需要时先绑 URI
	AlsoURI bool
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前分组注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	handlers := make([]gin.HandlerFunc, 0, 2)
	if a.Auth || len(a.Roles) > 0 {
		if e.gate == nil {
			panic("ez: " + a.Path + " requires auth but no gate configured")
		}
		handlers = append(handlers, e.gate.Require(a.Roles...))
	}

	handlers = append(handlers, func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, a.AlsoURI, &in); err != nil {
			if mdw.IsBodyTooLarge(err) {
				resp.Abort(c, resp.CodeTooLarge, "request body too large")
				return
			}
			e.log.Debug("bind failed", zap.String("path", a.Path), zap.Error(err))
			resp.Abort(c, resp.CodeBadRequest, "malformed request")
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			ae := Map(err)
			if ae.Code >= http.StatusInternalServerError {
				e.log.Error("action failed",
					zap.String("method", a.Method),
					zap.String("path", a.Path),
					zap.String("rid", c.GetString(mdw.KeyRequestID)),
					zap.Error(err),
				)
			}
			resp.Abort(c, ae.Code, ae.Msg)
			return
		}
		if r, ok := any(out).(Renderer); ok {
			r.Render(c)
			return
		}
		resp.JSON(c, a.Status, out)
	})

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default:
		e.g.POST(a.Path, handlers...)
	}
}

func bind(c *gin.Context, b Binder, alsoURI bool, in any) error {
	if alsoURI && b != BindURI {
		if err := c.ShouldBindUri(in); err != nil {
			return err
		}
	}
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	case BindURI:
		return c.ShouldBindUri(in)
	case BindMultipart:
		return c.ShouldBindWith(in, binding.FormMultipart)
	default:
		return nil
	}
}

// 统一错误对象
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Map 领域错误 -> AErr；未知错误一律 500，不带细节
func Map(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= resp.CodeServerError && ae.Msg == "" {
			return &AErr{Code: ae.Code, Msg: "internal error", Err: ae.Err}
		}
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return &AErr{Code: resp.CodeBadRequest, Msg: "malformed request", Err: err}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &AErr{Code: resp.CodeUnauthorized, Msg: "invalid credentials", Err: err}
	case errors.Is(err, domain.ErrUnauthenticated):
		return &AErr{Code: resp.CodeUnauthorized, Msg: "unauthenticated", Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &AErr{Code: resp.CodeForbidden, Msg: "forbidden", Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "not found", Err: err}
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return &AErr{Code: resp.CodeConflict, Msg: "email already registered", Err: err}
	default:
		return &AErr{Code: resp.CodeServerError, Msg: "internal error", Err: err}
	}
}
