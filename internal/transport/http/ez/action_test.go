package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-auth-profile/internal/domain"
	resp "go-gin-auth-profile/internal/transport/http/response"
)

type stubGuard struct{ seen [][]domain.Role }

func (s *stubGuard) Require(roles ...domain.Role) gin.HandlerFunc {
	s.seen = append(s.seen, roles)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthenticated")
			return
		}
		c.Next()
	}
}

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

type rawOut struct{}

func (rawOut) Render(c *gin.Context) { c.Data(http.StatusOK, "image/png", []byte("png")) }

func newEngine(g Guard) (*gin.Engine, EZ) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, New(r.Group("/v1"), g, nil)
}

func serve(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	var env resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRegisterActionBindsAndWraps(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *echoIn) (gin.H, error) {
			return gin.H{"name": in.Name}, nil
		},
	})

	w := serve(r, http.MethodPost, "/v1/echo", `{"name":"bob"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.Equal(t, resp.CodeOK, env.Code)
	assert.Equal(t, map[string]interface{}{"name": "bob"}, env.Data)

	w = serve(r, http.MethodPost, "/v1/echo", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed request", decode(t, w).Msg)
}

func TestRegisterActionGate(t *testing.T) {
	g := &stubGuard{}
	r, e := newEngine(g)
	RegisterAction(e, Action[struct{}, gin.H]{
		Method:  http.MethodGet,
		Path:    "/admin",
		Binder:  BindNone,
		Roles:   []domain.Role{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) { return gin.H{}, nil },
	})
	RegisterAction(e, Action[struct{}, gin.H]{
		Method:  http.MethodGet,
		Path:    "/open",
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) { return gin.H{}, nil },
	})

	require.Len(t, g.seen, 1)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, g.seen[0])

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/v1/admin", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/v1/admin", "", map[string]string{"Authorization": "Bearer x"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/v1/open", "", nil).Code)
}

func TestRegisterActionWithoutGatePanics(t *testing.T) {
	_, e := newEngine(nil)
	assert.Panics(t, func() {
		RegisterAction(e, Action[struct{}, gin.H]{Method: http.MethodGet, Path: "/x", Auth: true})
	})
}

func TestRegisterActionRenderer(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[struct{}, rawOut]{
		Method:  http.MethodGet,
		Path:    "/img",
		Handler: func(c *gin.Context, _ *struct{}) (rawOut, error) { return rawOut{}, nil },
	})
	w := serve(r, http.MethodGet, "/v1/img", "", nil)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())
}

func TestRegisterActionHidesInternalErrors(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/boom",
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			return nil, errors.New("pq: connection refused at 10.0.0.5")
		},
	})
	w := serve(r, http.MethodGet, "/v1/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w).Msg)
}

func TestMap(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrMalformedRequest, 400},
		{fmt.Errorf("%w: bad image", domain.ErrMalformedRequest), 400},
		{domain.ErrInvalidCredentials, 401},
		{domain.ErrUnauthenticated, 401},
		{domain.ErrForbidden, 403},
		{domain.ErrNotFound, 404},
		{domain.ErrDuplicateIdentity, 409},
		{domain.ErrRoleNotProvisioned, 500},
		{Forbidden("nope"), 403},
		{Internal("", errors.New("x")), 500},
	}
	for _, tc := range cases {
		ae := Map(tc.err)
		assert.Equal(t, tc.code, ae.Code, tc.err.Error())
		assert.NotEmpty(t, ae.Msg)
	}
}
