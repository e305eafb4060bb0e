package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-auth-profile/internal/core/config"
	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/transport/http/router"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.App{Env: "test"},
		JWT: config.JWT{
			Secret:               "app-test-secret-0123456789abcdef!!",
			Issuer:               "test",
			AccessTokenTTLMin:    15,
			RefreshTokenTTLHours: 24,
		},
		DB:       config.DB{Driver: "sqlite", DSN: "file::memory:", AutoMigrate: true, LogLevel: "silent"},
		Profile:  config.Profile{ImagesDir: "uploads", DefaultImagePath: "default.png", MaxUploadMB: 1},
		Security: config.Security{BcryptCost: 4},
	}
}

func TestNewWiresAdminStack(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	mr := miniredis.RunT(t)
	cfg.Redis = config.Redis{Addr: mr.Addr(), UserTTLSec: 30}

	a, err := New(ctx, cfg, zap.NewNop(), Options{SeedRoles: true, Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.Cache)

	role, err := a.Roles.FindByName(ctx, domain.RoleSuperAdmin)
	require.NoError(t, err)
	require.NotNil(t, role)

	b := config.Bootstrap{Email: "root@x.com", Password: "root-pw", FullName: "Root"}
	require.NoError(t, a.BootstrapAdmin(ctx, b, zap.NewNop()))
	require.NoError(t, a.BootstrapAdmin(ctx, b, zap.NewNop()), "second run is a no-op")

	r := router.NewAdminEngine(a.Deps)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrapWithoutRolesFails(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), zap.NewNop(), Options{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.Nil(t, a.Cache)

	err = a.BootstrapAdmin(ctx, config.Bootstrap{Email: "root@x.com", Password: "pw"}, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrRoleNotProvisioned)

	// 未配置时什么都不做
	assert.NoError(t, a.BootstrapAdmin(ctx, config.Bootstrap{}, zap.NewNop()))
}

func TestNewRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := New(context.Background(), cfg, zap.NewNop(), Options{Fs: afero.NewMemMapFs()})
	assert.Error(t, err)
}
