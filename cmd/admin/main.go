package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-auth-profile/internal/app"
	"go-gin-auth-profile/internal/core/config"
	"go-gin-auth-profile/internal/core/logger"
	"go-gin-auth-profile/internal/core/server"
	"go-gin-auth-profile/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	base, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(base, zapcore.InfoLevel)()
	log := base.With(zap.String("proc", "admin"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 管理端总是初始化角色，并按配置引导首个超级管理员
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(initCtx, cfg, log, app.Options{SeedRoles: true})
	if err == nil {
		err = a.BootstrapAdmin(initCtx, cfg.Admin.Bootstrap, log)
	}
	cancel()
	if err != nil {
		log.Fatal("init failed", zap.Error(err))
	}
	defer a.Close()

	h := cfg.App.HTTP
	srv := server.BuildServer(
		server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port),
		router.NewAdminEngine(a.Deps),
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
	if el, err := logger.ToStdLogger(log.Named("http"), zapcore.ErrorLevel); err == nil {
		srv.ErrorLog = el
	}

	log.Info("admin api",
		zap.String("health", fmt.Sprintf("http://%s:%d/health", cfg.App.Admin.Host, cfg.App.Admin.Port)),
		zap.String("admin_v1", fmt.Sprintf("http://%s:%d/admin/v1", cfg.App.Admin.Host, cfg.App.Admin.Port)),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("admin api FAILED", zap.Error(err))
		return
	}
	log.Info("admin api stopped gracefully")
}
