package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-auth-profile/internal/core/auth"
	"go-gin-auth-profile/internal/core/cache"
	"go-gin-auth-profile/internal/core/config"
	"go-gin-auth-profile/internal/core/database"
	"go-gin-auth-profile/internal/core/server"
	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/feature/user"
	"go-gin-auth-profile/internal/repo"
	"go-gin-auth-profile/internal/service"
	"go-gin-auth-profile/internal/storage"
	mdw "go-gin-auth-profile/internal/transport/http/middleware"
	"go-gin-auth-profile/internal/transport/http/router"
	"go-gin-auth-profile/pkg/utils"
)

// App 两个二进制共用的依赖装配结果
type App struct {
	DB    *gorm.DB
	Cache *cache.Cache // 未配置 redis 时为 nil
	Deps  router.Deps
	Roles domain.RoleRepository
}

type Options struct {
	// SeedRoles 强制初始化角色（admin 进程总是为 true）
	SeedRoles bool
	// Fs 头像存储文件系统，默认 OS
	Fs afero.Fs
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger, o Options) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(user.Models()...); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	users := repo.NewUserRepo(db)
	roles := repo.NewRoleRepo(db)
	if cfg.DB.SeedRoles || o.SeedRoles {
		if err := roles.EnsureDefaults(ctx); err != nil {
			return nil, fmt.Errorf("seed roles: %w", err)
		}
		l.Info("roles seeded")
	}

	a := &App{DB: db, Roles: roles}

	// 网关解析用户：有 redis 走读穿缓存
	var (
		lookup      repo.UserLookup = users
		invalidator service.Invalidator
	)
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		cached := repo.NewCachedUserLookup(c, users, time.Duration(cfg.Redis.UserTTLSec)*time.Second)
		lookup, invalidator, a.Cache = cached, cached, c
		l.Info("redis user cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	tokens, err := auth.NewTokenService([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	if err != nil {
		return nil, err
	}
	authSvc, err := service.NewAuthService(users, roles, utils.NewBcrypt(cfg.Security.BcryptCost), tokens, l.Named("auth"))
	if err != nil {
		return nil, err
	}

	fs := o.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	images := storage.NewImageStore(fs, cfg.Profile.ImagesDir, cfg.Profile.DefaultImagePath, int64(cfg.Profile.MaxUploadMB)<<20)
	userSvc := service.NewUserService(users, images, invalidator, l.Named("user"))

	a.Deps = router.Deps{
		Log:    l,
		Mode:   server.Mode(cfg.App.Env),
		Gate:   mdw.NewGate(tokens, lookup, l.Named("gate")),
		Auth:   authSvc,
		Users:  userSvc,
		Limits: cfg.Limits,
		Ready:  a.ready,
	}
	return a, nil
}

func (a *App) ready(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if a.Cache != nil {
		return a.Cache.Ping(ctx)
	}
	return nil
}

// BootstrapAdmin 配置了 admin.bootstrap 时创建首个超级管理员；已存在则跳过
func (a *App) BootstrapAdmin(ctx context.Context, b config.Bootstrap, l *zap.Logger) error {
	if b.Email == "" || b.Password == "" {
		return nil
	}
	u, err := a.Deps.Auth.CreateSuperAdmin(ctx, service.Registration{
		Email:    b.Email,
		Password: b.Password,
		FullName: b.FullName,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateIdentity):
		l.Info("bootstrap admin exists, skipped")
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	l.Info("bootstrap admin created", zap.String("uid", u.ID))
	return nil
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
