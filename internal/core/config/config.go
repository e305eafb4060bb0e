package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string // 非空则同时写文件并切割
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret               string
	Issuer               string
	AccessTokenTTLMin    int
	RefreshTokenTTLHours int
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTokenTTLHours) * time.Hour }

type Redis struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	UserTTLSec int    `mapstructure:"userTTLSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	SeedRoles          bool
	LogLevel           string
}

type Profile struct {
	ImagesDir        string
	DefaultImagePath string
	MaxUploadMB      int
}

type Bootstrap struct {
	Email    string
	Password string
	FullName string
}

type Admin struct {
	Bootstrap Bootstrap
}

type Security struct {
	BcryptCost int
}

// Limits HTTP 保护参数（全局限速 / 认证接口每 IP 限速 / 并发 / 请求体 / 超时）
type Limits struct {
	RPS               float64
	Burst             int
	AuthRPS           float64
	AuthBurst         int
	MaxConcurrent     int64
	MaxBodyMB         int
	RequestTimeoutSec int
}

func (l Limits) RequestTimeout() time.Duration {
	return time.Duration(l.RequestTimeoutSec) * time.Second
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Profile  Profile
	Admin    Admin
	Security Security
	Limits   Limits
}

const minSecretLen = 32

func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d bytes", minSecretLen)
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		return errors.New("jwt.accessTokenTTLMin must be positive")
	}
	if c.JWT.RefreshTTL() <= c.JWT.AccessTTL() {
		return errors.New("jwt.refreshTokenTTLHours must exceed the access token ttl")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("db.driver %q not supported", c.DB.Driver)
	}
	return nil
}

func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// LoadE 读取 YAML + APP_ 前缀环境变量覆盖（例：APP_JWT_SECRET）
func LoadE(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-profile")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 7)
	v.SetDefault("log.maxAgeDays", 30)

	v.SetDefault("jwt.issuer", "auth-profile")
	v.SetDefault("jwt.accessTokenTTLMin", 60)
	v.SetDefault("jwt.refreshTokenTTLHours", 24*7)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:auth.db?_pragma=foreign_keys(1)")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.seedRoles", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.userTTLSec", 30)

	v.SetDefault("profile.imagesDir", "uploads/profile-images")
	v.SetDefault("profile.defaultImagePath", "uploads/default-profile.png")
	v.SetDefault("profile.maxUploadMB", 5)

	v.SetDefault("security.bcryptCost", 10)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.authRps", 5)
	v.SetDefault("limits.authBurst", 10)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyMB", 16)
	v.SetDefault("limits.requestTimeoutSec", 10)
}
