package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	RealtimeLocal = "local"
	RealtimeRedis = "redis"

	defaultJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Session  SessionConfig  `mapstructure:"session"`
	Room     RoomConfig     `mapstructure:"room"`
	Presence PresenceConfig `mapstructure:"presence"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Log      LogConfig      `mapstructure:"log"`

	// File is the config file that was read, empty when running on defaults
	File string `mapstructure:"-"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Options builds client options. Addr may be host:port or a redis:// URL.
func (c RedisConfig) Options() (*redis.Options, error) {
	if strings.HasPrefix(c.Addr, "redis://") || strings.HasPrefix(c.Addr, "rediss://") {
		return redis.ParseURL(c.Addr)
	}
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// MongoConfig configures the round archive. An empty URI disables it.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	MemberTokenTTL time.Duration `mapstructure:"member_token_ttl"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RoomConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// PresenceConfig ties socket heartbeats to roster reconciliation. A live
// socket refreshes presence once per Heartbeat, so StaleAfter must cover at
// least two heartbeats or an idle member is evicted between pings.
type PresenceConfig struct {
	Grace         time.Duration `mapstructure:"grace"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 0 disables the sweeper
	TTL           time.Duration `mapstructure:"ttl"`
}

type RealtimeConfig struct {
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// UsesDefaultSecret reports whether tokens are signed with the built-in dev secret
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == defaultJWTSecret
}

// Load reads config/config.<CONFIG_ENV>.yaml (or CONFIG_FILE) on top of the
// defaults and applies environment overrides.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = fmt.Sprintf("config/config.%s.yaml", env)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(file)
	setDefaults(v)
	v.Set("env", env)

	v.SetEnvPrefix("GAMEPICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	} else {
		cfg.File = file
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.HTTP.Port != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(cfg.HTTP.Port, ":")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "gamepicker")

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.member_token_ttl", "24h")

	v.SetDefault("session.ttl", "10m")
	v.SetDefault("room.ttl", "24h")

	v.SetDefault("presence.grace", "60s")
	v.SetDefault("presence.heartbeat", "25s")
	v.SetDefault("presence.stale_after", "60s")
	v.SetDefault("presence.sweep_interval", "30s")
	v.SetDefault("presence.ttl", "10m")

	v.SetDefault("realtime.mode", RealtimeRedis)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// bindLegacyEnv keeps the plain variable names used by the deploy scripts
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("redis.addr", "GAMEPICKER_REDIS_ADDR", "REDIS_ADDR", "REDIS_URI")
	_ = v.BindEnv("mongo.uri", "GAMEPICKER_MONGO_URI", "MONGO_URI")
	_ = v.BindEnv("auth.jwt_secret", "GAMEPICKER_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("http.port", "GAMEPICKER_HTTP_PORT", "PORT")
	_ = v.BindEnv("http.allowed_origins", "GAMEPICKER_HTTP_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")
}

func (c *Config) validate() error {
	switch c.Realtime.Mode {
	case RealtimeLocal, RealtimeRedis:
	default:
		return fmt.Errorf("realtime.mode must be %q or %q, got %q", RealtimeLocal, RealtimeRedis, c.Realtime.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Session.TTL <= 0 || c.Room.TTL <= 0 {
		return errors.New("session.ttl and room.ttl must be positive")
	}
	if c.Presence.Heartbeat <= 0 {
		return errors.New("presence.heartbeat must be positive")
	}
	if c.Presence.StaleAfter < 2*c.Presence.Heartbeat {
		return fmt.Errorf("presence.stale_after (%s) must be at least twice presence.heartbeat (%s)", c.Presence.StaleAfter, c.Presence.Heartbeat)
	}
	return nil
}
