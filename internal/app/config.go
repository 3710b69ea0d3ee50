package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the full application configuration. Values come from an optional
// YAML file layered under SALONPULSE_* environment variables.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// AuthConfig configures token validation.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// RealtimeConfig tunes connection liveness on the server side. The idle
// timeout must stay above the 20s client heartbeat.
type RealtimeConfig struct {
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	WriteWait   time.Duration `mapstructure:"write_wait"`
	SendBuffer  int           `mapstructure:"send_buffer"`
}

// MaintenanceConfig tunes the background cleanup jobs.
type MaintenanceConfig struct {
	Schedule              string        `mapstructure:"schedule"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
}

// LoadConfig reads configuration from the given file (optional) and the
// environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "salonpulse.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "salonpulse")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("realtime.stale_after", 5*time.Minute)
	v.SetDefault("realtime.idle_timeout", 60*time.Second)
	v.SetDefault("realtime.write_wait", 10*time.Second)
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("maintenance.schedule", "@hourly")
	v.SetDefault("maintenance.notification_retention", 30*24*time.Hour)

	v.SetEnvPrefix("SALONPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	return &cfg, nil
}
