package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the application configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL string `koanf:"url" validate:"required"`
}

// RedisConfig enables the post cache when Addr is set
type RedisConfig struct {
	Addr string        `koanf:"addr"`
	TTL  time.Duration `koanf:"ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "mongodb://localhost:27017/blog-app",
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// envKeys maps environment variables to config keys
var envKeys = map[string]string{
	"SERVER_HOST":      "server.host",
	"SERVER_PORT":      "server.port",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"DATABASE_URL":     "database.url",
	"REDIS_ADDR":       "redis.addr",
	"CACHE_TTL":        "redis.ttl",
	"LOG_LEVEL":        "log.level",
	"LOG_JSON":         "log.json",
}

// Load reads defaults, an optional .env file and the environment, then
// applies overrides
func Load(overrides map[string]any) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(overrides)
}

// LoadFrom is Load without the .env file; overrides are applied last
// and use the same dotted keys as the env mapping.
func LoadFrom(overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[key]
			if !ok || strings.TrimSpace(value) == "" {
				return "", nil
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
