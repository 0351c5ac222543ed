package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the storefront server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL     string
	Timeout time.Duration
}

type SearchConfig struct {
	URL         string
	IndexPrefix string
	Timeout     time.Duration
}

type AuthConfig struct {
	JWTSigningKey string
	TokenTTL      time.Duration
	AdminToken    string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("STOREFRONT_PORT", 8080),
			Env:  envString("STOREFRONT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:     os.Getenv("REDIS_URL"),
			Timeout: envDuration("REDIS_TIMEOUT", 250*time.Millisecond),
		},
		Search: SearchConfig{
			URL:         os.Getenv("ELASTICSEARCH_URL"),
			IndexPrefix: envString("ELASTICSEARCH_INDEX_PREFIX", "storefront"),
			Timeout:     envDuration("ELASTICSEARCH_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			TokenTTL:      envDuration("JWT_TOKEN_TTL", 24*time.Hour),
			AdminToken:    os.Getenv("ADMIN_TOKEN"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Search.URL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required")
	}
	if !strings.HasPrefix(c.Search.URL, "http://") && !strings.HasPrefix(c.Search.URL, "https://") {
		return fmt.Errorf("ELASTICSEARCH_URL must start with http:// or https://, got %q", c.Search.URL)
	}

	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if c.Auth.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
