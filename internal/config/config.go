// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration for the client and the dev backend, loaded from
// file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Backend gateway
	BackendURL      string        `mapstructure:"BACKEND_URL"`
	BackendAnonKey  string        `mapstructure:"BACKEND_ANON_KEY"`
	BackendTimeout  time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	AuthRedirectURL string        `mapstructure:"AUTH_REDIRECT_URL"`

	// Session persistence
	StateStore string `mapstructure:"STATE_STORE"`
	StateFile  string `mapstructure:"STATE_FILE"`
	RedisURL   string `mapstructure:"REDIS_URL"`

	// Blob storage
	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3PublicURL       string `mapstructure:"S3_PUBLIC_URL"`

	// Tracing
	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	// Dev backend
	Port                     string `mapstructure:"PORT"`
	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBDSN                    string `mapstructure:"DB_DSN"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	RequireEmailConfirmation bool   `mapstructure:"REQUIRE_EMAIL_CONFIRMATION"`
	StorageDir               string `mapstructure:"STORAGE_DIR"`
	SeedFixtures             string `mapstructure:"SEED_FIXTURES"`
	PublicURL                string `mapstructure:"PUBLIC_URL"`
}

const defaultJWTSecret = "dev-secret-change-me"

// LoadConfig loads configuration from config.yml, an optional
// config.<APP_ENV>.yml, and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BACKEND_URL", "http://localhost:8080")
	viper.SetDefault("BACKEND_ANON_KEY", "dev-anon-key")
	viper.SetDefault("BACKEND_TIMEOUT", "30s")
	viper.SetDefault("AUTH_REDIRECT_URL", "mvp://login-callback")
	viper.SetDefault("STATE_STORE", "file")
	viper.SetDefault("STATE_FILE", ".mvp-state.json")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("STORAGE_BACKEND", "gateway")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_PUBLIC_URL", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_DSN", "file:mvp-dev.db?_foreign_keys=on")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("REQUIRE_EMAIL_CONFIRMATION", false)
	viper.SetDefault("STORAGE_DIR", "")
	viper.SetDefault("SEED_FIXTURES", "")
	viper.SetDefault("PUBLIC_URL", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StateStore = strings.ToLower(strings.TrimSpace(c.StateStore))
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:" + c.Port
	}
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL)
	}
	if c.BackendAnonKey == "" {
		return errors.New("BACKEND_ANON_KEY is required")
	}
	if c.BackendTimeout < 0 {
		return errors.New("BACKEND_TIMEOUT must not be negative")
	}

	switch c.StateStore {
	case "file":
		if c.StateFile == "" {
			return errors.New("STATE_FILE is required when STATE_STORE=file")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when STATE_STORE=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STATE_STORE %q (want file, redis or memory)", c.StateStore)
	}

	switch c.StorageBackend {
	case "gateway":
	case "s3":
		if c.S3Endpoint == "" || c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return errors.New("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when STORAGE_BACKEND=s3")
		}
		if c.S3PublicURL == "" {
			return errors.New("S3_PUBLIC_URL is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want gateway or s3)", c.StorageBackend)
	}

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if !strings.HasPrefix(c.BackendURL, "https://") {
			slog.Warn("BACKEND_URL does not use https in production", slog.String("url", c.BackendURL))
		}
	}

	return nil
}
