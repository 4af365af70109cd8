package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:            "development",
		BackendURL:     "https://xyz.supabase.co",
		BackendAnonKey: "anon",
		StateStore:     "file",
		StateFile:      ".state.json",
		StorageBackend: "gateway",
		DBDriver:       "sqlite",
		JWTSecret:      "secret",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Valid", func(*Config) {}, false},
		{"Missing backend URL", func(c *Config) { c.BackendURL = "" }, true},
		{"Relative backend URL", func(c *Config) { c.BackendURL = "xyz.supabase.co" }, true},
		{"Missing anon key", func(c *Config) { c.BackendAnonKey = "" }, true},
		{"Negative timeout", func(c *Config) { c.BackendTimeout = -time.Second }, true},
		{"Unknown state store", func(c *Config) { c.StateStore = "sqlite" }, true},
		{"File store without file", func(c *Config) { c.StateFile = "" }, true},
		{"Redis store", func(c *Config) { c.StateStore = "redis"; c.RedisURL = "redis://localhost:6379" }, false},
		{"Memory store", func(c *Config) { c.StateStore = "memory" }, false},
		{"S3 without credentials", func(c *Config) { c.StorageBackend = "s3" }, true},
		{"S3 complete", func(c *Config) {
			c.StorageBackend = "s3"
			c.S3Endpoint = "https://xyz.supabase.co/storage/v1/s3"
			c.S3AccessKeyID = "id"
			c.S3SecretAccessKey = "secret"
			c.S3PublicURL = "https://xyz.supabase.co/storage/v1/object/public"
		}, false},
		{"Unknown DB driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"Production custom secret", func(c *Config) { c.Env = "production"; c.JWTSecret = "a-very-long-production-secret-value" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("BACKEND_URL", "http://127.0.0.1:9999/")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("STATE_STORE", "  Memory ")
	t.Setenv("REQUIRE_EMAIL_CONFIRMATION", "true")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", c.BackendURL)
	assert.Equal(t, 5*time.Second, c.BackendTimeout)
	assert.Equal(t, "memory", c.StateStore)
	assert.True(t, c.RequireEmailConfirmation)
	assert.Equal(t, "gateway", c.StorageBackend)
	assert.Equal(t, "http://localhost:8080", c.PublicURL)
}
