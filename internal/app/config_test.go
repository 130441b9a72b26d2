package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001", cfg.Storefront.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Storefront.Timeout)
	assert.False(t, cfg.Storefront.ReplaceCart)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "cart-storage", cfg.Storage.Key)
	assert.Equal(t, "cart-storage.json", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, 0, cfg.RateLimit.Max)
}

func TestLoadConfig_Env(t *testing.T) {
	isolateConfig(t)
	t.Setenv("CART_STOREFRONT_BASE_URL", "https://shop.test")
	t.Setenv("CART_STOREFRONT_TOKEN", "tok")
	t.Setenv("CART_STOREFRONT_REPLACE_CART", "true")
	t.Setenv("CART_STORAGE_DRIVER", "memory")
	t.Setenv("CART_RATE_LIMIT_MAX", "5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.test", cfg.Storefront.BaseURL)
	assert.Equal(t, "tok", cfg.Storefront.Token)
	assert.True(t, cfg.Storefront.ReplaceCart)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.RateLimit.Max)
}

func TestLoadConfig_File(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storefront:
  base_url: https://yaml.test
storage:
  driver: file
  path: /tmp/cart.json.gz
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://yaml.test", cfg.Storefront.BaseURL)
	assert.Equal(t, "/tmp/cart.json.gz", cfg.Storage.Path)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storefront: StorefrontConfig{BaseURL: "https://shop.test", Timeout: time.Second},
			RateLimit:  RateLimitConfig{Window: time.Second},
			Storage:    StorageConfig{Driver: DriverFile, Key: "cart-storage", Path: "/tmp/x.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Storefront.BaseURL = "" }, wantErr: true},
		{name: "bad base url", mutate: func(c *Config) { c.Storefront.BaseURL = "not a url" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Storefront.Timeout = -time.Second }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: true},
		{name: "redis without url", mutate: func(c *Config) { c.Storage.Driver = DriverRedis }, wantErr: true},
		{
			name: "redis with url",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverRedis
				c.Storage.RedisURL = "redis://localhost:6379/0"
			},
		},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
