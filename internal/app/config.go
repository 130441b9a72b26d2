package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds the complete client configuration, loadable from environment
// variables (CART_ prefix) or YAML config files.
type Config struct {
	Storefront StorefrontConfig `yaml:"storefront"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Storage    StorageConfig    `yaml:"storage"`
}

// StorefrontConfig describes the backend.
type StorefrontConfig struct {
	BaseURL     string        `default:"http://localhost:3001" usage:"Storefront API origin" validate:"required,url" yaml:"base_url"`
	Token       string        `usage:"Bearer token sent with every request (CART_STOREFRONT_TOKEN)" yaml:"token"`
	Timeout     time.Duration `default:"15s" usage:"Per-request timeout, 0 disables" validate:"gte=0" yaml:"timeout"`
	ReplaceCart bool          `default:"false" usage:"Backend supports PUT /api/cart for single-call sync" yaml:"replace_cart"`
}

// RateLimitConfig paces outgoing requests with a sliding window.
type RateLimitConfig struct {
	Max    int           `default:"0"  usage:"Max requests per window, 0 disables" validate:"gte=0" yaml:"max"`
	Window time.Duration `default:"1s" usage:"Rate limit window duration" validate:"gte=0" yaml:"window"`
}

// StorageConfig selects and configures the snapshot persister.
type StorageConfig struct {
	Driver      string        `default:"file" usage:"Snapshot storage: file, memory, redis or postgres" validate:"oneof=file memory redis postgres" yaml:"driver"`
	Key         string        `default:"cart-storage" usage:"Snapshot key for redis and postgres" validate:"required" yaml:"key"`
	Path        string        `usage:"Snapshot file for the file driver; .gz enables compression" yaml:"path"`
	RedisURL    string        `usage:"Redis URL for the redis driver" validate:"required_if=Driver redis" yaml:"redis_url"`
	RedisTTL    time.Duration `default:"720h" usage:"Snapshot TTL in redis, 0 keeps it forever" validate:"gte=0" yaml:"redis_ttl"`
	DatabaseURL string        `usage:"PostgreSQL URL for the postgres driver" validate:"required_if=Driver postgres" yaml:"database_url"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files. An explicit file, when set, is read in addition to the defaults.
func LoadConfig(file string) (*Config, error) {
	files := []string{"cartctl.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "cartctl", "config.yaml"))
	}
	if file != "" {
		files = append(files, file)
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:  "CART",
		SkipFlags:  true,
		MergeFiles: true,
		Files:      files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills values that depend on the environment.
func (c *Config) applyDefaults() {
	if c.Storage.Key == "" {
		c.Storage.Key = cart.DefaultSnapshotKey
	}
	if c.Storage.Path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.Storage.Path = filepath.Join(dir, "cartctl", c.Storage.Key+".json")
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
