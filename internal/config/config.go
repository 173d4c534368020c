package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/uploadkit/pkg/db"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/redis"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

var (
	ErrLoadEnv      = errors.New("config: failed to load environment")
	ErrLoadPolicies = errors.New("config: failed to load upload policies")
	ErrInvalid      = errors.New("config: invalid configuration")
)

// Config is the full uploadd configuration, populated from environment variables.
type Config struct {
	Env    string `env:"APP_ENV" envDefault:"production"`
	HTTP   HTTPConfig
	Upload UploadConfig

	DB      db.Config
	Redis   redis.Config
	Storage storage.Config
	Log     logger.Config
}

type HTTPConfig struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	// Upload bodies stream for a long time; the per-policy timeout bounds them instead.
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10m"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type UploadConfig struct {
	// YAML file with named upload policies. Empty uses DefaultPolicies.
	PoliciesFile string `env:"UPLOAD_POLICIES_FILE"`

	// Per-tenant byte quota. Zero disables quota enforcement.
	TenantQuota int64 `env:"UPLOAD_TENANT_QUOTA" envDefault:"0"`

	SweepSchedule string        `env:"UPLOAD_SWEEP_SCHEDULE" envDefault:"*/10 * * * *"`
	SweepAfter    time.Duration `env:"UPLOAD_SWEEP_AFTER" envDefault:"1h"`
	SweepBatch    int           `env:"UPLOAD_SWEEP_BATCH" envDefault:"100"`

	URLExpiry time.Duration `env:"UPLOAD_URL_EXPIRY" envDefault:"15m"`

	Policies map[string]Policy `env:"-"`
}

// Development reports whether raw internal errors may be exposed to clients.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads the environment and the policy file it points to.
// Dotenv files (default ".env") are applied first when they exist and never
// override variables already set in the process environment.
func Load(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Join(ErrLoadEnv, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrLoadEnv, err)
	}

	if cfg.Upload.PoliciesFile == "" {
		cfg.Upload.Policies = DefaultPolicies()
	} else {
		f, err := os.Open(cfg.Upload.PoliciesFile)
		if err != nil {
			return nil, errors.Join(ErrLoadPolicies, err)
		}
		defer f.Close()

		if cfg.Upload.Policies, err = ParsePolicies(f); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upload.TenantQuota < 0 {
		return fmt.Errorf("%w: tenant quota must not be negative", ErrInvalid)
	}
	if c.Upload.SweepAfter <= 0 {
		return fmt.Errorf("%w: sweep threshold must be positive", ErrInvalid)
	}
	if c.Upload.SweepBatch <= 0 {
		return fmt.Errorf("%w: sweep batch must be positive", ErrInvalid)
	}
	if len(c.Upload.Policies) == 0 {
		return fmt.Errorf("%w: at least one upload policy is required", ErrInvalid)
	}
	return nil
}
