package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	// DefaultAssetsDir is used when neither ASSETS_PATH nor assets.path is set,
	// relative to the service's working directory.
	DefaultAssetsDir = "../assets"
)

// PostgresConfig holds connection settings for the token and audit tables.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the complete service configuration.
type Config struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           string `yaml:"port"`
		Prefork        bool   `yaml:"prefork"`
		BodyLimitBytes int    `yaml:"body_limit_bytes"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Assets struct {
		Path        string `yaml:"path"`
		ServeStatic bool   `yaml:"serve_static"`
	} `yaml:"assets"`

	PDF struct {
		TimeoutSecs     int    `yaml:"timeout_secs"`
		NetworkIdleMs   int    `yaml:"network_idle_ms"`
		ChromePath      string `yaml:"chrome_path"`
		ChromeNoSandbox bool   `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int    `yaml:"chrome_pool_size"`
		UserDataDir     string `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	Redis struct {
		Addr        string `yaml:"addr"`
		RateLimitDB int    `yaml:"rate_limit_db"`
	} `yaml:"redis"`

	RateLimiter struct {
		Interval           time.Duration `yaml:"interval"`
		UserLimit          int           `yaml:"user_limit"`
		EnableTokenLimiter bool          `yaml:"enable_token_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Enabled        bool           `yaml:"enabled"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
		Postgres       PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	Audit struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"audit"`
}

// Default returns the configuration used for values a file leaves unset.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":3000"
	cfg.Server.BodyLimitBytes = 1024 * 1024
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7
	cfg.Assets.Path = DefaultAssetsDir
	cfg.Assets.ServeStatic = true
	cfg.PDF.TimeoutSecs = 30
	cfg.PDF.NetworkIdleMs = 500
	cfg.PDF.ChromeNoSandbox = true
	cfg.RateLimiter.Interval = time.Minute
	cfg.Auth.ReloadInterval = time.Minute
	cfg.Auth.Postgres.Port = 5432
	return cfg
}

// Load reads the file named by CONFIG_PATH (default config.yaml).
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path, then applies environment
// overrides. It panics on unreadable files and invalid values.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("read config %s: %w", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Errorf("parse config %s: %w", path, err))
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("invalid config %s: %w", path, err))
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASSETS_PATH"); v != "" {
		cfg.Assets.Path = v
	}
	if cfg.Assets.Path == "" {
		cfg.Assets.Path = DefaultAssetsDir
	}
	if abs, err := filepath.Abs(cfg.Assets.Path); err == nil {
		cfg.Assets.Path = abs
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = ":" + strings.TrimPrefix(v, ":")
	}
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.PDF.TimeoutSecs <= 0 {
		return fmt.Errorf("pdf.timeout_secs must be positive")
	}
	if c.PDF.NetworkIdleMs < 0 {
		return fmt.Errorf("pdf.network_idle_ms must not be negative")
	}
	if c.PDF.ChromePoolSize < 0 {
		return fmt.Errorf("pdf.chrome_pool_size must not be negative")
	}
	if c.RateLimiter.Interval <= 0 {
		return fmt.Errorf("rate_limiter.interval must be positive")
	}
	if c.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if c.Auth.Enabled && c.Auth.ReloadInterval <= 0 {
		return fmt.Errorf("auth.reload_interval must be positive")
	}
	return nil
}

// PostgresEnabled reports whether any feature needs a database connection.
func (c Config) PostgresEnabled() bool {
	return c.Auth.Enabled || c.Audit.Enabled
}
