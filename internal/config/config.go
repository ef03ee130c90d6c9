package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig `envPrefix:"DB_"`
	Logger   LoggerConfig   `envPrefix:"LOG_"`
	Auth     AuthConfig
	Storage  StorageConfig
	S3       S3Config `envPrefix:"S3_"`
	Issuance IssuanceConfig
	Redis    RedisConfig `envPrefix:"REDIS_"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `env:"HOST"              envDefault:"localhost"`
	Port            int    `env:"PORT"              envDefault:"5432"`
	User            string `env:"USER"              envDefault:"postgres"`
	Password        string `env:"PASSWORD"`
	Database        string `env:"NAME"              envDefault:"couponadmin"`
	MaxConnections  int    `env:"MAX_CONNECTIONS"   envDefault:"25"`
	MinConnections  int    `env:"MIN_CONNECTIONS"   envDefault:"5"`
	MaxConnLifetime int    `env:"MAX_CONN_LIFETIME" envDefault:"300"` // seconds
	// MigrateOnStart applies the embedded schema during startup.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string `env:"API_KEY"`
	// Operators are created at startup when missing.
	Operators []string `env:"OPERATORS" envSeparator:","`
}

// StorageConfig selects where uploaded files are kept.
type StorageConfig struct {
	Driver   string `env:"STORAGE_DRIVER"    envDefault:"local"`
	LocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"data"`
	// LocalFallback makes the S3 driver read files missing from the bucket from LocalDir.
	LocalFallback bool `env:"STORAGE_LOCAL_FALLBACK" envDefault:"false"`
}

// S3Config holds AWS S3 configuration for uploaded files.
type S3Config struct {
	Bucket   string `env:"BUCKET"`
	Region   string `env:"REGION"   envDefault:"us-east-1"`
	Prefix   string `env:"PREFIX"` // Key prefix within bucket (e.g., "coupon-admin/")
	Endpoint string `env:"ENDPOINT"`
}

// IssuanceConfig tunes background job processing.
type IssuanceConfig struct {
	Workers        int           `env:"ISSUANCE_WORKERS"         envDefault:"4"`
	QueueSize      int           `env:"ISSUANCE_QUEUE_SIZE"      envDefault:"100"`
	BatchSize      int           `env:"ISSUANCE_BATCH_SIZE"      envDefault:"1000"`
	CouponValidity time.Duration `env:"ISSUANCE_COUPON_VALIDITY" envDefault:"720h"`
	// RunTimeout bounds a single job run; zero disables it.
	RunTimeout    time.Duration `env:"JOB_RUN_TIMEOUT"          envDefault:"0s"`
	ResumeOnStart bool          `env:"ISSUANCE_RESUME_ON_START" envDefault:"true"`
}

// RedisConfig holds the optional Redis run-lock configuration.
type RedisConfig struct {
	Enabled  bool          `env:"ENABLED"  envDefault:"false"`
	Addr     string        `env:"ADDR"     envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB"       envDefault:"0"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"15m"`
}

// Load loads configuration from environment variables, reading a .env file
// from the working directory first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local dir is required for the local driver")
		}
	case StorageDriverS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when the storage driver is s3")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when the storage driver is s3")
		}
		if c.Storage.LocalFallback && c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local dir is required for the local fallback")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be local or s3)", c.Storage.Driver)
	}

	if c.Issuance.Workers < 1 {
		return fmt.Errorf("issuance workers must be at least 1")
	}

	if c.Issuance.QueueSize < 1 {
		return fmt.Errorf("issuance queue size must be at least 1")
	}

	if c.Issuance.BatchSize < 1 {
		return fmt.Errorf("issuance batch size must be at least 1")
	}

	if c.Issuance.CouponValidity <= 0 {
		return fmt.Errorf("coupon validity must be positive")
	}

	if c.Issuance.RunTimeout < 0 {
		return fmt.Errorf("job run timeout cannot be negative")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required when redis is enabled")
		}
		if c.Redis.LockTTL <= 0 {
			return fmt.Errorf("redis lock TTL must be positive")
		}
		if c.Issuance.RunTimeout > 0 && c.Redis.LockTTL < c.Issuance.RunTimeout {
			return fmt.Errorf("redis lock TTL must not be shorter than the job run timeout")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
