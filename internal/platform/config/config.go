// Package config loads process configuration from the environment, after
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"orgstructure/pkg/platform/textutil"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	BlobFS = "fs"
	BlobS3 = "s3"

	devJWTSecret = "dev-secret-key-change-in-production"
)

// Config is the full process configuration.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Blob     BlobConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tree     TreeConfig
}

type ServerConfig struct {
	Addr               string        `env:"HTTP_ADDR" envDefault:":8080"`
	APIPrefix          string        `env:"API_PREFIX" envDefault:"/api/v1"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type DatabaseConfig struct {
	Driver          string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	TxTimeout       time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`
	// LoginRateLimit uses the limiter formatted notation, e.g. 10-M.
	LoginRateLimit string `env:"LOGIN_RATE_LIMIT" envDefault:"10-M"`
}

type BlobConfig struct {
	Driver        string        `env:"BLOB_DRIVER" envDefault:"fs"`
	Root          string        `env:"BLOB_ROOT" envDefault:"./data/uploads"`
	S3Bucket      string        `env:"S3_BUCKET"`
	S3Region      string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint    string        `env:"S3_ENDPOINT"`
	S3AccessKey   string        `env:"S3_ACCESS_KEY"`
	S3SecretKey   string        `env:"S3_SECRET_KEY"`
	SweepSchedule string        `env:"BLOB_SWEEP_SCHEDULE" envDefault:"@every 1h"`
	SweepGrace    time.Duration `env:"BLOB_SWEEP_GRACE" envDefault:"1h"`
}

// RedisConfig is optional; an empty URL disables the tree cache.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig is optional; no brokers disables the change feed.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"orgstructure.changes"`
}

type TreeConfig struct {
	MaxNodes int           `env:"MAX_TREE_NODES" envDefault:"10000"`
	CacheTTL time.Duration `env:"TREE_CACHE_TTL" envDefault:"5m"`
}

// Load reads .env files that exist, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Server.CORSAllowedOrigins = textutil.CleanList(cfg.Server.CORSAllowedOrigins, true)
	cfg.Kafka.Brokers = textutil.CleanList(cfg.Kafka.Brokers, false)
	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database section. Ops tooling uses it so it
// does not need the server's secrets.
func LoadDatabase(envFiles ...string) (DatabaseConfig, error) {
	var db DatabaseConfig
	if err := loadEnvFiles(envFiles); err != nil {
		return db, err
	}
	if err := env.Parse(&db); err != nil {
		return db, fmt.Errorf("parse environment: %w", err)
	}
	return db, nil
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver))
	}
	switch c.Blob.Driver {
	case BlobFS:
		if c.Blob.Root == "" {
			errs = append(errs, errors.New("BLOB_ROOT is required for the fs blob driver"))
		}
	case BlobS3:
		if c.Blob.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 blob driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	} else if !c.IsDevelopment() && c.Auth.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed outside development"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Tree.MaxNodes < 1 {
		errs = append(errs, errors.New("MAX_TREE_NODES must be positive"))
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		errs = append(errs, errors.New("API_PREFIX must start with /"))
	}
	return errors.Join(errs...)
}
