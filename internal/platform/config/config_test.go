package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, 168*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	assert.Equal(t, 10000, cfg.Tree.MaxNodes)
	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("STORAGE_DRIVER=memory\nKAFKA_BROKERS=a:9092, b:9092,a:9092\nMAX_TREE_NODES=50\n"), 0o600))
	t.Setenv("APP_ENV", "development")
	t.Cleanup(func() {
		_ = os.Unsetenv("STORAGE_DRIVER")
		_ = os.Unsetenv("KAFKA_BROKERS")
		_ = os.Unsetenv("MAX_TREE_NODES")
	})

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Tree.MaxNodes)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: EnvProduction,
			Server:      ServerConfig{APIPrefix: "/api/v1"},
			Database:    DatabaseConfig{Driver: StoragePostgres, URL: "postgres://x"},
			Auth:        AuthConfig{JWTSecret: "s3cret", AccessTokenTTL: time.Hour},
			Blob:        BlobConfig{Driver: BlobFS, Root: "/tmp"},
			Tree:        TreeConfig{MaxNodes: 10},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Database.URL = ""
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = base()
	cfg.Blob = BlobConfig{Driver: BlobS3}
	assert.ErrorContains(t, cfg.Validate(), "S3_BUCKET")

	cfg = base()
	cfg.Auth.JWTSecret = devJWTSecret
	assert.ErrorContains(t, cfg.Validate(), "must be changed")

	cfg = base()
	cfg.Auth.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET is required")
}

func TestLoadDatabaseSkipsServerSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://ops@localhost/org")

	db, err := LoadDatabase(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://ops@localhost/org", db.URL)
	assert.Equal(t, 20, db.MaxOpenConns)
}
