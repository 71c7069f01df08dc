package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("SUKL_PERIOD", "2025.07")
	os.Setenv("SUKL_WORKERS", "4")
	defer os.Unsetenv("DB_MAX_OPEN_CONNS")
	defer os.Unsetenv("SUKL_PERIOD")
	defer os.Unsetenv("SUKL_WORKERS")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "2025.07", cfg.Run.Period)
	assert.Equal(t, "spc", cfg.Run.DocType)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, "https://prehledy.sukl.cz/dlp/v1", cfg.SUKL.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Database: DatabaseConfig{Host: "h", Port: "5432", User: "u", Name: "db"},
			SUKL: SUKLConfig{
				BaseURL:    "https://prehledy.sukl.cz/dlp/v1",
				MaxRetries: 3,
				PageSize:   1000,
			},
			Run: RunConfig{Period: "2025.07", DocType: "spc", Workers: 1},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing database host", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("malformed period", func(t *testing.T) {
		for _, p := range []string{"", "2025-07", "25.07", "2025.7", "2025.07.01"} {
			cfg := valid()
			cfg.Run.Period = p
			assert.Error(t, cfg.Validate(), "period %q should be rejected", p)
		}
	})

	t.Run("missing doc type", func(t *testing.T) {
		cfg := valid()
		cfg.Run.DocType = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative item limit", func(t *testing.T) {
		cfg := valid()
		cfg.Run.ItemLimit = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero workers", func(t *testing.T) {
		cfg := valid()
		cfg.Run.Workers = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("minio endpoint without credentials", func(t *testing.T) {
		cfg := valid()
		cfg.MinIO.Endpoint = "localhost:9000"
		assert.Error(t, cfg.Validate())

		cfg.MinIO.AccessKey = "ak"
		cfg.MinIO.SecretKey = "sk"
		cfg.MinIO.Bucket = "pdfs"
		assert.NoError(t, cfg.Validate())
	})
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
