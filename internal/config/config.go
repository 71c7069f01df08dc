package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for optional PDF archival.
// Archival is enabled only when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SUKLConfig holds settings for the upstream SUKL registry API client.
type SUKLConfig struct {
	BaseURL            string
	TimeoutSec         int
	DownloadTimeoutSec int
	MaxRetries         int
	RetryBaseMS        int
	RateIntervalMS     int
	MaxPDFBytes        int64
	PageSize           int
}

// RunConfig holds per-run pipeline settings.
type RunConfig struct {
	Period    string // reporting period, e.g. "2025.07"
	DocType   string // document type filter, e.g. "spc"
	ItemLimit int    // 0 means no cap
	Workers   int    // 1 means sequential
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	OpsAddr  string // address for the health/metrics server; empty disables it
	Database DatabaseConfig
	MinIO    MinIOConfig
	SUKL     SUKLConfig
	Run      RunConfig
}

var periodRe = regexp.MustCompile(`^\d{4}\.\d{2}$`)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		OpsAddr: getEnv("OPS_ADDR", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		SUKL: SUKLConfig{
			BaseURL:            getEnv("SUKL_BASE_URL", "https://prehledy.sukl.cz/dlp/v1"),
			TimeoutSec:         getEnvInt("SUKL_TIMEOUT_SEC", 30),
			DownloadTimeoutSec: getEnvInt("SUKL_DOWNLOAD_TIMEOUT_SEC", 60),
			MaxRetries:         getEnvInt("SUKL_MAX_RETRIES", 3),
			RetryBaseMS:        getEnvInt("SUKL_RETRY_BASE_MS", 500),
			RateIntervalMS:     getEnvInt("SUKL_RATE_INTERVAL_MS", 1000),
			MaxPDFBytes:        int64(getEnvInt("SUKL_MAX_PDF_BYTES", 50<<20)),
			PageSize:           getEnvInt("SUKL_PAGE_SIZE", 1000),
		},
		Run: RunConfig{
			Period:    getEnv("SUKL_PERIOD", ""),
			DocType:   getEnv("SUKL_DOC_TYPE", "spc"),
			ItemLimit: getEnvInt("SUKL_ITEM_LIMIT", 0),
			Workers:   getEnvInt("SUKL_WORKERS", 1),
		},
	}
}

// Validate checks the invariants the pipeline depends on before any network
// or storage activity happens. Violations are fatal at startup.
func (c *AppConfig) Validate() error {
	if c.Database.Host == "" || c.Database.Port == "" || c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("invalid database config: host, port, user, and name are required")
	}
	if !periodRe.MatchString(c.Run.Period) {
		return fmt.Errorf("invalid period %q: expected YYYY.MM", c.Run.Period)
	}
	if c.Run.DocType == "" {
		return fmt.Errorf("document type is required")
	}
	if c.Run.ItemLimit < 0 {
		return fmt.Errorf("item limit must not be negative")
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.SUKL.BaseURL == "" {
		return fmt.Errorf("sukl base url is required")
	}
	if c.SUKL.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.SUKL.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1")
	}
	if c.MinIO.Endpoint != "" {
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("minio archival enabled but credentials or bucket missing")
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
