package config

import (
	"fmt"
	"strings"
	"memorylane/utils"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MEMORYLANE"

type Config struct {
	BindAddress string `envconfig:"BIND_ADDRESS" default:"0.0.0.0:8080"`
	TLSDomains  string `envconfig:"TLS_DOMAINS" default:""` // e.g. "example.com,example2.com"
	DebugMode   bool   `envconfig:"DEBUG_MODE" default:"true"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	MySQLDSN   string `envconfig:"MYSQL_DSN" default:""`                // MySQL will be used if this is set
	SQLiteFile string `envconfig:"SQLITE_FILE" default:"memorylane.db"` // SQLite otherwise

	SessionKey    string `envconfig:"SESSION_KEY" default:""` // random per process when empty
	SessionCookie string `envconfig:"SESSION_COOKIE" default:"token"`
	SessionMaxAge int    `envconfig:"SESSION_MAX_AGE" default:"31536000"` // 1 year

	JWTSecret string        `envconfig:"JWT_SECRET" default:""` // bearer tokens are disabled when empty
	JWTExpire time.Duration `envconfig:"JWT_EXPIRE" default:"168h"`

	Storage

	UploadAttempts  int           `envconfig:"UPLOAD_ATTEMPTS" default:"3"`
	UploadBaseDelay time.Duration `envconfig:"UPLOAD_BASE_DELAY" default:"1s"`

	RedisAddr           string `envconfig:"REDIS_ADDR" default:""` // invalidation signals are only logged when empty
	RedisPassword       string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB             int    `envconfig:"REDIS_DB" default:"0"`
	InvalidationChannel string `envconfig:"INVALIDATION_CHANNEL" default:"memorylane:invalidate"`

	OrphanSweepSchedule string        `envconfig:"ORPHAN_SWEEP_SCHEDULE" default:"@every 6h"` // empty disables the sweep
	OrphanGrace         time.Duration `envconfig:"ORPHAN_GRACE" default:"24h"`

	SessionKeyGenerated bool `ignored:"true"` // SESSION_KEY was empty
}

// Storage selects and configures the object store for images
type Storage struct {
	Type     string `envconfig:"STORAGE_TYPE" default:"disk"` // disk, s3, minio or memory
	Path     string `envconfig:"STORAGE_PATH" default:"./data"` // directory for disk, key prefix otherwise
	Bucket   string `envconfig:"STORAGE_BUCKET" default:""`
	Region   string `envconfig:"STORAGE_REGION" default:"us-east-1"`
	Endpoint string `envconfig:"STORAGE_ENDPOINT" default:""`
	Key      string `envconfig:"STORAGE_KEY" default:""`
	Secret   string `envconfig:"STORAGE_SECRET" default:""`
	UseSSL   bool   `envconfig:"STORAGE_USE_SSL" default:"true"`
}

// Load reads an optional .env file and then the MEMORYLANE_ prefixed environment
func Load(envFiles ...string) (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = utils.Rand16BytesToBase62()
		cfg.SessionKeyGenerated = true
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "disk":
		if c.Storage.Path == "" {
			return fmt.Errorf("STORAGE_PATH is required for disk storage")
		}
	case "s3", "minio":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for %s storage", c.Storage.Type)
		}
		if c.Storage.Type == "minio" && c.Storage.Endpoint == "" {
			return fmt.Errorf("STORAGE_ENDPOINT is required for minio storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.Storage.Type)
	}
	if c.UploadAttempts < 1 {
		return fmt.Errorf("UPLOAD_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) TLSDomainList() []string {
	if c.TLSDomains == "" {
		return nil
	}
	return strings.Split(c.TLSDomains, ",")
}

func (c *Config) CORSOriginList() []string {
	return strings.Split(c.CORSOrigins, ",")
}
