package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment.
type Config struct {
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"news-verify.db"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"3001"`

	// External detection service
	ClassifierURL     string        `envconfig:"CLASSIFIER_URL" default:"http://localhost:5000"`
	ClassifierAPIKey  string        `envconfig:"CLASSIFIER_API_KEY"`
	ClassifierTimeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"10s"`

	// Empty key disables the admin routes.
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`

	StatsSchedule    string        `envconfig:"STATS_SCHEDULE" default:"*/5 * * * *"`
	RegistryCacheTTL time.Duration `envconfig:"REGISTRY_CACHE_TTL" default:"30s"`

	// Optional S3 storage for submitted images
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key         string `envconfig:"S3_KEY"`
	S3Secret      string `envconfig:"S3_SECRET"`
	S3Bucket      string `envconfig:"S3_BUCKET"`
	ImageMaxBytes int64  `envconfig:"IMAGE_MAX_BYTES" default:"5242880"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// ImagesEnabled reports whether an S3 bucket is configured for image uploads.
func (c *Config) ImagesEnabled() bool {
	return c.S3Bucket != "" && c.S3Key != "" && c.S3Secret != ""
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return errors.New("postgres driver requires DB_HOST, DB_USER and DB_NAME")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("sqlite driver requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ClassifierTimeout <= 0 {
		return errors.New("CLASSIFIER_TIMEOUT must be positive")
	}
	if c.ImageMaxBytes <= 0 {
		return errors.New("IMAGE_MAX_BYTES must be positive")
	}
	return nil
}

// Load reads the configuration from the environment, honouring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
