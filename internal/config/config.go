package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries everything the pipeline needs. It is built once in main and
// passed down explicitly; nothing reads the environment after Load returns.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8000"`

	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	CatalogCollection   string `env:"CATALOG_COLLECTION" envDefault:"restaurants"`
	ImportLogCollection string `env:"IMPORT_LOG_COLLECTION" envDefault:"import_logs"`

	BackupsDir string `env:"BACKUPS_DIR" envDefault:"backups"`
	LogsDir    string `env:"LOGS_DIR" envDefault:"logs"`
	UploadsDir string `env:"UPLOADS_DIR" envDefault:"uploads"`

	BatchSize int  `env:"BATCH_SIZE" envDefault:"400"`
	DedupeIDs bool `env:"DEDUPE_IDS" envDefault:"false"`

	GeocoderBaseURL   string `env:"GEOCODER_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"butter-gestion-import/1.0"`

	JWTSecret string `env:"JWT_SECRET"`

	// Optional offsite copy of snapshot artifacts (Cloudflare R2).
	R2Endpoint   string `env:"R2_ENDPOINT"`
	R2AccessKey  string `env:"R2_ACCESS_KEY"`
	R2SecretKey  string `env:"R2_SECRET_KEY"`
	R2BucketName string `env:"R2_BUCKET_NAME"`
}

// Load reads .env outside production, then parses the environment into Config.
func Load() (Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.FirestoreProjectID == "" {
		return Config{}, fmt.Errorf("FIRESTORE_PROJECT_ID is not set")
	}

	return cfg, nil
}

// R2Enabled reports whether offsite snapshot copies are configured.
func (c Config) R2Enabled() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2BucketName != ""
}
