package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string        `env:"APP_NAME" env-default:"fern"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs         bool          `env:"PRETTY_LOGS" env-default:"false"`
	StartupMaxAttempts int           `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" validate:"min=1"`
	StartupRetryUnit   time.Duration `env:"STARTUP_RETRY_UNIT" env-default:"1s"`

	// Data directories
	RawDir          string `env:"DATA_RAW_DIR" env-default:"data/raw" validate:"required"`
	StagingDir      string `env:"DATA_STAGING_DIR" env-default:"data/staging" validate:"required"`
	IntermediateDir string `env:"DATA_INTERMEDIATE_DIR" env-default:"data/intermediate" validate:"required"`
	OutputDir       string `env:"OUTPUT_DIR" env-default:"output" validate:"required"`
	// Prometheus textfile written after each run; empty disables it
	MetricsTextfile string `env:"METRICS_TEXTFILE" env-default:"output/metrics.prom"`

	// Sources
	LicenceURL    string `env:"ST1_URL" env-default:"https://www2.aer.ca/t/Production/views/COM-WellLicenceAllList/WellLicenceAllAB.csv" validate:"url"`
	StatusURL     string `env:"ST37_URL" env-default:"https://static.aer.ca/prd/data/wells/ST37.zip" validate:"url"`
	ProductionURL string `env:"PETRINEX_URL" env-default:"https://www.petrinex.gov.ab.ca/publicdata/API/Files/AB/Vol/{month}/CSV" validate:"required"`
	// Production month as YYYY-MM; empty means the previous calendar month
	PetrinexMonth string `env:"PETRINEX_MONTH" env-default:"" validate:"omitempty,datetime=2006-01"`
	// Optional YAML file overriding dataset URLs and file names
	DatasetManifest string `env:"DATASET_MANIFEST" env-default:""`

	// HTTP fetch
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" env-default:"60s"`
	FetchMaxAttempts int           `env:"FETCH_MAX_ATTEMPTS" env-default:"3" validate:"min=1"`
	FetchRetryUnit   time.Duration `env:"FETCH_RETRY_UNIT" env-default:"2s"`
	FetchUserAgent   string        `env:"FETCH_USER_AGENT" env-default:"fern/1.0"`

	// Postgres snapshot sink
	DatabaseEnabled         bool          `env:"DB_ENABLED" env-default:"false"`
	DatabaseHost            string        `env:"DB_HOST" env-default:"localhost" validate:"required_if=DatabaseEnabled true"`
	DatabasePort            int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName        string        `env:"DB_USER_NAME" env-default:"postgres"`
	DatabasePassword        string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName            string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode         string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseMigrateOnRun    bool          `env:"DB_MIGRATE_ON_RUN" env-default:"true"`
	DatabaseMigrationForce  int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis run lock
	RedisEnabled  bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	RunLockTTL    time.Duration `env:"RUN_LOCK_TTL" env-default:"2m"`

	// Kafka well events
	KafkaEnabled      bool          `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      string        `env:"KAFKA_BROKERS" env-default:"localhost:9092" validate:"required_if=KafkaEnabled true"`
	KafkaTopic        string        `env:"KAFKA_TOPIC" env-default:"fern.wells"`
	KafkaBatchSize    int           `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"1s"`
	KafkaCompression  string        `env:"KAFKA_COMPRESSION" env-default:"snappy" validate:"oneof=snappy gzip lz4 zstd none"`

	// Graph sink
	GraphEnabled  bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphHost     string `env:"GRAPH_HOST" env-default:"localhost"`
	GraphPort     int    `env:"GRAPH_PORT" env-default:"7687"`
	GraphUsername string `env:"GRAPH_USERNAME" env-default:""`
	GraphPassword string `env:"GRAPH_PASSWORD" env-default:""`

	// GCS upload of run outputs
	GCSEnabled         bool   `env:"GCS_ENABLED" env-default:"false"`
	GCSBucket          string `env:"GCS_BUCKET" env-default:"" validate:"required_if=GCSEnabled true"`
	GCSPrefix          string `env:"GCS_PREFIX" env-default:"fern/runs"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE" env-default:""`

	// Tracing
	OTLPEnabled     bool    `env:"OTLP_ENABLED" env-default:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol    string  `env:"OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OTLPInsecure    bool    `env:"OTLP_INSECURE" env-default:"true"`
	OTLPSampleRatio float64 `env:"OTLP_SAMPLE_RATIO" env-default:"1" validate:"gte=0,lte=1"`

	// HTTP server
	Port                          int      `env:"PORT" env-default:"3000"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	// Auth Enabled - when false the API is open
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:"" validate:"required_if=AuthEnabled true"`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:"" validate:"required_if=AuthEnabled true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional .env file, then the environment, and validates the
// result. Variables already set win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ProductionMonth returns PetrinexMonth, or the month before now.
func (c *Config) ProductionMonth(now time.Time) string {
	if c.PetrinexMonth != "" {
		return c.PetrinexMonth
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format("2006-01")
}

// Brokers splits KafkaBrokers on commas.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
