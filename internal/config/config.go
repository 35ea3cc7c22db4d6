package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// Oracle drivers.
const (
	OracleSimulated = "simulated"
	OracleGenAI     = "genai"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Key-value store backend.
	StoreDriver      string
	StorePath        string
	StoreDSN         string
	StoreS3Bucket    string
	StoreS3Region    string
	StoreS3Endpoint  string
	StoreS3PathStyle bool
	StoreLatency     time.Duration

	// Analysis oracle.
	OracleDriver  string
	OracleLatency time.Duration
	GenAIAPIKey   string
	GenAIModel    string

	// Scheduled batch analysis; zero disables it.
	AnalyzeInterval time.Duration

	// Alert publishing.
	AlertsKafkaEnabled bool
	KafkaBrokers       []string
	KafkaAlertTopic    string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	storeLatency, err := parseDuration("STORE_LATENCY", "250ms", true)
	if err != nil {
		return nil, err
	}
	oracleLatency, err := parseDuration("ORACLE_LATENCY", "450ms", true)
	if err != nil {
		return nil, err
	}

	analyzeInterval, err := parseDuration("ANALYZE_INTERVAL", "0s", true)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	alertsEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("ALERTS_KAFKA_ENABLED"); v != "" {
		alertsEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreDriver:      strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		StorePath:        sharedcfg.EnvOrDefault("STORE_PATH", "data/wildfire.db"),
		StoreDSN:         sharedcfg.EnvOrDefault("STORE_DSN", "postgres://localhost/wildfire?sslmode=disable"),
		StoreS3Bucket:    os.Getenv("STORE_S3_BUCKET"),
		StoreS3Region:    sharedcfg.EnvOrDefault("STORE_S3_REGION", "us-east-1"),
		StoreS3Endpoint:  os.Getenv("STORE_S3_ENDPOINT"),
		StoreS3PathStyle: strings.EqualFold(os.Getenv("STORE_S3_PATH_STYLE"), "true"),
		StoreLatency:     storeLatency,

		OracleDriver:  strings.ToLower(sharedcfg.EnvOrDefault("ORACLE_DRIVER", OracleSimulated)),
		OracleLatency: oracleLatency,
		GenAIAPIKey:   os.Getenv("GENAI_API_KEY"),
		GenAIModel:    sharedcfg.EnvOrDefault("GENAI_MODEL", "gemini-2.5-flash"),

		AnalyzeInterval: analyzeInterval,

		AlertsKafkaEnabled: alertsEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "wildfire-alerts"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreFile, StoreSQLite, StorePostgres:
	case StoreS3:
		if c.StoreS3Bucket == "" {
			return errors.New("STORE_S3_BUCKET is required when STORE_DRIVER is s3")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.OracleDriver {
	case OracleSimulated:
	case OracleGenAI:
		if c.GenAIAPIKey == "" {
			return errors.New("ORACLE_DRIVER is genai but GENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("invalid ORACLE_DRIVER %q", c.OracleDriver)
	}

	if c.AlertsKafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when alert publishing is enabled")
		}
		if c.KafkaAlertTopic == "" {
			return errors.New("KAFKA_ALERT_TOPIC is required when alert publishing is enabled")
		}
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

// parseDuration reads a duration variable. Zero is accepted only when allowZero is set;
// negative values are always rejected.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
