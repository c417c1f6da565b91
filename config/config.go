package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"accrual/database"

	"github.com/joho/godotenv"
)

// Event backends
const (
	EventBackendNATS  = "nats"
	EventBackendKafka = "kafka"
	EventBackendBus   = "bus"
	EventBackendNone  = "none"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Accrual scheduling
	AccrualHour int // Hour in UTC when the daily accrual check runs (0-23)

	// Event publishing
	EventBackend string // nats, kafka, bus or none
	NATSServers  string // NATS server addresses (comma-separated)
	KafkaBrokers []string

	// OpenTelemetry metrics
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // console, otlp or none
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string // json or text

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		AccrualHour: 2,

		EventBackend: getEnvWithDefault("EVENT_BACKEND", EventBackendNone),
		NATSServers:  getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		KafkaBrokers: splitList(getEnvWithDefault("KAFKA_BROKERS", "kafka:9092")),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "interest-accrual"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 60000,

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if hour := os.Getenv("ACCRUAL_HOUR"); hour != "" {
		parsed, err := strconv.Atoi(hour)
		if err != nil || parsed < 0 || parsed > 23 {
			return nil, fmt.Errorf("ACCRUAL_HOUR must be an hour between 0 and 23, got %q", hour)
		}
		config.AccrualHour = parsed
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		switch config.EventBackend {
		case EventBackendNATS, EventBackendKafka, EventBackendBus, EventBackendNone:
		default:
			return nil, fmt.Errorf("unknown EVENT_BACKEND %q", config.EventBackend)
		}
		if config.EventBackend == EventBackendKafka && len(config.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required when EVENT_BACKEND is kafka")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		AccrualHour:      2,
		EventBackend:     EventBackendNone,
		OTelServiceName:  "interest-accrual-test",
		OTelExporterType: "none",
		LogLevel:         "debug",
		LogFormat:        "text",
	}
}
