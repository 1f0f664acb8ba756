package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

// Shipment record backends.
const (
	RecordsBackendPostgres = "postgres"
	RecordsBackendDynamoDB = "dynamodb"
	RecordsBackendMemory   = "memory"
)

// Config carries environment-driven settings for the API, worker and purger processes.
type Config struct {
	Port              string
	AutoMigrate       bool
	RecordsBackend    string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	Location          *time.Location
	Carrier           CarrierConfig
	IdempotencyTTL    time.Duration
}

// CarrierConfig configures the carrier aggregator client.
type CarrierConfig struct {
	BaseURL       string
	APIKey        string
	RatePerMinute int
	MaxRetries    int
	SenderCompany string
	SenderZip     string
	SenderCountry string
}

// Enabled reports whether a carrier endpoint is configured.
func (c CarrierConfig) Enabled() bool {
	return c.BaseURL != ""
}

// LoadConfig loads an optional .env file, reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		AutoMigrate:       !isFalsy(os.Getenv("POSTGRES_AUTO_MIGRATE")),
		RecordsBackend:    strings.ToLower(envDefault("SHIPMENT_RECORDS_BACKEND", RecordsBackendPostgres)),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		Carrier: CarrierConfig{
			BaseURL:       strings.TrimSpace(os.Getenv("CARRIER_BASE_URL")),
			APIKey:        strings.TrimSpace(os.Getenv("CARRIER_API_KEY")),
			SenderCompany: strings.TrimSpace(os.Getenv("CARRIER_SENDER_COMPANY")),
			SenderZip:     strings.TrimSpace(os.Getenv("CARRIER_SENDER_ZIP")),
			SenderCountry: envDefault("CARRIER_SENDER_COUNTRY", "FR"),
		},
	}
	switch cfg.RecordsBackend {
	case RecordsBackendPostgres, RecordsBackendDynamoDB, RecordsBackendMemory:
	default:
		return Config{}, fmt.Errorf("SHIPMENT_RECORDS_BACKEND must be one of postgres, dynamodb, memory")
	}

	loc, err := time.LoadLocation(envDefault("BUSINESS_TIMEZONE", "Europe/Paris"))
	if err != nil {
		return Config{}, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Carrier.RatePerMinute, err = positiveInt("CARRIER_RATE_PER_MINUTE", 100); err != nil {
		return Config{}, err
	}
	if cfg.Carrier.MaxRetries, err = nonNegativeInt("CARRIER_MAX_RETRIES", 3); err != nil {
		return Config{}, err
	}
	hours, err := positiveInt("IDEMPOTENCY_TTL_HOURS", 72)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = time.Duration(hours) * time.Hour
	return cfg, nil
}

func positiveInt(key string, fallback int) (int, error) {
	n, err := nonNegativeInt(key, fallback)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func nonNegativeInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func isFalsy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "0" || value == "false" || value == "no"
}
