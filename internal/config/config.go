package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	// URL selects the backend by scheme: sqlite, redis, postgres or memory.
	URL string `yaml:"url"`
	// Origin namespaces the stored keys so several storefronts can share a backend.
	Origin string `yaml:"origin"`
}

type CheckoutConfig struct {
	TaxRate  float64 `yaml:"tax_rate"`
	Currency string  `yaml:"currency"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	MetricsAddr  string `yaml:"metrics_addr"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			URL:    "sqlite://storefront.db",
			Origin: "localhost",
		},
		Checkout: CheckoutConfig{
			TaxRate:  0.08,
			Currency: "USD",
		},
		Kafka: KafkaConfig{
			Topic:   "cart.updated",
			GroupID: "cartwatch",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			MetricsAddr:  ":9464",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// STOREFRONT_CONFIG and the environment, in that order of precedence.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.API.BaseURL = getEnv("STOREFRONT_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("STOREFRONT_API_TIMEOUT", cfg.API.Timeout)
	cfg.Storage.URL = getEnv("STOREFRONT_STORAGE_URL", cfg.Storage.URL)
	cfg.Storage.Origin = getEnv("STOREFRONT_ORIGIN", cfg.Storage.Origin)
	cfg.Checkout.TaxRate = getEnvFloat("STOREFRONT_TAX_RATE", cfg.Checkout.TaxRate)
	cfg.Checkout.Currency = getEnv("STOREFRONT_CURRENCY", cfg.Checkout.Currency)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.MetricsAddr = getEnv("METRICS_ADDR", cfg.Telemetry.MetricsAddr)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Storage.URL == "" {
		return fmt.Errorf("storage url is required")
	}
	if c.Checkout.TaxRate < 0 || c.Checkout.TaxRate >= 1 {
		return fmt.Errorf("tax rate must be in [0, 1), got %v", c.Checkout.TaxRate)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		fmt.Printf("Warning: invalid number for %s, using default\n", key)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Printf("Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}
