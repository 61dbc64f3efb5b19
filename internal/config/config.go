// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RedisConfig holds the connection settings for the history store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds broker addresses and the consumer group prefix.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// GenAIConfig holds the settings for the generative quoting backend.
type GenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// QuoteConfig holds the tunables of the quoting workflow.
type QuoteConfig struct {
	// MinimumFare is the price floor in BRL applied to every quote.
	MinimumFare float64
	// WhatsAppNumber receives the outbound order summary deep link.
	WhatsAppNumber string
	// GeocodeQuietPeriod is how long address typing must pause before a
	// background geocode batch is issued.
	GeocodeQuietPeriod time.Duration
}

// ServiceConfig holds all configuration for the quote service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	RedisConfig RedisConfig
	KafkaConfig KafkaConfig
	GenAIConfig GenAIConfig
	QuoteConfig QuoteConfig
}

// Load reads configuration from a .env file (when present) and the
// environment, with the QUOTE_ prefix.
func Load() (*ServiceConfig, error) {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service_port", ":8083")
	v.SetDefault("app_env", "development")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "deliverymaster.")
	v.SetDefault("genai_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("genai_model", "gemini-2.5-flash")
	v.SetDefault("genai_timeout", "30s")
	v.SetDefault("minimum_fare", 6.00)
	v.SetDefault("whatsapp_number", "5585987789135")
	v.SetDefault("geocode_quiet_period", "1s")

	if !v.IsSet("genai_api_key") {
		return nil, fmt.Errorf("QUOTE_GENAI_API_KEY is required")
	}

	port := v.GetString("service_port")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("app_env"),
		RedisConfig: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("kafka_brokers"), ","),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		GenAIConfig: GenAIConfig{
			BaseURL: v.GetString("genai_base_url"),
			APIKey:  v.GetString("genai_api_key"),
			Model:   v.GetString("genai_model"),
			Timeout: v.GetDuration("genai_timeout"),
		},
		QuoteConfig: QuoteConfig{
			MinimumFare:        v.GetFloat64("minimum_fare"),
			WhatsAppNumber:     v.GetString("whatsapp_number"),
			GeocodeQuietPeriod: v.GetDuration("geocode_quiet_period"),
		},
	}, nil
}
