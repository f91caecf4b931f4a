package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Service configuration
	ServiceName    string
	LogLevel       string
	LogDevelopment bool
	RequestTimeout time.Duration
	MetricsAddr    string

	// NATS configuration
	NatsURL            string
	NatsRequestSubject string
	NatsTimeout        time.Duration

	// Anthropic configuration
	AnthropicAPIKey        string
	AnthropicModel         string
	AnthropicFallbackModel string
	AnthropicTimeout       time.Duration

	// OpenAI configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Event store configuration
	EventsAPIURL     string
	EventsAPITimeout time.Duration

	// Location store configuration
	RedisURL    string
	LocationTTL time.Duration

	// Geo configuration
	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	LandmarksFile     string
	LandmarkRadiusKm  float64

	// Call gateway configuration
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioPhoneNumber    string
	EmergencyPhoneNumber string
	GatewayTimeout       time.Duration

	// Email gateway configuration
	ResendAPIKey   string
	AlertEmailFrom string
	AlertEmailTo   []string

	// Matching
	MatchThreshold float64
}

func Load() (*Config, error) {
	cfg := &Config{
		// Service settings
		ServiceName:    getEnv("SERVICE_NAME", "community-intent"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: getBoolEnv("LOG_DEVELOPMENT", false),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 45*time.Second),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),

		// NATS settings
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "assistant.command"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Anthropic settings
		AnthropicAPIKey:        getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:         getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		AnthropicFallbackModel: getEnv("ANTHROPIC_FALLBACK_MODEL", "claude-3-5-haiku-20241022"),
		AnthropicTimeout:       getDurationEnv("ANTHROPIC_TIMEOUT", 8*time.Second),

		// OpenAI settings
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// Event store settings
		EventsAPIURL:     strings.TrimRight(getEnv("EVENTS_API_URL", "http://localhost:8000/api/events"), "/"),
		EventsAPITimeout: getDurationEnv("EVENTS_API_TIMEOUT", 10*time.Second),

		// Location store settings
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LocationTTL: getDurationEnv("LOCATION_TTL", 24*time.Hour),

		// Geo settings
		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "community-intent/1.0"),
		GeocoderTimeout:   getDurationEnv("GEOCODER_TIMEOUT", 5*time.Second),
		LandmarksFile:     getEnv("LANDMARKS_FILE", ""),
		LandmarkRadiusKm:  getFloatEnv("LANDMARK_RADIUS_KM", 5),

		// Call gateway settings
		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:    getEnv("TWILIO_PHONE_NUMBER", ""),
		EmergencyPhoneNumber: getEnv("EMERGENCY_PHONE_NUMBER", ""),
		GatewayTimeout:       getDurationEnv("GATEWAY_TIMEOUT", 10*time.Second),

		// Email gateway settings
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		AlertEmailFrom: getEnv("ALERT_EMAIL_FROM", ""),
		AlertEmailTo:   getListEnv("ALERT_EMAIL_TO"),

		MatchThreshold: getFloatEnv("MATCH_THRESHOLD", 0.6),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a request
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY or OPENAI_API_KEY is required")
	}
	if c.NatsRequestSubject == "" {
		return fmt.Errorf("NATS_REQUEST_SUBJECT must not be empty")
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0,1], got %v", c.MatchThreshold)
	}
	if c.LandmarkRadiusKm <= 0 {
		return fmt.Errorf("LANDMARK_RADIUS_KM must be positive, got %v", c.LandmarkRadiusKm)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// TwilioConfigured reports whether emergency calls can be placed
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioPhoneNumber != "" && c.EmergencyPhoneNumber != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
