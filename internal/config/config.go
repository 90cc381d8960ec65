// Package config provides environment configuration for the call bridge.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Realtime provider settings
	OpenAIAPIKey        string
	RealtimeURL         string
	RealtimeModel       string
	RealtimeVoice       string
	RealtimeTemperature float64
	VADThreshold        float64
	VADPrefixPaddingMs  int
	VADSilenceMs        int
	SessionReadyTimeout time.Duration
	SessionReadyPoll    time.Duration

	// LLM settings for sub-agents
	AnthropicAPIKey string
	DefaultLLM      string
	RankerModel     string
	HaikuModel      string

	// Tool settings
	ToolTimeout time.Duration

	// Backend services
	UserServiceURL  string
	EventServiceURL string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Realtime provider
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		RealtimeURL:         getEnv("REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		RealtimeModel:       getEnv("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),
		RealtimeVoice:       getEnv("REALTIME_VOICE", "alloy"),
		RealtimeTemperature: getFloatEnv("REALTIME_TEMPERATURE", 0.8),
		VADThreshold:        getFloatEnv("VAD_THRESHOLD", 0.3),
		VADPrefixPaddingMs:  getIntEnv("VAD_PREFIX_PADDING_MS", 500),
		VADSilenceMs:        getIntEnv("VAD_SILENCE_DURATION_MS", 3000),
		SessionReadyTimeout: getDurationEnv("SESSION_READY_TIMEOUT", 5*time.Second),
		SessionReadyPoll:    getDurationEnv("SESSION_READY_POLL", 100*time.Millisecond),

		// Sub-agent LLMs
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),
		RankerModel:     getEnv("RANKER_MODEL", "gpt-4o-mini"),
		HaikuModel:      getEnv("HAIKU_MODEL", "gpt-4"),

		// Tools
		ToolTimeout: getDurationEnv("TOOL_TIMEOUT", 30*time.Second),

		// Backend services
		UserServiceURL:  getEnv("USER_SERVICE_URL", "http://localhost:8081"),
		EventServiceURL: getEnv("EVENT_SERVICE_URL", "http://localhost:8082"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
