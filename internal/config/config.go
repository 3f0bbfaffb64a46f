// Package config provides environment configuration for the analytics service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Event source settings
	EventSource string
	DatasetPath string

	// ClickHouse settings
	ClickHouseHost     string
	ClickHousePort     string
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseTable    string

	// Artifact settings
	ArtifactStore string
	OutputDir     string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	AuthEnabled bool
	JWTSecret   string

	// LLM settings
	GeminiAPIKeys   []string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiModel     string
	OpenAIModel     string
	AnthropicModel  string
	LLMTemperature  float64
	LLMMaxTokens    int

	// Pipeline settings
	RateLimitBackoff   time.Duration
	AgentMaxIterations int
	TaskConcurrency    int
	AnalysisConfigPath string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Event source
		EventSource: getEnv("EVENT_SOURCE", "csv"),
		DatasetPath: getEnv("DATASET_PATH", "data/events.csv"),

		// ClickHouse
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnv("CLICKHOUSE_NATIVE_PORT", "9000"),
		ClickHouseDB:       getEnv("CLICKHOUSE_DB_NAME", "default"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickHouseTable:    getEnv("CLICKHOUSE_TABLE", "events"),

		// Artifacts
		ArtifactStore: getEnv("ARTIFACT_STORE", "file"),
		OutputDir:     getEnv("OUTPUT_DIR", "outputs"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		AuthEnabled: getBoolEnv("AUTH_ENABLED", false),
		JWTSecret:   getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		GeminiAPIKeys:   getKeysEnv("GEMINI_API_KEY", "GEMINI_API_KEY_2"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		LLMTemperature:  getFloatEnv("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:    getIntEnv("LLM_MAX_TOKENS", 4000),

		// Pipeline
		RateLimitBackoff:   getDurationEnv("RATE_LIMIT_BACKOFF", 2*time.Second),
		AgentMaxIterations: getIntEnv("AGENT_MAX_ITERATIONS", 5),
		TaskConcurrency:    getIntEnv("TASK_CONCURRENCY", 0),
		AnalysisConfigPath: getEnv("ANALYSIS_CONFIG", ""),

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

// getKeysEnv collects the non-empty, distinct values of keys in order.
func getKeysEnv(keys ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
