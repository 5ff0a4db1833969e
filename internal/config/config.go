package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the chatcore server.
type Config struct {
	Port      int
	Version   string
	Model     ModelConfig
	Agent     AgentConfig
	Tools     ToolsConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

// ModelConfig configures the model provider the gateway talks to.
type ModelConfig struct {
	// Kind selects the gateway driver: "openai" (any OpenAI-compatible
	// endpoint, including Ollama) or "anthropic".
	Kind     string
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// AgentConfig configures the executor loop.
type AgentConfig struct {
	SystemPrompt string
	MaxTurns     int
}

// ToolsConfig holds credentials and endpoints for the built-in tools.
type ToolsConfig struct {
	WeatherEndpoint string
	SearchEndpoint  string
	SearchAPIKey    string
	SearchEngineID  string
	CallTimeout     time.Duration
}

type DatabaseConfig struct {
	// URL enables the PostgreSQL checkpoint store when set;
	// empty means the in-memory store (single-process, non-durable).
	URL            string
	MaxConnections int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// DefaultSystemPrompt is the agent persona sent on every model call.
const DefaultSystemPrompt = "You are a helpful assistant that performs arithmetic operations and fetches weather data for cities. and do a web search, You are genious like Google search."

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("CHATCORE_PORT", 8080),
		Version: envStr("CHATCORE_VERSION", "0.1.0"),
		Model: ModelConfig{
			Kind:     envStr("MODEL_KIND", "openai"),
			Endpoint: envStr("MODEL_ENDPOINT", ""),
			Model:    envStr("MODEL_NAME", "gpt-4o-mini"),
			APIKey:   envStr("MODEL_API_KEY", ""),
			Timeout:  envDuration("MODEL_TIMEOUT", 120*time.Second),
		},
		Agent: AgentConfig{
			SystemPrompt: envStr("AGENT_SYSTEM_PROMPT", DefaultSystemPrompt),
			MaxTurns:     envInt("AGENT_MAX_TURNS", 10),
		},
		Tools: ToolsConfig{
			WeatherEndpoint: envStr("WEATHER_ENDPOINT", "https://wttr.in"),
			SearchEndpoint:  envStr("SEARCH_ENDPOINT", "https://www.googleapis.com/customsearch/v1"),
			SearchAPIKey:    envStr("GOOGLE_API_KEY", ""),
			SearchEngineID:  envStr("CX_ID", ""),
			CallTimeout:     envDuration("TOOL_CALL_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "chatcore"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
