package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"

	BackendSupabase = "supabase"
	BackendDynamoDB = "dynamodb"
	BackendNone     = "none"

	// MaxCompletionTokens bounds COMPLETION_MAX_TOKENS so it fits every
	// provider's 32-bit token field.
	MaxCompletionTokens = 1 << 20
)

// Config holds application configuration. It is read once at startup and
// passed to constructors; nothing reads the environment afterwards.
type Config struct {
	Port        string
	LogLevel    string
	ServiceName string
	IndexFile   string

	CompletionProvider    string
	OpenAIAPIKey          string
	OpenAIAPIKeyParam     string
	OpenAIBaseURL         string
	OpenAIModel           string
	BedrockModelID        string
	CompletionMaxTokens   int
	CompletionTemperature float64
	CompletionTimeout     time.Duration

	PersistenceBackend string
	SupabaseURL        string
	SupabaseKey        string
	SupabaseTable      string
	DynamoDBTable      string
	PersistTimeout     time.Duration

	AWSRegion string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServiceName: getEnv("SERVICE_NAME", "Travel Santa Marta AI Assistant"),
		IndexFile:   getEnv("INDEX_FILE", "index.html"),

		CompletionProvider:    strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_PROVIDER", ProviderOpenAI))),
		OpenAIAPIKey:          strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		OpenAIAPIKeyParam:     strings.TrimSpace(getEnv("OPENAI_API_KEY_PARAM", "")),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4"),
		BedrockModelID:        strings.TrimSpace(getEnv("BEDROCK_MODEL_ID", "")),
		CompletionMaxTokens:   getEnvAsInt("COMPLETION_MAX_TOKENS", 500),
		CompletionTemperature: getEnvAsFloat("COMPLETION_TEMPERATURE", 0.7),
		CompletionTimeout:     getEnvAsDuration("COMPLETION_TIMEOUT", 20*time.Second),

		PersistenceBackend: strings.ToLower(strings.TrimSpace(getEnv("PERSISTENCE_BACKEND", BackendSupabase))),
		SupabaseURL:        strings.TrimRight(strings.TrimSpace(getEnv("SUPABASE_URL", "")), "/"),
		SupabaseKey:        strings.TrimSpace(getEnv("SUPABASE_KEY", "")),
		SupabaseTable:      getEnv("SUPABASE_TABLE", "conversations"),
		DynamoDBTable:      strings.TrimSpace(getEnv("DYNAMODB_TABLE", "")),
		PersistTimeout:     getEnvAsDuration("PERSIST_TIMEOUT", 5*time.Second),

		AWSRegion: getEnv("AWS_REGION", ""),
	}
}

// Validate rejects values that cannot be wired. Missing credentials are not
// errors: they select fallback mode or the no-op store.
func (c *Config) Validate() error {
	switch c.CompletionProvider {
	case ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("config: unsupported COMPLETION_PROVIDER %q", c.CompletionProvider)
	}
	switch c.PersistenceBackend {
	case BackendSupabase, BackendDynamoDB, BackendNone:
	default:
		return fmt.Errorf("config: unsupported PERSISTENCE_BACKEND %q", c.PersistenceBackend)
	}
	if c.CompletionMaxTokens <= 0 || c.CompletionMaxTokens > MaxCompletionTokens {
		return fmt.Errorf("config: COMPLETION_MAX_TOKENS must be within [1, %d], got %d", MaxCompletionTokens, c.CompletionMaxTokens)
	}
	if c.CompletionTemperature < 0 || c.CompletionTemperature > 2 {
		return fmt.Errorf("config: COMPLETION_TEMPERATURE must be within [0, 2], got %v", c.CompletionTemperature)
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.CompletionProvider == ProviderBedrock ||
		c.PersistenceBackend == BackendDynamoDB ||
		(c.CompletionProvider == ProviderOpenAI && c.OpenAIAPIKey == "" && c.OpenAIAPIKeyParam != "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
