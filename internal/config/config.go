package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Meta platform credentials. The verify tokens are matched against the
	// hub.verify_token query parameter during webhook subscription.
	GraphAPIBase         string
	FacebookPageID       string
	FacebookPageToken    string
	FacebookVerifyToken  string
	FacebookAppSecret    string
	InstagramAccountID   string
	InstagramAccessToken string
	InstagramVerifyToken string
	InstagramAppSecret   string

	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	VectorSearchURL    string
	VectorSearchAPIKey string
	WebSearchURL       string
	WebSearchAPIKey    string
	MediaAnalysisURL   string
	MediaAnalysisKey   string

	ClassifierTimeout   time.Duration
	SearchTimeout       time.Duration
	MemoryMessageLimit  int
	SiblingFetchLimit   int
	SiblingFetchDelay   time.Duration
	OutboundMaxAttempts int
	OutboundBaseDelay   time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GraphAPIBase:         getEnv("GRAPH_API_BASE", ""),
		FacebookPageID:       getEnv("FACEBOOK_PAGE_ID", ""),
		FacebookPageToken:    getEnv("FACEBOOK_PAGE_TOKEN", ""),
		FacebookVerifyToken:  getEnv("FACEBOOK_VERIFY_TOKEN", ""),
		FacebookAppSecret:    getEnv("FACEBOOK_APP_SECRET", ""),
		InstagramAccountID:   getEnv("INSTAGRAM_ACCOUNT_ID", ""),
		InstagramAccessToken: getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
		InstagramVerifyToken: getEnv("INSTAGRAM_VERIFY_TOKEN", ""),
		InstagramAppSecret:   getEnv("INSTAGRAM_APP_SECRET", ""),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		VectorSearchURL:    getEnv("VECTOR_SEARCH_URL", ""),
		VectorSearchAPIKey: getEnv("VECTOR_SEARCH_API_KEY", ""),
		WebSearchURL:       getEnv("WEB_SEARCH_URL", ""),
		WebSearchAPIKey:    getEnv("WEB_SEARCH_API_KEY", ""),
		MediaAnalysisURL:   getEnv("MEDIA_ANALYSIS_URL", ""),
		MediaAnalysisKey:   getEnv("MEDIA_ANALYSIS_API_KEY", ""),

		ClassifierTimeout:   getEnvAsDuration("CLASSIFIER_TIMEOUT", 8*time.Second),
		SearchTimeout:       getEnvAsDuration("SEARCH_TIMEOUT", 10*time.Second),
		MemoryMessageLimit:  getEnvAsInt("MEMORY_MESSAGE_LIMIT", 10),
		SiblingFetchLimit:   getEnvAsInt("SIBLING_FETCH_LIMIT", 3),
		SiblingFetchDelay:   getEnvAsDuration("SIBLING_FETCH_DELAY", 150*time.Millisecond),
		OutboundMaxAttempts: getEnvAsInt("OUTBOUND_MAX_ATTEMPTS", 3),
		OutboundBaseDelay:   getEnvAsDuration("OUTBOUND_BASE_DELAY", 250*time.Millisecond),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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
