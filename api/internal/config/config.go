package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiVisionModel string

	SerperAPIKey string
	DatabaseURL  string

	EmbedBaseURL string
	EmbedAPIKey  string
	EmbedModel   string

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	RangesFile string

	// Telegram front end; empty token disables the bot.
	TelegramBotToken string
	WebhookURL       string

	ExtractMaxAttempts    int
	ExtractRetryTransient bool
	SearchResultCount     int
	ChunkMaxTokens        int
	RetrievalTopK         int
	BranchTimeout         time.Duration
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring invalid %s=%q", k, v)
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("ignoring invalid %s=%q", k, v)
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8001"),

		GeminiAPIKey:      mustEnv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),

		SerperAPIKey: mustEnv("SERPER_API_KEY"),
		DatabaseURL:  mustEnv("DATABASE_URL"),

		EmbedBaseURL: getEnv("EMBED_BASE_URL", "https://api.openai.com/v1"),
		EmbedAPIKey:  getEnv("EMBED_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-3-small"),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "medical-data"),

		RangesFile: getEnv("RANGES_FILE", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		ExtractMaxAttempts:    getEnvInt("EXTRACT_MAX_ATTEMPTS", 3),
		ExtractRetryTransient: getEnvBool("EXTRACT_RETRY_TRANSIENT", false),
		SearchResultCount:     getEnvInt("SEARCH_RESULT_COUNT", 2),
		ChunkMaxTokens:        getEnvInt("CHUNK_MAX_TOKENS", 4500),
		RetrievalTopK:         getEnvInt("RETRIEVAL_TOP_K", 5),
		BranchTimeout:         time.Duration(getEnvInt("BRANCH_TIMEOUT_SEC", 120)) * time.Second,
	}
}
