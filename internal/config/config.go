package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/marketplace-card-bot/internal/models"
)

// Load loads configuration for the given provider from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load(provider models.ProviderKind) (*models.BotConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := &models.BotConfig{
		Provider: provider,

		// Telegram settings
		TelegramToken: getEnv("TELEGRAM_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", "")),

		// OpenAI settings
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeout: getEnvInt("OPENAI_TIMEOUT", 120),

		// Assistants API settings
		AssistantID:             getEnv("ASSISTANT_ID", ""),
		AssistantPollIntervalMs: getEnvInt("ASSISTANT_POLL_INTERVAL_MS", 1000),
		AssistantRunTimeout:     getEnvInt("ASSISTANT_RUN_TIMEOUT", 300),

		// Gemini settings
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: getEnvInt("GEMINI_TIMEOUT", 180),

		// Context artifact
		ContextFile:            getEnv("CONTEXT_FILE", "data/context.pdf"),
		ContextRefreshSchedule: getEnv("CONTEXT_REFRESH_SCHEDULE", "0 3 * * *"),

		// Langfuse settings
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", ""),

		// Supabase settings
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseTimeout: getEnvInt("SUPABASE_TIMEOUT", 10),

		// App settings
		Timezone:     getEnv("TIMEZONE", "Europe/Moscow"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Environment:  getEnv("ENVIRONMENT", "production"),
		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", models.MaxChunkSize),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, models.NewError(models.KindConfig, "validate", err)
	}

	return config, nil
}

// validate checks if all required configuration values are set
func validate(cfg *models.BotConfig) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	switch cfg.Provider {
	case models.ProviderResponses:
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case models.ProviderAssistant:
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
		if cfg.AssistantID == "" {
			return fmt.Errorf("ASSISTANT_ID is required")
		}
	case models.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	// Validate positive values
	if cfg.OpenAITimeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive, got %d", cfg.OpenAITimeout)
	}
	if cfg.AssistantPollIntervalMs <= 0 {
		return fmt.Errorf("ASSISTANT_POLL_INTERVAL_MS must be positive, got %d", cfg.AssistantPollIntervalMs)
	}
	if cfg.AssistantRunTimeout <= 0 {
		return fmt.Errorf("ASSISTANT_RUN_TIMEOUT must be positive, got %d", cfg.AssistantRunTimeout)
	}
	if cfg.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %d", cfg.GeminiTimeout)
	}
	if cfg.SupabaseTimeout <= 0 {
		return fmt.Errorf("SUPABASE_TIMEOUT must be positive, got %d", cfg.SupabaseTimeout)
	}
	if cfg.MaxChunkSize <= 0 || cfg.MaxChunkSize > models.MaxChunkSize {
		return fmt.Errorf("MAX_CHUNK_SIZE must be in 1..%d, got %d", models.MaxChunkSize, cfg.MaxChunkSize)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
