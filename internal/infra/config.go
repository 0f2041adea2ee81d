package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"studio/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	StoragePath      string
	AssetURLPrefix   string

	ImageModel       string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	GeminiBaseURL    string
	QwenAPIKey       string
	QwenModel        string
	QwenBaseURL      string

	PromptProvider string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OpenAIOrg      string
	RewriteMinWord int
	RewriteMaxWord int

	Batch BatchConfig
}

// BatchConfig tunes the batch orchestrator.
type BatchConfig struct {
	Concurrency      int
	MaxSweeps        int
	SweepDelay       time.Duration
	ThrottleCooldown time.Duration
	DispatchRate     float64
	DispatchBurst    int
	DefaultAspect    string
	DefaultStyle     string
	ImagesPerPrompt  int
	// Retention is how long the API keeps a finished batch for polling.
	Retention        time.Duration
}

var promptProviders = map[string]struct{}{"gemini": {}, "openai": {}, "static": {}}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		AssetURLPrefix:   getEnv("ASSET_URL_PREFIX", "/assets"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		QwenAPIKey:       os.Getenv("QWEN_API_KEY"),
		QwenModel:        getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenBaseURL:      getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),

		PromptProvider: strings.ToLower(getEnv("PROMPT_PROVIDER", "gemini")),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:      os.Getenv("OPENAI_ORG"),
		RewriteMinWord: getEnvInt("REWRITE_MIN_WORDS", 30),
		RewriteMaxWord: getEnvInt("REWRITE_MAX_WORDS", 60),

		Batch: BatchConfig{
			Concurrency:      getEnvInt("BATCH_CONCURRENCY", 3),
			MaxSweeps:        getEnvInt("BATCH_MAX_SWEEPS", 50),
			SweepDelay:       time.Millisecond * time.Duration(getEnvInt("BATCH_SWEEP_DELAY_MS", 2000)),
			ThrottleCooldown: time.Millisecond * time.Duration(getEnvInt("BATCH_THROTTLE_COOLDOWN_MS", 5000)),
			DispatchRate:     getEnvFloat("BATCH_DISPATCH_RATE", 0),
			DispatchBurst:    getEnvInt("BATCH_DISPATCH_BURST", 1),
			DefaultAspect:    getEnv("BATCH_ASPECT_RATIO", "16:9"),
			DefaultStyle:     os.Getenv("BATCH_STYLE"),
			ImagesPerPrompt:  getEnvInt("BATCH_IMAGES_PER_PROMPT", 1),
			Retention:        time.Minute * time.Duration(getEnvInt("BATCH_RETENTION_MINUTES", 60)),
		},
	}
	cfg.ImageModel = strings.ToLower(getEnv("IMAGE_MODEL", cfg.GeminiImageModel))

	if _, ok := promptProviders[cfg.PromptProvider]; !ok {
		return nil, fmt.Errorf("PROMPT_PROVIDER must be one of gemini, openai, static (got %q)", cfg.PromptProvider)
	}
	if cfg.PromptProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when PROMPT_PROVIDER=openai")
	}
	if cfg.Batch.Concurrency <= 0 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if cfg.Batch.MaxSweeps <= 0 {
		return nil, fmt.Errorf("BATCH_MAX_SWEEPS must be positive")
	}
	if !domain.AspectRatio(cfg.Batch.DefaultAspect).Valid() {
		return nil, fmt.Errorf("BATCH_ASPECT_RATIO %q is not supported", cfg.Batch.DefaultAspect)
	}
	if cfg.Batch.ImagesPerPrompt < 1 || cfg.Batch.ImagesPerPrompt > 4 {
		return nil, fmt.Errorf("BATCH_IMAGES_PER_PROMPT must be between 1 and 4")
	}
	if cfg.Batch.Retention <= 0 {
		return nil, fmt.Errorf("BATCH_RETENTION_MINUTES must be positive")
	}
	if cfg.RewriteMinWord <= 0 || cfg.RewriteMaxWord < cfg.RewriteMinWord {
		return nil, fmt.Errorf("REWRITE_MIN_WORDS/REWRITE_MAX_WORDS must form a positive band")
	}
	if cfg.ImageModel == cfg.QwenModel && strings.TrimSpace(cfg.QwenAPIKey) == "" {
		return nil, fmt.Errorf("QWEN_API_KEY is required when IMAGE_MODEL=%s", cfg.QwenModel)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
