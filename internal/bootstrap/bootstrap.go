// Package bootstrap assembles the generation providers and the batch
// orchestrator from configuration. Both the API server and the batch runner
// start from here.
package bootstrap

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"studio/internal/batch"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/providers/qwen"
	"studio/internal/storage"
)

// Services is the wired dependency graph.
type Services struct {
	Orchestrator *batch.Orchestrator
	Images       *image.Router
	Rewriter     prompt.Rewriter
}

// Build wires providers and the orchestrator. store may be nil, in which
// case inline images are returned as data URLs.
func Build(cfg *infra.Config, logger *infra.Logger, store *storage.FileStore) (*Services, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	router, err := newImageRouter(cfg, logger, httpClient, store)
	if err != nil {
		return nil, err
	}
	rewriter, err := newRewriter(cfg, logger)
	if err != nil {
		return nil, err
	}

	orch, err := batch.NewOrchestrator(batch.Config{
		Generator:       router,
		Rewriter:        rewriter,
		Logger:          logger,
		Defaults:        BatchDefaults(cfg),
		RewriteMinWords: cfg.RewriteMinWord,
		RewriteMaxWords: cfg.RewriteMaxWord,
	})
	if err != nil {
		return nil, err
	}
	return &Services{Orchestrator: orch, Images: router, Rewriter: rewriter}, nil
}

// BatchDefaults maps the BATCH_* settings onto orchestrator options.
func BatchDefaults(cfg *infra.Config) batch.Options {
	return batch.Options{
		Concurrency:      cfg.Batch.Concurrency,
		MaxSweeps:        cfg.Batch.MaxSweeps,
		SweepDelay:       cfg.Batch.SweepDelay,
		ThrottleCooldown: cfg.Batch.ThrottleCooldown,
		AspectRatio:      domain.AspectRatio(cfg.Batch.DefaultAspect),
		Style:            cfg.Batch.DefaultStyle,
		Count:            cfg.Batch.ImagesPerPrompt,
		Model:            cfg.ImageModel,
		DispatchRate:     cfg.Batch.DispatchRate,
		DispatchBurst:    cfg.Batch.DispatchBurst,
	}
}

func newImageRouter(cfg *infra.Config, logger *infra.Logger, httpClient *http.Client, store *storage.FileStore) (*image.Router, error) {
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiImageModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure gemini client: %w", err)
	}
	if !geminiClient.HasCredentials() {
		logger.Warn().Str("model", geminiClient.Model()).Msg("gemini api key missing, using synthetic image generation")
	}

	var assets image.AssetStore
	if store != nil {
		assets = store
	}
	gemini := image.NewGeminiGenerator(geminiClient, assets)
	generators := map[string]image.Generator{
		"gemini":                 gemini,
		geminiClient.Model():     gemini,
		"gemini-2.5-flash":       gemini,
		"gemini-2.5-flash-image": gemini,
	}

	if strings.TrimSpace(cfg.QwenAPIKey) != "" {
		qwenClient, err := qwen.NewClient(qwen.Options{
			APIKey:     cfg.QwenAPIKey,
			BaseURL:    cfg.QwenBaseURL,
			Model:      cfg.QwenModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("configure qwen client: %w", err)
		}
		q := image.NewQwenGenerator(qwenClient)
		generators["qwen"] = q
		generators[qwenClient.Model()] = q
	}

	return image.NewRouter(cfg.ImageModel, generators)
}

func newRewriter(cfg *infra.Config, logger *infra.Logger) (prompt.Rewriter, error) {
	switch cfg.PromptProvider {
	case "openai":
		rw, err := prompt.NewOpenAIRewriter(prompt.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			MinWords:     cfg.RewriteMinWord,
			MaxWords:     cfg.RewriteMaxWord,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai rewriter warning")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("configure openai rewriter: %w", err)
		}
		return rw, nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn().Msg("gemini api key missing, prompt rewrites use the static rewriter")
			return prompt.NewStaticRewriter(), nil
		}
		rw, err := prompt.NewGeminiRewriter(prompt.GeminiOptions{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			BaseURL:  cfg.GeminiBaseURL,
			MinWords: cfg.RewriteMinWord,
			MaxWords: cfg.RewriteMaxWord,
		})
		if err != nil {
			return nil, fmt.Errorf("configure gemini rewriter: %w", err)
		}
		return rw, nil
	default:
		return prompt.NewStaticRewriter(), nil
	}
}
