package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
	"studio/internal/providers/prompt"
)

func testConfig() *infra.Config {
	return &infra.Config{
		ImageModel:       "gemini-2.5-flash-image",
		GeminiImageModel: "gemini-2.5-flash-image",
		QwenModel:        "qwen-image-plus",
		PromptProvider:   "gemini",
		RewriteMinWord:   30,
		RewriteMaxWord:   60,
		Batch: infra.BatchConfig{
			Concurrency:      2,
			MaxSweeps:        3,
			SweepDelay:       time.Millisecond,
			ThrottleCooldown: time.Millisecond,
			DefaultAspect:    "1:1",
			ImagesPerPrompt:  1,
		},
	}
}

func TestBuildFallsBackToOfflineProviders(t *testing.T) {
	logger := zerolog.Nop()
	svc, err := Build(testConfig(), &logger, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := svc.Rewriter.(*prompt.StaticRewriter); !ok {
		t.Fatalf("expected static rewriter without gemini key, got %T", svc.Rewriter)
	}
	models := svc.Images.Models()
	for _, m := range models {
		if m == "qwen" {
			t.Fatalf("qwen registered without credentials: %v", models)
		}
	}

	h, err := svc.Orchestrator.Submit(context.Background(), []string{"a lighthouse at dusk"}, BatchDefaults(testConfig()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if report.Err != nil || len(report.Succeeded) != 1 {
		t.Fatalf("synthetic batch failed: %v", report.Err)
	}
	if report.Succeeded[0].AspectRatio != "1:1" {
		t.Fatalf("aspect = %s", report.Succeeded[0].AspectRatio)
	}
}

func TestBuildRegistersQwenWithCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.QwenAPIKey = "sk-test"
	cfg.ImageModel = "qwen-image-plus"
	cfg.PromptProvider = "static"

	logger := zerolog.Nop()
	svc, err := Build(cfg, &logger, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, model := svc.Images.Select("")
	if model != "qwen-image-plus" {
		t.Fatalf("default model = %q", model)
	}
}

func TestBuildRejectsUnknownDefaultModel(t *testing.T) {
	cfg := testConfig()
	cfg.ImageModel = "dall-e-3"
	logger := zerolog.Nop()
	if _, err := Build(cfg, &logger, nil); err == nil {
		t.Fatal("expected error for unregistered default model")
	}
}
