package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PROMPT_PROVIDER", "")
	t.Setenv("BATCH_CONCURRENCY", "")
	t.Setenv("BATCH_MAX_SWEEPS", "")
	t.Setenv("BATCH_SWEEP_DELAY_MS", "")
	t.Setenv("BATCH_THROTTLE_COOLDOWN_MS", "")
	t.Setenv("IMAGE_MODEL", "")
	t.Setenv("GEMINI_IMAGE_MODEL", "")
	t.Setenv("BATCH_RETENTION_MINUTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Batch.Concurrency != 3 {
		t.Fatalf("Concurrency = %d, want 3", cfg.Batch.Concurrency)
	}
	if cfg.Batch.MaxSweeps != 50 {
		t.Fatalf("MaxSweeps = %d, want 50", cfg.Batch.MaxSweeps)
	}
	if cfg.Batch.SweepDelay != 2*time.Second {
		t.Fatalf("SweepDelay = %s, want 2s", cfg.Batch.SweepDelay)
	}
	if cfg.Batch.ThrottleCooldown != 5*time.Second {
		t.Fatalf("ThrottleCooldown = %s, want 5s", cfg.Batch.ThrottleCooldown)
	}
	if cfg.PromptProvider != "gemini" {
		t.Fatalf("PromptProvider = %q, want gemini", cfg.PromptProvider)
	}
	if cfg.ImageModel != "gemini-2.5-flash-image" {
		t.Fatalf("ImageModel = %q", cfg.ImageModel)
	}
	if cfg.Batch.Retention != time.Hour {
		t.Fatalf("Retention = %s, want 1h", cfg.Batch.Retention)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("BATCH_SWEEP_DELAY_MS", "250")
	t.Setenv("BATCH_DISPATCH_RATE", "1.5")
	t.Setenv("PROMPT_PROVIDER", "Static")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Batch.Concurrency != 5 || cfg.Batch.SweepDelay != 250*time.Millisecond {
		t.Fatalf("batch config mismatch: %+v", cfg.Batch)
	}
	if cfg.Batch.DispatchRate != 1.5 {
		t.Fatalf("DispatchRate = %v, want 1.5", cfg.Batch.DispatchRate)
	}
	if cfg.PromptProvider != "static" {
		t.Fatalf("PromptProvider = %q, want static", cfg.PromptProvider)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown prompt provider", map[string]string{"PROMPT_PROVIDER": "llama"}},
		{"openai without key", map[string]string{"PROMPT_PROVIDER": "openai", "OPENAI_API_KEY": ""}},
		{"zero concurrency", map[string]string{"BATCH_CONCURRENCY": "0"}},
		{"inverted rewrite band", map[string]string{"REWRITE_MIN_WORDS": "80", "REWRITE_MAX_WORDS": "40"}},
		{"qwen without key", map[string]string{"IMAGE_MODEL": "qwen-image-plus", "QWEN_API_KEY": ""}},
		{"unsupported aspect", map[string]string{"BATCH_ASPECT_RATIO": "21:9"}},
		{"too many images", map[string]string{"BATCH_IMAGES_PER_PROMPT": "5"}},
		{"negative retention", map[string]string{"BATCH_RETENTION_MINUTES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
