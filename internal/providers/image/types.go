package image

import (
	"context"

	"studio/internal/domain"
)

// GenerateRequest describes a normalized request passed to any image provider.
type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	Style       string
	Count       int
	Model       string
	RequestID   string
}

// GenerateResult is the canonical response shape of every provider.
type GenerateResult struct {
	Images []domain.Image
	Model  string
}

// Generator is the contract implemented by all image providers. Failures are
// returned unmodified so the batch orchestrator can classify them.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return f(ctx, req)
}

// AssetStore persists image bytes and returns where they can be fetched.
// *storage.FileStore satisfies it.
type AssetStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

const imageStatusGenerated = "generated"
