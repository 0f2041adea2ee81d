package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// QwenGenerator calls DashScope's Qwen image model once per requested image.
// DashScope returns a single image per call, so Count > 1 issues one call per
// variation with a distinct seed.
type QwenGenerator struct {
	client qwenImageClient
}

// NewQwenGenerator wires a Qwen client.
func NewQwenGenerator(client qwenImageClient) *QwenGenerator {
	return &QwenGenerator{client: client}
}

// Generate fulfils the Generator interface.
func (g *QwenGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("qwen generator not configured")
	}
	if !g.client.HasCredentials() {
		return nil, qwen.ErrMissingAPIKey
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	size := AspectRatioSize(req.AspectRatio)
	result := &GenerateResult{Model: g.client.Model(), Images: make([]domain.Image, 0, count)}
	for i := 0; i < count; i++ {
		prompt := buildVariationPrompt(composeScenePrompt(req.Prompt, req.Style), count, i)
		asset, err := g.client.GenerateImage(ctx, qwen.ImageRequest{
			Prompt:         prompt,
			NegativePrompt: DefaultNegativePrompt,
			Size:           size,
			Seed:           deterministicSeed(req.RequestID, req.Model, prompt, i),
			RequestID:      req.RequestID,
		})
		if err != nil {
			return nil, err
		}
		result.Images = append(result.Images, domain.Image{
			URL:    asset.URL,
			Status: imageStatusGenerated,
			Width:  asset.Width,
			Height: asset.Height,
		})
	}
	return result, nil
}

func (g *QwenGenerator) String() string {
	if g == nil || g.client == nil {
		return "qwen"
	}
	return g.client.Model()
}

var _ Generator = (*QwenGenerator)(nil)

func deterministicSeed(values ...any) int {
	if len(values) == 0 {
		return 0
	}
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	n := binary.BigEndian.Uint32(sum[:4])
	value := int(n % 2147483647)
	if value <= 0 {
		fallback := binary.BigEndian.Uint32(sum[4:8]) % 2147483647
		if fallback == 0 {
			fallback = 1
		}
		value = int(fallback)
	}
	return value
}

func buildVariationPrompt(prompt string, total, index int) string {
	trimmed := strings.TrimSpace(prompt)
	if total <= 1 {
		return trimmed
	}
	if trimmed == "" {
		return fmt.Sprintf("Variation #%d of the same scene.", index+1)
	}
	return fmt.Sprintf("%s\nVariation #%d of the same scene.", trimmed, index+1)
}
