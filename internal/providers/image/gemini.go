package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

type GeminiGenerator struct {
	client *genai.Client
	store  AssetStore
}

// NewGeminiGenerator wraps client. Inline image bytes are written to store
// when one is given and embedded as data URLs otherwise.
func NewGeminiGenerator(client *genai.Client, store AssetStore) *GeminiGenerator {
	return &GeminiGenerator{client: client, store: store}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	assets, err := g.client.GenerateImages(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		Count:       req.Count,
		AspectRatio: req.AspectRatio,
		Style:       req.Style,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	out := &GenerateResult{Model: g.client.Model(), Images: make([]domain.Image, len(assets))}
	for i, asset := range assets {
		url, err := g.locate(ctx, req.RequestID, i, asset)
		if err != nil {
			return nil, err
		}
		out.Images[i] = domain.Image{
			URL:    url,
			Status: imageStatusGenerated,
			Format: asset.Format,
			Width:  asset.Width,
			Height: asset.Height,
		}
	}
	return out, nil
}

func (g *GeminiGenerator) locate(ctx context.Context, requestID string, index int, asset genai.ImageAsset) (string, error) {
	if len(asset.Data) == 0 {
		return asset.URL, nil
	}
	if g.store == nil {
		return "data:" + asset.Format + ";base64," + base64.StdEncoding.EncodeToString(asset.Data), nil
	}
	key := fmt.Sprintf("%s/%02d%s", strings.ReplaceAll(requestID, "/", "-"), index+1, extensionFor(asset.Format))
	url, err := g.store.Write(ctx, key, asset.Data)
	if err != nil {
		return "", fmt.Errorf("image: store gemini asset: %w", err)
	}
	return url, nil
}

func extensionFor(format string) string {
	switch strings.ToLower(format) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

var _ Generator = (*GeminiGenerator)(nil)
