package image

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/providers/qwen"
)

type stubQwenClient struct {
	hasCredentials bool
	calls          int
	requests       []qwen.ImageRequest
	err            error
}

func (s *stubQwenClient) GenerateImage(ctx context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &qwen.ImageAsset{URL: "https://cdn.test/" + strings.Repeat("x", s.calls) + ".png", Width: 1664, Height: 928}, nil
}

func (s *stubQwenClient) HasCredentials() bool {
	return s.hasCredentials
}

func (s *stubQwenClient) Model() string {
	return "qwen-image-plus"
}

func TestQwenGeneratorIssuesOneCallPerVariation(t *testing.T) {
	client := &stubQwenClient{hasCredentials: true}
	gen := NewQwenGenerator(client)

	res, err := gen.Generate(context.Background(), GenerateRequest{
		Prompt:      "rainy neon street",
		AspectRatio: "16:9",
		Style:       "cinematic",
		Count:       2,
		RequestID:   "req-1",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if client.calls != 2 || len(res.Images) != 2 {
		t.Fatalf("calls = %d, images = %d, want 2/2", client.calls, len(res.Images))
	}
	first, second := client.requests[0], client.requests[1]
	if first.Size != "1664*928" {
		t.Fatalf("size = %q, want 1664*928", first.Size)
	}
	if !strings.Contains(first.Prompt, "Visual style: cinematic.") || !strings.Contains(first.Prompt, "Variation #1") {
		t.Fatalf("prompt = %q", first.Prompt)
	}
	if first.Seed == second.Seed {
		t.Fatalf("variations share seed %d", first.Seed)
	}
	if first.NegativePrompt != DefaultNegativePrompt {
		t.Fatalf("negative prompt = %q", first.NegativePrompt)
	}
	if res.Images[0].Status != imageStatusGenerated {
		t.Fatalf("status = %q", res.Images[0].Status)
	}
}

func TestQwenGeneratorPropagatesProviderErrors(t *testing.T) {
	providerErr := &qwen.APIError{StatusCode: 400, Code: "DataInspectionFailed", Message: "inappropriate content"}
	gen := NewQwenGenerator(&stubQwenClient{hasCredentials: true, err: providerErr})
	_, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "scene"})
	if !errors.Is(err, domain.ErrContentPolicy) {
		t.Fatalf("error = %v, want content policy", err)
	}
}

func TestQwenGeneratorRequiresCredentials(t *testing.T) {
	gen := NewQwenGenerator(&stubQwenClient{})
	if _, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "scene"}); !errors.Is(err, qwen.ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
}
