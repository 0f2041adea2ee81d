package image

import (
	"context"
	"strings"
	"testing"

	"studio/internal/providers/genai"
	"studio/internal/storage"
)

func newSyntheticGemini(t *testing.T) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(genai.Options{Model: "gemini-2.5-flash-image"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGeminiGeneratorStoresInlineAssets(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "/assets")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gen := NewGeminiGenerator(newSyntheticGemini(t), store)

	res, err := gen.Generate(context.Background(), GenerateRequest{
		Prompt:      "a lighthouse at dusk",
		AspectRatio: "16:9",
		Count:       2,
		RequestID:   "batch-1-3-1",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Model != "gemini-2.5-flash-image" || len(res.Images) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Images[0].URL != "/assets/batch-1-3-1/01.png" || res.Images[1].URL != "/assets/batch-1-3-1/02.png" {
		t.Fatalf("unexpected urls %q %q", res.Images[0].URL, res.Images[1].URL)
	}
	if res.Images[0].Status != imageStatusGenerated {
		t.Fatalf("status = %q", res.Images[0].Status)
	}
}

func TestGeminiGeneratorEmbedsDataURLWithoutStore(t *testing.T) {
	gen := NewGeminiGenerator(newSyntheticGemini(t), nil)

	res, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "a harbour", Count: 1, RequestID: "r"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(res.Images[0].URL, "data:image/png;base64,") {
		t.Fatalf("expected data url, got %.40q", res.Images[0].URL)
	}
}
