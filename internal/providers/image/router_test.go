package image

import (
	"context"
	"testing"
)

func namedGenerator(name string) Generator {
	return GeneratorFunc(func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
		return &GenerateResult{Model: name + ":" + req.Model}, nil
	})
}

func TestRouterSelectsRequestedModel(t *testing.T) {
	router, err := NewRouter("gemini-2.5-flash-image", map[string]Generator{
		"gemini-2.5-flash-image": namedGenerator("gemini"),
		"qwen-image-plus":        namedGenerator("qwen"),
	})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	res, err := router.Generate(context.Background(), GenerateRequest{Model: " Qwen-Image-Plus "})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Model != "qwen:qwen-image-plus" {
		t.Fatalf("model = %q", res.Model)
	}

	res, _ = router.Generate(context.Background(), GenerateRequest{Model: "unknown"})
	if res.Model != "gemini:gemini-2.5-flash-image" {
		t.Fatalf("fallback model = %q", res.Model)
	}

	if got := router.Models(); len(got) != 2 || got[0] != "gemini-2.5-flash-image" {
		t.Fatalf("Models() = %v", got)
	}
}

func TestNewRouterRejectsMissingDefault(t *testing.T) {
	if _, err := NewRouter("missing", map[string]Generator{"a": namedGenerator("a")}); err == nil {
		t.Fatal("expected error for unregistered default model")
	}
}
