package qwen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"studio/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGenerateImagePayload(t *testing.T) {
	var captured generationRequest
	client, err := NewClient(Options{
		APIKey:       "test",
		PromptExtend: true,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("Authorization = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return stubResponse(http.StatusOK, `{"output":{"choices":[{"message":{"content":[{"image":"https://cdn.test/scene.png"}]}}]},"usage":{"width":1664,"height":928},"request_id":"r-1"}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	asset, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: " foggy harbour ", Size: "1664*928", Seed: 7})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if asset.URL != "https://cdn.test/scene.png" || asset.Width != 1664 || asset.Height != 928 {
		t.Fatalf("unexpected asset: %+v", asset)
	}
	if captured.Model != "qwen-image-plus" {
		t.Fatalf("model = %q", captured.Model)
	}
	if got := captured.Input.Messages[0].Content[0].Text; got != "foggy harbour" {
		t.Fatalf("prompt = %q", got)
	}
	if captured.Parameters.Size != "1664*928" {
		t.Fatalf("size = %q", captured.Parameters.Size)
	}
	if captured.Parameters.Seed == nil || *captured.Parameters.Seed != 7 {
		t.Fatalf("seed = %v", captured.Parameters.Seed)
	}
	if captured.Parameters.PromptExtend == nil || !*captured.Parameters.PromptExtend {
		t.Fatalf("prompt_extend not set")
	}
}

func TestGenerateImageMapsErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"inspection", http.StatusBadRequest, `{"code":"DataInspectionFailed","message":"Input data may contain inappropriate content."}`, domain.ErrContentPolicy},
		{"throttling", http.StatusTooManyRequests, `{"code":"Throttling.RateQuota","message":"Requests rate limit exceeded"}`, domain.ErrRateLimited},
		{"api key", http.StatusUnauthorized, `{"code":"InvalidApiKey","message":"Invalid API-key provided."}`, domain.ErrCredentialExpired},
		{"body code", http.StatusOK, `{"code":"DataInspectionFailed","message":"Output data may contain inappropriate content."}`, domain.ErrContentPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(Options{
				APIKey: "test",
				HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
					return stubResponse(tt.status, tt.body), nil
				})},
			})
			_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "scene"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.HTTPStatus() != tt.status {
				t.Fatalf("error = %#v, want APIError with status %d", err, tt.status)
			}
		})
	}
}

func TestGenerateImageRequiresCredentials(t *testing.T) {
	client, _ := NewClient(Options{})
	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "scene"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestGenerateImageRejectsEmptyPrompt(t *testing.T) {
	client, _ := NewClient(Options{APIKey: "test"})
	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "  "}); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("error = %v, want ErrInvalidPrompt", err)
	}
}
