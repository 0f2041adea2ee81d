package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	MinWords   int
	MaxWords   int
}

type GeminiRewriter struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	minWords int
	maxWords int
}

const geminiDefaultTimeout = 15 * time.Second

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewGeminiRewriter(opts GeminiOptions) (*GeminiRewriter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiRewriter{
		apiKey:   strings.TrimSpace(opts.APIKey),
		model:    model,
		baseURL:  baseURL,
		client:   client,
		minWords: opts.MinWords,
		maxWords: opts.MaxWords,
	}, nil
}

func (g *GeminiRewriter) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	req = applyBand(req, g.minWords, g.maxWords)
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildRewriteInstruction(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.4,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("gemini rewrite: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return "", fmt.Errorf("gemini rewrite: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini rewrite: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var detail geminiErrorResponse
		msg := strings.TrimSpace(string(data))
		if err := json.Unmarshal(data, &detail); err == nil && detail.Error.Message != "" {
			msg = detail.Error.Message
		}
		return "", &ProviderError{Provider: geminiProviderName, StatusCode: resp.StatusCode, Message: msg}
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini rewrite: decode response: %w", err)
	}
	return finalizeRewrite(g.extractText(out), req)
}

func (g *GeminiRewriter) endpoint() string {
	base := strings.TrimRight(g.baseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(g.model))
}

func (g *GeminiRewriter) extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func applyBand(req RewriteRequest, minWords, maxWords int) RewriteRequest {
	if req.MinWords <= 0 {
		req.MinWords = minWords
	}
	if req.MaxWords <= 0 {
		req.MaxWords = maxWords
	}
	return req
}

var _ Rewriter = (*GeminiRewriter)(nil)

func (g *GeminiRewriter) Name() string { return geminiProviderName }
