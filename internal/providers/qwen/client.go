package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// ErrMissingAPIKey wraps domain.ErrCredentialExpired so batches treat it as
// a credential problem instead of retrying.
var ErrMissingAPIKey = fmt.Errorf("qwen: api key is required: %w", domain.ErrCredentialExpired)

// Options configures the DashScope Qwen client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope Qwen text-to-image API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	defaultSize  string
	promptExtend bool
	watermark    bool
	httpClient   *http.Client
	logger       *infra.Logger
}

// ImageRequest captures the required inputs for image generation.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
	RequestID      string
}

// ImageAsset is the normalized result from the Qwen API.
type ImageAsset struct {
	URL    string
	Width  int
	Height int
}

// APIError is a DashScope failure, either a non-2xx response or a 200 with an
// error code in the body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("qwen: status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("qwen: status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the response code to error classifiers.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Unwrap maps DashScope error codes onto the domain failure taxonomy.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "DataInspectionFailed", "IPInfringementSuspect":
		return domain.ErrContentPolicy
	case "Throttling", "Throttling.RateQuota", "Throttling.AllocationQuota":
		return domain.ErrRateLimited
	case "InvalidApiKey", "AccessDenied.Unpurchased":
		return domain.ErrCredentialExpired
	default:
		return nil
	}
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	PromptExtend   *bool  `json:"prompt_extend,omitempty"`
	Watermark      *bool  `json:"watermark,omitempty"`
	Seed           *int   `json:"seed,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-plus"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1328*1328"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		defaultSize:  defaultSize,
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage invokes the DashScope API once and returns a single image asset.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("qwen: %w", domain.ErrInvalidPrompt)
	}
	payload := generationRequest{
		Model: c.model,
		Input: generationInput{
			Messages: []generationMessage{{
				Role:    "user",
				Content: []generationContent{{Text: prompt}},
			}},
		},
	}
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		payload.Parameters.NegativePrompt = neg
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = c.defaultSize
	}
	payload.Parameters.Size = size
	if extend := c.promptExtend; extend {
		payload.Parameters.PromptExtend = &extend
	}
	if req.Seed > 0 {
		payload.Parameters.Seed = &req.Seed
	}
	watermark := c.watermark
	payload.Parameters.Watermark = &watermark

	endpoint := c.baseURL + "/services/aigc/multimodal-generation/generation"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}

	var decoded generationResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Message != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Code: decoded.Code, Message: decoded.Message}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: decoded.Code, Message: decoded.Message}
	}
	imageURL := firstImageURL(decoded)
	if imageURL == "" {
		return nil, errors.New("qwen: empty image url")
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", decoded.RequestID).
		Str("url", imageURL).
		Msg("qwen: generated image asset")
	return &ImageAsset{URL: imageURL, Width: decoded.Usage.Width, Height: decoded.Usage.Height}, nil
}

func firstImageURL(resp generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if url := strings.TrimSpace(content.Image); url != "" {
				return url
			}
		}
	}
	return ""
}
