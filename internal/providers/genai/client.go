package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client provides a lightweight facade over the Gemini image API. Without an
// API key it renders deterministic synthetic assets so local runs exercise
// the whole batch pipeline.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest represents the information required to generate images.
type ImageRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
	Style       string
	RequestID   string
}

// ImageAsset is the normalized representation returned by the Gemini client.
type ImageAsset struct {
	StorageKey string
	URL        string
	Format     string
	Width      int
	Height     int
	Data       []byte
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int                `json:"candidateCount,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// ErrNoImages is returned when Gemini answered without any image part.
var ErrNoImages = errors.New("gemini: no image content returned")

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether remote calls will be made.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImages calls Gemini, or renders synthetic assets when no API key is
// configured. Remote failures are returned as-is so callers can classify them.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.HasCredentials() {
		return c.syntheticImages(req), nil
	}

	assets, err := c.remoteGenerateImages(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrNoImages
	}
	return assets, nil
}

func (c *Client) syntheticImages(req ImageRequest) []ImageAsset {
	count := clampCount(req.Count)
	width, height := normalizeAspect(req.AspectRatio)
	assets := make([]ImageAsset, count)
	for i := 0; i < count; i++ {
		seed := deterministicSeed(req.RequestID, req.Prompt, req.Style, i)
		storageKey := syntheticStorageKey(c.model, seed, i+1)
		assets[i] = ImageAsset{
			StorageKey: storageKey,
			URL:        c.assetURL(storageKey),
			Format:     "image/png",
			Width:      width,
			Height:     height,
			Data:       renderSyntheticImage(width, height, seed),
		}
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("count", count).
		Msg("genai: generated synthetic image assets")

	return assets
}

func (c *Client) remoteGenerateImages(ctx context.Context, req ImageRequest) ([]ImageAsset, error) {
	count := clampCount(req.Count)
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     count,
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		payload.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: aspect}
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, &BlockedError{Reason: response.PromptFeedback.BlockReason}
	}

	width, height := normalizeAspect(req.AspectRatio)
	var assets []ImageAsset
	var blockedReason string
	for _, candidate := range response.Candidates {
		if isBlockedFinish(candidate.FinishReason) {
			blockedReason = candidate.FinishReason
			continue
		}
		for _, part := range candidate.Content.Parts {
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil || len(asset.Data) == 0 {
				continue
			}
			format := asset.Format
			if format == "" {
				format = "image/png"
			}
			w, h := decodeImageDimensions(asset.Data)
			if w == 0 || h == 0 {
				w, h = width, height
			}
			assets = append(assets, ImageAsset{
				URL:    asset.URL,
				Format: format,
				Width:  w,
				Height: h,
				Data:   asset.Data,
			})
			if len(assets) >= count {
				break
			}
		}
		if len(assets) >= count {
			break
		}
	}
	if len(assets) == 0 && blockedReason != "" {
		return nil, &BlockedError{Reason: blockedReason}
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("count", len(assets)).
		Msg("genai: generated remote image assets")

	return assets, nil
}

type inlineAsset struct {
	Data   []byte
	Format string
	URL    string
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var decoded geminiErrorResponse
		if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
			apiErr.Status = decoded.Error.Status
			apiErr.Message = decoded.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (inlineAsset, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return inlineAsset{}, fmt.Errorf("decode inline data: %w", err)
		}
		return inlineAsset{Data: data, Format: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return inlineAsset{}, err
		}
		return inlineAsset{Data: data, Format: firstNonEmpty(part.FileData.MimeType, mime), URL: part.FileData.FileURI}, nil
	}

	return inlineAsset{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		b.WriteString(prompt)
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Visual style: ")
		b.WriteString(style)
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Aspect ratio: ")
		b.WriteString(aspect)
	}
	if b.Len() == 0 {
		b.WriteString("Create a cinematic video scene")
	}
	return b.String()
}

func clampCount(count int) int {
	if count <= 0 {
		return 1
	}
	if count > 4 {
		return 4
	}
	return count
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (c *Client) assetURL(storageKey string) string {
	if storageKey == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(storageKey, "/"))
}

func syntheticStorageKey(model, seed string, index int) string {
	return fmt.Sprintf("synthetic/%s/scene-%s/%02d.png", url.PathEscape(model), seed, index)
}

func renderSyntheticImage(width, height int, seed string) []byte {
	// Keep synthetic frames small; only the aspect matters downstream.
	width, height = width/8, height/8
	if width <= 0 {
		width = 128
	}
	if height <= 0 {
		height = 128
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorFromSeed(seed, 0)}, image.Point{}, draw.Src)

	accent := colorFromSeed(seed, 1)
	stripeHeight := maxInt(4, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, minInt(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: mustParseHexByte(segment[0:2]),
		G: mustParseHexByte(segment[2:4]),
		B: mustParseHexByte(segment[4:6]),
		A: 255,
	}
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "4:3":
		return 1440, 1080
	case "3:4":
		return 1080, 1440
	case "1:1", "square", "":
		return 1024, 1024
	default:
		parts := strings.Split(aspect, ":")
		if len(parts) == 2 {
			if a, errA := strconv.Atoi(strings.TrimSpace(parts[0])); errA == nil {
				if b, errB := strconv.Atoi(strings.TrimSpace(parts[1])); errB == nil && a > 0 && b > 0 {
					width := 1024
					return width, int(float64(width) * float64(b) / float64(a))
				}
			}
		}
		return 1024, 1024
	}
}
