package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/batch"
	"studio/internal/infra"
)

// Submitter starts batches. *batch.Orchestrator satisfies it.
type Submitter interface {
	Submit(ctx context.Context, prompts []string, opts batch.Options) (*batch.Handle, error)
}

// Options configures App.
type Options struct {
	// BaseContext outlives individual requests and bounds every batch.
	BaseContext context.Context
	Logger      *infra.Logger
	Models      []string
	// MaxPrompts caps the prompts accepted per batch.
	MaxPrompts int
	// MaxRetained caps how many batches are kept for polling.
	MaxRetained int
	// Assets reads stored images back for archive downloads.
	Assets     AssetReader
	HTTPClient *http.Client
}

// AssetReader loads an image by the URL the generator reported.
// *storage.FileStore satisfies it.
type AssetReader interface {
	Read(ctx context.Context, url string) ([]byte, error)
}

// App holds the orchestrator and the batches it started.
type App struct {
	orch        Submitter
	base        context.Context
	logger      infra.Logger
	models      []string
	maxPrompts  int
	maxRetained int
	assets      AssetReader
	httpClient  *http.Client

	mu      sync.RWMutex
	batches map[string]*batch.Handle
	order   []string
}

func NewApp(orch Submitter, opts Options) *App {
	a := &App{
		orch:        orch,
		base:        opts.BaseContext,
		logger:      zerolog.Nop(),
		models:      opts.Models,
		maxPrompts:  opts.MaxPrompts,
		maxRetained: opts.MaxRetained,
		assets:      opts.Assets,
		httpClient:  opts.HTTPClient,
		batches:     make(map[string]*batch.Handle),
	}
	if a.base == nil {
		a.base = context.Background()
	}
	if opts.Logger != nil {
		a.logger = *opts.Logger
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if a.maxPrompts <= 0 {
		a.maxPrompts = 200
	}
	if a.maxRetained <= 0 {
		a.maxRetained = 500
	}
	return a
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}
