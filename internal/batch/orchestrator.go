package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
)

// Config wires the orchestrator to its collaborators.
type Config struct {
	Generator image.Generator
	// Rewriter repairs prompts rejected for content policy. Defaults to the
	// offline StaticRewriter.
	Rewriter        prompt.Rewriter
	Logger          *infra.Logger
	Defaults        Options
	RewriteMinWords int
	RewriteMaxWords int
}

// Orchestrator runs batches of image generation prompts.
type Orchestrator struct {
	generator image.Generator
	rewriter  prompt.Rewriter
	logger    infra.Logger
	defaults  Options
	minWords  int
	maxWords  int
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Generator == nil {
		return nil, errors.New("batch: generator is required")
	}
	o := &Orchestrator{
		generator: cfg.Generator,
		rewriter:  cfg.Rewriter,
		logger:    zerolog.Nop(),
		defaults:  cfg.Defaults,
		minWords:  cfg.RewriteMinWords,
		maxWords:  cfg.RewriteMaxWords,
	}
	if o.rewriter == nil {
		o.rewriter = prompt.NewStaticRewriter()
	}
	if cfg.Logger != nil {
		o.logger = *cfg.Logger
	}
	return o, nil
}

// Submit validates the prompts and the aspect ratio, then starts the batch
// in the background. ctx bounds the generation calls themselves; cancelling
// it also cancels the batch. Use Handle.Cancel to stop dispatching while letting in-flight calls
// finish.
func (o *Orchestrator) Submit(ctx context.Context, prompts []string, opts Options) (*Handle, error) {
	if len(prompts) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	cleaned := make([]string, len(prompts))
	for i, p := range prompts {
		cleaned[i] = strings.TrimSpace(p)
		if cleaned[i] == "" {
			return nil, fmt.Errorf("%w: scene %d is blank", domain.ErrInvalidPrompt, i+1)
		}
	}

	opts = opts.withDefaults(o.defaults)
	if !opts.AspectRatio.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAspect, opts.AspectRatio)
	}
	stop, cancel := context.WithCancel(ctx)
	state := newBatchState(uuid.NewString(), cleaned, opts.AspectRatio, opts.MaxSweeps, newNotifier(opts.Reporter))

	r := &run{
		ctx:       ctx,
		stop:      stop,
		state:     state,
		opts:      opts,
		pool:      newPool(opts.Concurrency, opts.DispatchRate, opts.DispatchBurst),
		generator: o.generator,
		recoverer: &recoverer{
			rewriter: o.rewriter,
			minWords: o.minWords,
			maxWords: o.maxWords,
			cooldown: opts.ThrottleCooldown,
		},
		logger: o.logger,
		label:  metricsLabel(o.generator, opts.Model),
	}

	h := &Handle{state: state, cancel: cancel, done: make(chan struct{})}
	o.logger.Info().
		Str("batch_id", state.id).
		Int("items", len(cleaned)).
		Int("concurrency", opts.Concurrency).
		Str("model", modelLabel(opts.Model)).
		Msg("batch: submitted")

	go func() {
		defer close(h.done)
		defer cancel()
		h.report = r.execute()
	}()
	return h, nil
}

// Handle is the caller's view of a running batch.
type Handle struct {
	state  *batchState
	cancel context.CancelFunc
	done   chan struct{}
	report domain.Report
}

func (h *Handle) ID() string { return h.state.id }

// Cancel stops further dispatches. Calls already in flight complete and
// are recorded. It is safe to call more than once.
func (h *Handle) Cancel() { h.cancel() }

// Snapshot returns the current state of every item.
func (h *Handle) Snapshot() domain.BatchSnapshot { return h.state.snapshot() }

// Done is closed once the batch reached a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the batch finishes or ctx is done. The returned error
// only reflects ctx; the batch outcome is in Report.Err.
func (h *Handle) Wait(ctx context.Context) (domain.Report, error) {
	select {
	case <-h.done:
		return h.report, nil
	case <-ctx.Done():
		return domain.Report{}, ctx.Err()
	}
}
