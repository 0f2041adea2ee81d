package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/providers/image"
)

var errNoImages = fmt.Errorf("%w: generation returned no images", domain.ErrProviderFailure)

// run drives one batch from submission to a terminal state. ctx carries the
// generation and rewrite calls; stop is the cancellation flag checked between
// dispatches and during waits.
type run struct {
	ctx       context.Context
	stop      context.Context
	state     *batchState
	opts      Options
	pool      *pool
	generator image.Generator
	recoverer *recoverer
	logger    infra.Logger
	// label is the model name recorded on metrics.
	label string
}

// execute performs the initial pass and then sweeps the failed items until
// none are left, the sweep budget is spent, or the batch is cancelled.
func (r *run) execute() domain.Report {
	_ = r.state.update(func() error { return nil })

	tasks := make([]task, len(r.state.items))
	for i := range tasks {
		tasks[i] = task{index: i}
	}
	r.pool.run(r.stop, tasks, r.dispatch)

	for {
		if r.stop.Err() != nil {
			return r.finish(domain.BatchStateCancelled)
		}
		failed := r.state.retryableIndexes()
		if len(failed) == 0 {
			return r.finish(domain.BatchStateCompleted)
		}
		if r.state.sweepCount() >= r.opts.MaxSweeps {
			return r.finish(domain.BatchStateExhausted)
		}

		tasks := r.beginSweep(failed)
		left := r.pool.run(r.stop, tasks, r.dispatch)
		r.abandon(left, "cancelled before retry")

		if r.state.sweepCount() < r.opts.MaxSweeps && len(r.state.retryableIndexes()) > 0 {
			r.pause(r.opts.SweepDelay)
		}
	}
}

// beginSweep opens the next sweep and moves every collected item to
// retrying with the task its recovery calls for.
func (r *run) beginSweep(failed []int) []task {
	var sweep int
	_ = r.state.update(func() error {
		r.state.sweep++
		sweep = r.state.sweep
		return nil
	})
	metrics.SweepsTotal.Inc()
	r.logger.Info().
		Str("batch_id", r.state.id).
		Int("sweep", sweep).
		Int("max_sweeps", r.opts.MaxSweeps).
		Int("items", len(failed)).
		Msg("batch: starting retry sweep")

	tasks := make([]task, 0, len(failed))
	for _, idx := range failed {
		t, ok := r.recoverer.plan(idx, r.state.view(idx))
		if !ok {
			continue
		}
		if err := r.state.transition(idx, domain.ItemStatusRetrying, nil); err != nil {
			r.logger.Error().Err(err).Str("batch_id", r.state.id).Int("scene", idx+1).Msg("batch: cannot retry item")
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// dispatch is the pool processor: one optional rewrite followed by one
// generation call for a single item.
func (r *run) dispatch(t task) {
	idx := t.index
	if t.rewrite {
		if !r.applyRewrite(idx) {
			return
		}
		if r.stop.Err() != nil {
			r.abandon([]task{t}, "cancelled before retry")
			return
		}
	}

	var req image.GenerateRequest
	if err := r.state.transition(idx, domain.ItemStatusInProgress, func(it *workItem) {
		req = image.GenerateRequest{
			Prompt:      it.prompt,
			AspectRatio: string(it.aspect),
			Style:       r.opts.Style,
			Count:       r.opts.Count,
			Model:       r.opts.Model,
			RequestID:   fmt.Sprintf("%s-%d-%d", r.state.id, it.sceneIndex, it.attempts),
		}
	}); err != nil {
		r.logger.Error().Err(err).Str("batch_id", r.state.id).Int("scene", idx+1).Msg("batch: cannot dispatch item")
		return
	}

	model := r.label
	metrics.InFlight.Inc()
	start := time.Now()
	res, err := r.generator.Generate(r.ctx, req)
	metrics.InFlight.Dec()
	metrics.DispatchLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err == nil && (res == nil || len(res.Images) == 0) {
		err = errNoImages
	}
	if err != nil {
		r.fail(idx, err)
		metrics.DispatchesTotal.WithLabelValues(model, "failed").Inc()
		return
	}

	metrics.DispatchesTotal.WithLabelValues(model, "succeeded").Inc()
	_ = r.state.transition(idx, domain.ItemStatusSucceeded, func(it *workItem) {
		it.errMsg = nil
		it.category = domain.CategoryNone
		it.images = append([]domain.Image(nil), res.Images...)
	})
	r.logger.Debug().Str("batch_id", r.state.id).Int("scene", idx+1).Int("images", len(res.Images)).Msg("batch: item succeeded")
}

func (r *run) fail(idx int, cause error) {
	category := Classify(cause)
	metrics.FailuresTotal.WithLabelValues(string(category)).Inc()

	msg := cause.Error()
	_ = r.state.transition(idx, domain.ItemStatusFailed, func(it *workItem) {
		it.errMsg = &msg
		it.category = category
		it.failedAt = time.Now()
		if category.Fatal() {
			it.permanent = true
			it.remediation = domain.CredentialRemediation
		}
	})

	event := r.logger.Warn()
	if category.Fatal() {
		event = r.logger.Error()
	}
	event.Err(cause).
		Str("batch_id", r.state.id).
		Int("scene", idx+1).
		Str("category", string(category)).
		Str("recovery", string(category.Recovery())).
		Msg("batch: item failed")
}

// applyRewrite replaces the prompt of a content-policy item before its
// re-dispatch. A failed rewrite leaves the item failed for this sweep.
func (r *run) applyRewrite(idx int) bool {
	it := r.state.view(idx)
	rewritten, err := r.recoverer.rewrite(r.ctx, it.prompt, r.opts.Model)
	if err != nil {
		metrics.RewritesTotal.WithLabelValues("error").Inc()
		msg := err.Error()
		_ = r.state.transition(idx, domain.ItemStatusFailed, func(it *workItem) {
			it.errMsg = &msg
			it.failedAt = time.Now()
		})
		r.logger.Warn().Err(err).Str("batch_id", r.state.id).Int("scene", idx+1).Msg("batch: prompt rewrite failed")
		return false
	}

	metrics.RewritesTotal.WithLabelValues("ok").Inc()
	_ = r.state.update(func() error {
		item := r.state.items[idx]
		item.prompt = rewritten
		item.wasRewritten = true
		return nil
	})
	r.logger.Info().Str("batch_id", r.state.id).Int("scene", idx+1).Msg("batch: prompt rewritten after content policy rejection")
	return true
}

// abandon returns retrying items that were never re-dispatched to failed.
func (r *run) abandon(tasks []task, reason string) {
	for _, t := range tasks {
		_ = r.state.transition(t.index, domain.ItemStatusFailed, func(it *workItem) {
			if it.errMsg == nil {
				it.errMsg = &reason
			}
		})
	}
}

func (r *run) pause(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.stop.Done():
	}
}

func (r *run) finish(final domain.BatchState) domain.Report {
	var snap domain.BatchSnapshot
	_ = r.state.update(func() error {
		now := time.Now().UTC()
		r.state.state = final
		r.state.endedAt = &now
		if final == domain.BatchStateExhausted {
			for _, it := range r.state.items {
				if it.status == domain.ItemStatusFailed {
					it.permanent = true
				}
			}
		}
		return nil
	})
	snap = r.state.snapshot()
	metrics.BatchesTotal.WithLabelValues(string(final)).Inc()

	report := buildReport(snap)
	event := r.logger.Info()
	if report.Err != nil {
		event = r.logger.Warn().Err(report.Err)
	}
	event.Str("batch_id", snap.ID).
		Str("state", string(final)).
		Int("succeeded", snap.Succeeded).
		Int("failed", snap.Failed).
		Int("sweeps", snap.Sweep).
		Msg("batch: finished")
	return report
}

func buildReport(snap domain.BatchSnapshot) domain.Report {
	report := domain.Report{Snapshot: snap}
	credential := 0
	for _, it := range snap.Items {
		switch it.Status {
		case domain.ItemStatusSucceeded:
			report.Succeeded = append(report.Succeeded, it)
		case domain.ItemStatusFailed:
			report.Failed = append(report.Failed, it)
			if it.Category == domain.CategoryCredentialExpired {
				credential++
			}
		default:
			report.Pending = append(report.Pending, it)
		}
	}

	switch {
	case snap.State == domain.BatchStateCancelled:
		report.Err = fmt.Errorf("%w: %d of %d items unfinished", domain.ErrBatchCancelled, snap.Total-snap.Succeeded, snap.Total)
	case snap.State == domain.BatchStateExhausted:
		report.Err = fmt.Errorf("%w after %d sweeps: %d items still failing", domain.ErrSweepExhausted, snap.Sweep, len(report.Failed))
	case credential > 0:
		report.Err = fmt.Errorf("%d items failed: %w", credential, domain.ErrCredentialExpired)
	case len(report.Failed) > 0:
		report.Err = errors.New("batch finished with failed items")
	}
	return report
}

// modelResolver is implemented by generators that route a requested model to
// one of a fixed set, such as *image.Router.
type modelResolver interface {
	Select(requested string) (image.Generator, string)
}

// metricsLabel keeps metric cardinality bounded by the generator's own model
// set when it can resolve models. Unresolvable names share one label.
func metricsLabel(gen image.Generator, requested string) string {
	if res, ok := gen.(modelResolver); ok {
		_, model := res.Select(requested)
		return modelLabel(model)
	}
	if requested != "" {
		return "custom"
	}
	return modelLabel(requested)
}

func modelLabel(model string) string {
	if model == "" {
		return "default"
	}
	return model
}
