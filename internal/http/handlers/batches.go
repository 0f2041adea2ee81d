package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/batch"
	"studio/internal/domain"
	"studio/internal/middleware"
)

const maxImagesPerPrompt = 4

type createBatchRequest struct {
	Prompts     []string `json:"prompts"`
	AspectRatio string   `json:"aspect_ratio"`
	Style       string   `json:"style"`
	Count       int      `json:"count"`
	Model       string   `json:"model"`
}

type batchResponse struct {
	ID       string               `json:"id"`
	Snapshot domain.BatchSnapshot `json:"snapshot"`
}

type batchSummary struct {
	ID        string            `json:"id"`
	State     domain.BatchState `json:"state"`
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Active    int               `json:"active"`
	Sweep     int               `json:"sweep"`
	StartedAt time.Time         `json:"started_at"`
}

type reportResponse struct {
	domain.Report
	Error string `json:"error,omitempty"`
}

// CreateBatch validates the prompts and starts a batch. It answers 202 with
// the initial snapshot; clients poll GetBatch for progress.
func (a *App) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Prompts) > a.maxPrompts {
		a.error(w, http.StatusBadRequest, "too_many_prompts", fmt.Sprintf("at most %d prompts per batch", a.maxPrompts))
		return
	}
	aspect := domain.AspectRatio(strings.TrimSpace(req.AspectRatio))
	if aspect != "" && !aspect.Valid() {
		a.error(w, http.StatusBadRequest, "invalid_aspect_ratio", "aspect_ratio must be one of 1:1, 16:9, 9:16, 4:3, 3:4")
		return
	}
	if req.Count < 0 || req.Count > maxImagesPerPrompt {
		a.error(w, http.StatusBadRequest, "invalid_count", fmt.Sprintf("count must be between 1 and %d", maxImagesPerPrompt))
		return
	}
	model, ok := a.resolveModel(req.Model)
	if !ok {
		a.error(w, http.StatusBadRequest, "unknown_model", "model must be one of "+strings.Join(a.models, ", "))
		return
	}

	h, err := a.orch.Submit(a.base, req.Prompts, batch.Options{
		AspectRatio: aspect,
		Style:       strings.TrimSpace(req.Style),
		Count:       req.Count,
		Model:       model,
	})
	switch {
	case errors.Is(err, domain.ErrEmptyBatch):
		a.error(w, http.StatusBadRequest, "empty_batch", "prompts must not be empty")
		return
	case errors.Is(err, domain.ErrInvalidPrompt):
		a.error(w, http.StatusBadRequest, "invalid_prompt", err.Error())
		return
	case errors.Is(err, domain.ErrInvalidAspect):
		a.error(w, http.StatusBadRequest, "invalid_aspect_ratio", err.Error())
		return
	case err != nil:
		a.logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("batch submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start batch")
		return
	}

	a.remember(h)
	a.logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("batch_id", h.ID()).
		Int("prompts", len(req.Prompts)).
		Msg("batch accepted")

	w.Header().Set("Location", "/v1/batches/"+h.ID())
	a.json(w, http.StatusAccepted, batchResponse{ID: h.ID(), Snapshot: h.Snapshot()})
}

// resolveModel accepts an empty model (the server default) or one of the
// registered models, compared case-insensitively.
func (a *App) resolveModel(requested string) (string, bool) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" || len(a.models) == 0 {
		return requested, true
	}
	for _, m := range a.models {
		if strings.ToLower(m) == requested {
			return m, true
		}
	}
	return "", false
}

func (a *App) ListBatches(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	handles := make([]*batch.Handle, 0, len(a.order))
	for i := len(a.order) - 1; i >= 0; i-- {
		handles = append(handles, a.batches[a.order[i]])
	}
	a.mu.RUnlock()

	out := make([]batchSummary, 0, len(handles))
	for _, h := range handles {
		s := h.Snapshot()
		out = append(out, batchSummary{
			ID:        s.ID,
			State:     s.State,
			Total:     s.Total,
			Completed: s.Completed,
			Succeeded: s.Succeeded,
			Failed:    s.Failed,
			Active:    s.Active,
			Sweep:     s.Sweep,
			StartedAt: s.StartedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"batches": out})
}

func (a *App) GetBatch(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}
	a.json(w, http.StatusOK, batchResponse{ID: h.ID(), Snapshot: h.Snapshot()})
}

// GetReport returns the final report, or 409 while the batch is running.
func (a *App) GetReport(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}
	select {
	case <-h.Done():
	default:
		a.error(w, http.StatusConflict, "running", "batch has not finished")
		return
	}
	report, _ := h.Wait(r.Context())
	resp := reportResponse{Report: report}
	if report.Err != nil {
		resp.Error = report.Err.Error()
	}
	a.json(w, http.StatusOK, resp)
}

// CancelBatch requests cooperative cancellation. In-flight generations
// finish; nothing new is dispatched.
func (a *App) CancelBatch(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}
	h.Cancel()
	a.logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("batch_id", h.ID()).
		Msg("batch cancel requested")
	a.json(w, http.StatusAccepted, batchResponse{ID: h.ID(), Snapshot: h.Snapshot()})
}

func (a *App) lookup(id string) (*batch.Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.batches[id]
	return h, ok
}

// remember stores h and evicts the oldest finished batches past the cap.
func (a *App) remember(h *batch.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches[h.ID()] = h
	a.order = append(a.order, h.ID())

	for i := 0; len(a.order) > a.maxRetained && i < len(a.order); {
		old := a.batches[a.order[i]]
		select {
		case <-old.Done():
			delete(a.batches, a.order[i])
			a.order = append(a.order[:i], a.order[i+1:]...)
		default:
			i++
		}
	}
}

// Prune forgets finished batches that ended before cutoff and reports how
// many were dropped. Running batches are always kept.
func (a *App) Prune(cutoff time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.order[:0]
	dropped := 0
	for _, id := range a.order {
		ended := a.batches[id].Snapshot().EndedAt
		if ended != nil && ended.Before(cutoff) {
			delete(a.batches, id)
			dropped++
			continue
		}
		kept = append(kept, id)
	}
	a.order = kept
	return dropped
}
