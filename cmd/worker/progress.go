package main

import (
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
)

// progressLogger logs a line whenever the batch advances: an item settles,
// a sweep starts, or the batch finishes. Intermediate transitions go to
// debug.
type progressLogger struct {
	logger infra.Logger

	mu        sync.Mutex
	completed int
	sweep     int
	state     domain.BatchState
}

func newProgressLogger(logger infra.Logger) *progressLogger {
	return &progressLogger{logger: logger, completed: -1}
}

func (p *progressLogger) OnProgress(s domain.BatchSnapshot) {
	p.mu.Lock()
	changed := s.Completed != p.completed || s.Sweep != p.sweep || s.State != p.state
	p.completed, p.sweep, p.state = s.Completed, s.Sweep, s.State
	p.mu.Unlock()

	event := p.logger.Debug()
	if changed {
		event = p.logger.Info()
	}
	event.
		Str("batch_id", s.ID).
		Int64("seq", s.Seq).
		Str("state", string(s.State)).
		Int("completed", s.Completed).
		Int("total", s.Total).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("sweep", s.Sweep).
		Msg("batch progress")
}
