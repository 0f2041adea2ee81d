package batch

import (
	"strings"
	"time"

	"studio/internal/domain"
)

const (
	DefaultConcurrency      = 3
	DefaultMaxSweeps        = 50
	DefaultSweepDelay       = 2 * time.Second
	DefaultThrottleCooldown = 5 * time.Second
)

// Options tune one batch. Zero values fall back to the orchestrator defaults
// and then to the package defaults above.
type Options struct {
	Concurrency      int
	MaxSweeps        int
	SweepDelay       time.Duration
	ThrottleCooldown time.Duration

	AspectRatio domain.AspectRatio
	Style       string
	Count       int
	Model       string

	// DispatchRate caps generation calls per second across the batch. Zero
	// leaves dispatch limited by Concurrency alone.
	DispatchRate  float64
	DispatchBurst int

	Reporter Reporter
}

func (o Options) withDefaults(base Options) Options {
	if o.Concurrency <= 0 {
		o.Concurrency = base.Concurrency
	}
	if o.MaxSweeps <= 0 {
		o.MaxSweeps = base.MaxSweeps
	}
	if o.SweepDelay <= 0 {
		o.SweepDelay = base.SweepDelay
	}
	if o.ThrottleCooldown <= 0 {
		o.ThrottleCooldown = base.ThrottleCooldown
	}
	if strings.TrimSpace(string(o.AspectRatio)) == "" {
		o.AspectRatio = base.AspectRatio
	}
	if o.Style == "" {
		o.Style = base.Style
	}
	if o.Count <= 0 {
		o.Count = base.Count
	}
	if o.Model == "" {
		o.Model = base.Model
	}
	if o.DispatchRate <= 0 {
		o.DispatchRate = base.DispatchRate
	}
	if o.DispatchBurst <= 0 {
		o.DispatchBurst = base.DispatchBurst
	}

	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxSweeps <= 0 {
		o.MaxSweeps = DefaultMaxSweeps
	}
	if o.SweepDelay <= 0 {
		o.SweepDelay = DefaultSweepDelay
	}
	if o.ThrottleCooldown <= 0 {
		o.ThrottleCooldown = DefaultThrottleCooldown
	}
	if o.AspectRatio == "" {
		o.AspectRatio = domain.DefaultAspectRatio
	}
	if o.Count <= 0 {
		o.Count = 1
	}
	return o
}
