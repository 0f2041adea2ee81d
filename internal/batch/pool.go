package batch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// task is one scheduled execution of a work item.
type task struct {
	index   int
	readyAt time.Time
	rewrite bool
}

// pool runs tasks with a fixed ceiling on concurrent executions. Tasks are
// launched in submission order among those whose readyAt has passed, so a
// task cooling down never holds a slot and never delays its neighbours.
type pool struct {
	limit   int
	limiter *rate.Limiter
}

func newPool(limit int, dispatchRate float64, burst int) *pool {
	if limit <= 0 {
		limit = 1
	}
	p := &pool{limit: limit}
	if dispatchRate > 0 {
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(dispatchRate), burst)
	}
	return p
}

// run executes every task exactly once unless stop is cancelled first. Once
// stop is done no further task is launched; executions already running are
// waited for. The tasks that were never launched are returned.
func (p *pool) run(stop context.Context, tasks []task, process func(task)) []task {
	pending := append([]task(nil), tasks...)
	done := make(chan struct{}, len(tasks))
	stopCh := stop.Done()
	active := 0

	for {
		if stop.Err() == nil {
			p.launch(stop, &pending, &active, done, process)
		} else {
			stopCh = nil
		}

		if active == 0 && (len(pending) == 0 || stop.Err() != nil) {
			return pending
		}

		var (
			timer *time.Timer
			wake  <-chan time.Time
		)
		if stop.Err() == nil && active < p.limit && len(pending) > 0 {
			timer = time.NewTimer(time.Until(earliest(pending)))
			wake = timer.C
		}

		select {
		case <-done:
			active--
		case <-wake:
		case <-stopCh:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (p *pool) launch(stop context.Context, pending *[]task, active *int, done chan<- struct{}, process func(task)) {
	for *active < p.limit {
		i := nextReady(*pending, time.Now())
		if i < 0 {
			return
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(stop); err != nil {
				return
			}
		}
		t := (*pending)[i]
		*pending = append((*pending)[:i], (*pending)[i+1:]...)
		*active++
		go func() {
			defer func() { done <- struct{}{} }()
			process(t)
		}()
	}
}

func nextReady(tasks []task, now time.Time) int {
	for i, t := range tasks {
		if !t.readyAt.After(now) {
			return i
		}
	}
	return -1
}

func earliest(tasks []task) time.Time {
	at := tasks[0].readyAt
	for _, t := range tasks[1:] {
		if t.readyAt.Before(at) {
			at = t.readyAt
		}
	}
	return at
}
