package batch

import (
	"sync"
	"time"

	"studio/internal/domain"
)

type workItem struct {
	sceneIndex   int
	prompt       string
	original     string
	aspect       domain.AspectRatio
	status       domain.ItemStatus
	errMsg       *string
	category     domain.ErrorCategory
	wasRewritten bool
	attempts     int
	permanent    bool
	remediation  string
	images       []domain.Image
	failedAt     time.Time
}

func (it *workItem) snapshot() domain.ItemSnapshot {
	snap := domain.ItemSnapshot{
		SceneIndex:     it.sceneIndex,
		Prompt:         it.prompt,
		OriginalPrompt: it.original,
		AspectRatio:    it.aspect,
		Status:         it.status,
		Category:       it.category,
		WasRewritten:   it.wasRewritten,
		Attempts:       it.attempts,
		Permanent:      it.permanent,
		Remediation:    it.remediation,
	}
	if it.errMsg != nil {
		msg := *it.errMsg
		snap.ErrorMessage = &msg
	}
	if len(it.images) > 0 {
		snap.Images = append([]domain.Image(nil), it.images...)
	}
	return snap
}

// retryable reports whether the sweep controller may pick the item up again.
func (it *workItem) retryable() bool {
	return it.status == domain.ItemStatusFailed && !it.permanent
}

// batchState owns every work item of one batch. All mutations go through
// update so each one yields exactly one sequenced snapshot.
type batchState struct {
	mu        sync.Mutex
	id        string
	items     []*workItem
	state     domain.BatchState
	sweep     int
	maxSweeps int
	seq       int64
	startedAt time.Time
	endedAt   *time.Time
	notifier  *notifier
}

func newBatchState(id string, prompts []string, aspect domain.AspectRatio, maxSweeps int, n *notifier) *batchState {
	items := make([]*workItem, len(prompts))
	for i, p := range prompts {
		items[i] = &workItem{
			sceneIndex: i + 1,
			prompt:     p,
			original:   p,
			aspect:     aspect,
			status:     domain.ItemStatusPending,
		}
	}
	return &batchState{
		id:        id,
		items:     items,
		state:     domain.BatchStateRunning,
		maxSweeps: maxSweeps,
		startedAt: time.Now().UTC(),
		notifier:  n,
	}
}

// update runs fn under the lock. When fn succeeds the sequence advances and
// the new snapshot is published after the lock is released.
func (s *batchState) update(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notifier.publish(snap)
	return nil
}

// transition moves one item along the state machine and applies mutate to
// it. attempts grows on every fresh execution and on every sweep pick-up.
func (s *batchState) transition(idx int, to domain.ItemStatus, mutate func(it *workItem)) error {
	return s.update(func() error {
		it := s.items[idx]
		from := it.status
		if err := domain.ValidateTransition(from, to); err != nil {
			return err
		}
		it.status = to
		if (from == domain.ItemStatusPending && to == domain.ItemStatusInProgress) ||
			(from == domain.ItemStatusFailed && to == domain.ItemStatusRetrying) {
			it.attempts++
		}
		if mutate != nil {
			mutate(it)
		}
		return nil
	})
}

func (s *batchState) view(idx int) workItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[idx]
}

func (s *batchState) retryableIndexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i, it := range s.items {
		if it.retryable() {
			out = append(out, i)
		}
	}
	return out
}

func (s *batchState) sweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep
}

func (s *batchState) snapshot() domain.BatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *batchState) snapshotLocked() domain.BatchSnapshot {
	snap := domain.BatchSnapshot{
		ID:        s.id,
		Seq:       s.seq,
		State:     s.state,
		Sweep:     s.sweep,
		MaxSweeps: s.maxSweeps,
		Total:     len(s.items),
		Items:     make([]domain.ItemSnapshot, len(s.items)),
		StartedAt: s.startedAt,
	}
	for i, it := range s.items {
		snap.Items[i] = it.snapshot()
		if it.status.IsActive() {
			snap.Active++
		}
		switch {
		case it.status == domain.ItemStatusSucceeded:
			snap.Succeeded++
			snap.Completed++
		case it.status == domain.ItemStatusFailed:
			snap.Failed++
			if it.permanent {
				snap.Completed++
			}
		}
	}
	if s.endedAt != nil {
		ended := *s.endedAt
		snap.EndedAt = &ended
	}
	return snap
}
