package batch

import (
	"sync"

	"studio/internal/domain"
)

// Reporter receives a snapshot after every state transition of a batch.
// Calls for one batch are serialized and carry strictly increasing Seq
// values. Implementations must not block for long; dispatching waits on them.
type Reporter interface {
	OnProgress(snapshot domain.BatchSnapshot)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(snapshot domain.BatchSnapshot)

func (f ReporterFunc) OnProgress(snapshot domain.BatchSnapshot) { f(snapshot) }

// notifier delivers snapshots in sequence order and drops any that arrive
// after a newer one was already delivered.
type notifier struct {
	mu       sync.Mutex
	last     int64
	reporter Reporter
}

func newNotifier(r Reporter) *notifier {
	return &notifier{reporter: r}
}

func (n *notifier) publish(snap domain.BatchSnapshot) {
	if n == nil || n.reporter == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if snap.Seq <= n.last {
		return
	}
	n.last = snap.Seq
	n.reporter.OnProgress(snap)
}
