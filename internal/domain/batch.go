package domain

import "time"

// BatchState is the aggregate lifecycle of a batch.
type BatchState string

const (
	BatchStateRunning   BatchState = "running"
	BatchStateCompleted BatchState = "completed"
	BatchStateExhausted BatchState = "exhausted"
	BatchStateCancelled BatchState = "cancelled"
)

// Done reports whether no further transitions will happen.
func (s BatchState) Done() bool {
	return s != BatchStateRunning
}

// Image is one generated asset returned by the generation service.
type Image struct {
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ItemSnapshot is a read-only copy of one work item.
type ItemSnapshot struct {
	SceneIndex     int           `json:"scene_index"`
	Prompt         string        `json:"prompt"`
	OriginalPrompt string        `json:"original_prompt"`
	AspectRatio    AspectRatio   `json:"aspect_ratio"`
	Status         ItemStatus    `json:"status"`
	ErrorMessage   *string       `json:"error_message"`
	Category       ErrorCategory `json:"category,omitempty"`
	WasRewritten   bool          `json:"was_rewritten"`
	Attempts       int           `json:"attempts"`
	Permanent      bool          `json:"permanent"`
	Remediation    string        `json:"remediation,omitempty"`
	Images         []Image       `json:"images,omitempty"`
}

// BatchSnapshot is what the progress reporter and API callers see. Seq
// increases with every state transition. Active counts items running or
// queued for a retry.
type BatchSnapshot struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	State     BatchState     `json:"state"`
	Sweep     int            `json:"sweep"`
	MaxSweeps int            `json:"max_sweeps"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Active    int            `json:"active"`
	Items     []ItemSnapshot `json:"items"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// Report is the terminal outcome of a batch. Err is nil when every item
// succeeded. Otherwise it wraps ErrSweepExhausted, ErrBatchCancelled or
// ErrCredentialExpired. Pending lists items a cancellation kept from ever
// being dispatched.
type Report struct {
	Snapshot  BatchSnapshot  `json:"snapshot"`
	Succeeded []ItemSnapshot `json:"succeeded"`
	Failed    []ItemSnapshot `json:"failed"`
	Pending   []ItemSnapshot `json:"pending,omitempty"`
	Err       error          `json:"-"`
}
