package domain

import "fmt"

// ItemStatus enumerates the lifecycle of a single work item.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusSucceeded  ItemStatus = "succeeded"
	ItemStatusFailed     ItemStatus = "failed"
	ItemStatusRetrying   ItemStatus = "retrying"
)

// AspectRatio is the requested frame shape, e.g. "16:9".
type AspectRatio string

const DefaultAspectRatio AspectRatio = "16:9"

var supportedAspectRatios = map[AspectRatio]struct{}{
	"1:1": {}, "16:9": {}, "9:16": {}, "4:3": {}, "3:4": {},
}

// Valid reports whether the generation services accept the ratio.
func (a AspectRatio) Valid() bool {
	_, ok := supportedAspectRatios[a]
	return ok
}

// CanTransition enforces the work item state machine edges.
//
//	pending     -> in_progress
//	in_progress -> succeeded | failed
//	failed      -> retrying
//	retrying    -> in_progress | failed
//
// retrying -> failed covers a rewrite that itself failed and a retry that
// was cancelled before it was re-dispatched.
func CanTransition(from, to ItemStatus) bool {
	switch from {
	case ItemStatusPending:
		return to == ItemStatusInProgress
	case ItemStatusInProgress:
		return to == ItemStatusSucceeded || to == ItemStatusFailed
	case ItemStatusFailed:
		return to == ItemStatusRetrying
	case ItemStatusRetrying:
		return to == ItemStatusInProgress || to == ItemStatusFailed
	default:
		return false
	}
}

// ValidateTransition wraps ErrInvalidTransition with the offending edge.
func ValidateTransition(from, to ItemStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// IsActive reports whether the status means the item is owned by a pool slot
// or waiting for one.
func (s ItemStatus) IsActive() bool {
	return s == ItemStatusInProgress || s == ItemStatusRetrying
}

// ErrorCategory is the closed failure taxonomy used to pick a recovery.
type ErrorCategory string

const (
	CategoryNone              ErrorCategory = ""
	CategoryCredentialExpired ErrorCategory = "credential_expired"
	CategoryContentPolicy     ErrorCategory = "content_policy"
	CategoryRateLimited       ErrorCategory = "rate_limited"
	CategoryUnknown           ErrorCategory = "unknown"
)

// Recovery is the remediation bound to an error category.
type Recovery string

const (
	RecoveryAbort    Recovery = "abort"
	RecoveryRewrite  Recovery = "rewrite"
	RecoveryCooldown Recovery = "cooldown"
	RecoveryRetry    Recovery = "retry"
)

// Recovery returns the fixed recovery action for the category. Anything
// outside the taxonomy is treated as unknown.
func (c ErrorCategory) Recovery() Recovery {
	switch c {
	case CategoryCredentialExpired:
		return RecoveryAbort
	case CategoryContentPolicy:
		return RecoveryRewrite
	case CategoryRateLimited:
		return RecoveryCooldown
	default:
		return RecoveryRetry
	}
}

// Fatal reports whether items in this category must never be retried.
func (c ErrorCategory) Fatal() bool {
	return c.Recovery() == RecoveryAbort
}
