package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyBatch        = errors.New("batch has no prompts")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrInvalidAspect     = errors.New("unsupported aspect ratio")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProviderFailure   = errors.New("provider failure")

	// Failure taxonomy. Providers may wrap these so classification does not
	// depend on message text.
	ErrCredentialExpired = errors.New("credential expired")
	ErrContentPolicy     = errors.New("content policy rejected")
	ErrRateLimited       = errors.New("rate limited")
	ErrSweepExhausted    = errors.New("sweep budget exhausted")
	ErrBatchCancelled    = errors.New("batch cancelled")
)

// CredentialRemediation is attached to items that failed because the
// generation service no longer accepts the configured credentials.
const CredentialRemediation = "Generation credentials are invalid or expired. Refresh the API key or sign in again, then resubmit the failed scenes."
