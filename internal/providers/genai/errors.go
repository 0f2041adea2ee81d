package genai

import (
	"fmt"
	"strings"

	"studio/internal/domain"
)

// APIError is a non-2xx response from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gemini status %d", e.StatusCode)
	if e.Status != "" {
		b.WriteString(" ")
		b.WriteString(e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// HTTPStatus exposes the response code to error classifiers.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// BlockedError reports a prompt or candidate rejected by Gemini safety filters.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("gemini: prompt blocked (%s): unsafe content", e.Reason)
}

func (e *BlockedError) Unwrap() error {
	return domain.ErrContentPolicy
}

var blockedFinishReasons = map[string]struct{}{
	"SAFETY":             {},
	"PROHIBITED_CONTENT": {},
	"IMAGE_SAFETY":       {},
	"BLOCKLIST":          {},
	"SPII":               {},
}

func isBlockedFinish(reason string) bool {
	_, ok := blockedFinishReasons[strings.ToUpper(strings.TrimSpace(reason))]
	return ok
}
