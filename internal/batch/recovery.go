package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/providers/prompt"
)

// errRewriteUnchanged is returned when the rewrite service hands back the
// prompt it was given.
var errRewriteUnchanged = errors.New("rewrite returned the original prompt")

// recoverer turns a failed item into the task that re-dispatches it,
// according to the recovery bound to the item's error category.
type recoverer struct {
	rewriter prompt.Rewriter
	minWords int
	maxWords int
	cooldown time.Duration
}

// plan reports false for categories that must not be retried.
func (r *recoverer) plan(idx int, it workItem) (task, bool) {
	t := task{index: idx}
	switch it.category.Recovery() {
	case domain.RecoveryAbort:
		return task{}, false
	case domain.RecoveryRewrite:
		t.rewrite = true
	case domain.RecoveryCooldown:
		t.readyAt = it.failedAt.Add(r.cooldown)
	}
	return t, true
}

// rewrite asks the rewrite service for a policy-compliant version of the
// prompt. An empty or unchanged answer counts as a failed rewrite.
func (r *recoverer) rewrite(ctx context.Context, current, targetModel string) (string, error) {
	out, err := r.rewriter.Rewrite(ctx, prompt.RewriteRequest{
		Prompt:      current,
		TargetModel: targetModel,
		MinWords:    r.minWords,
		MaxWords:    r.maxWords,
	})
	if err != nil {
		return "", fmt.Errorf("prompt rewrite failed: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("prompt rewrite failed: %w", prompt.ErrEmptyRewrite)
	}
	if out == strings.TrimSpace(current) {
		return "", fmt.Errorf("prompt rewrite failed: %w", errRewriteUnchanged)
	}
	return out, nil
}
