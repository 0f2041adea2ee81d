package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

func TestReadPromptsSkipsBlankAndCommentLines(t *testing.T) {
	input := "# storyboard\n\nscene one: a harbour\n   \n  scene two: a market  \n#skip\nscene three\n"
	prompts, err := readPrompts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readPrompts: %v", err)
	}
	want := []string{"scene one: a harbour", "scene two: a market", "scene three"}
	if strings.Join(prompts, "|") != strings.Join(want, "|") {
		t.Fatalf("prompts = %q, want %q", prompts, want)
	}
}

func TestReadPromptsEmptyInput(t *testing.T) {
	if _, err := readPrompts(strings.NewReader("\n# nothing\n")); !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w after 50 sweeps", domain.ErrSweepExhausted), exitFailed},
		{fmt.Errorf("1 items failed: %w", domain.ErrCredentialExpired), exitFailed},
		{fmt.Errorf("%w: 2 of 3 items unfinished", domain.ErrBatchCancelled), 130},
	}
	for _, tc := range tests {
		if got := exitCode(domain.Report{Err: tc.err}); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestProgressLoggerPromotesMeaningfulChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	p := newProgressLogger(logger)

	p.OnProgress(domain.BatchSnapshot{ID: "b", Seq: 1, State: domain.BatchStateRunning, Total: 2})
	p.OnProgress(domain.BatchSnapshot{ID: "b", Seq: 2, State: domain.BatchStateRunning, Total: 2})
	p.OnProgress(domain.BatchSnapshot{ID: "b", Seq: 3, State: domain.BatchStateRunning, Total: 2, Completed: 1})
	p.OnProgress(domain.BatchSnapshot{ID: "b", Seq: 4, State: domain.BatchStateCompleted, Total: 2, Completed: 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 info lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], `"state":"completed"`) {
		t.Fatalf("last line missing final state: %s", lines[2])
	}
}
