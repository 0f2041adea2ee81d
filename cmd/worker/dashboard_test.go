package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"studio/internal/batch"
	"studio/internal/domain"
)

func TestFanoutForwardsInOrder(t *testing.T) {
	var got []string
	record := func(name string) batch.Reporter {
		return batch.ReporterFunc(func(s domain.BatchSnapshot) {
			got = append(got, fmt.Sprintf("%s:%d", name, s.Seq))
		})
	}
	f := fanout{record("a"), record("b")}
	f.OnProgress(domain.BatchSnapshot{Seq: 1})
	f.OnProgress(domain.BatchSnapshot{Seq: 2})

	want := "a:1,b:1,a:2,b:2"
	if strings.Join(got, ",") != want {
		t.Fatalf("order = %v, want %s", got, want)
	}
}

func TestProgressBarFinishesOnTerminalState(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressBar(&buf)
	p.OnProgress(domain.BatchSnapshot{State: domain.BatchStateRunning, Total: 3})
	p.OnProgress(domain.BatchSnapshot{State: domain.BatchStateRunning, Total: 3, Completed: 2, Sweep: 1, MaxSweeps: 50})
	p.OnProgress(domain.BatchSnapshot{State: domain.BatchStateCompleted, Total: 3, Completed: 3, Sweep: 1, MaxSweeps: 50})

	out := buf.String()
	if !strings.Contains(out, "3/3") {
		t.Fatalf("expected final count in output, got %q", out)
	}
}

func TestRenderSummaryListsEveryItem(t *testing.T) {
	color.NoColor = true
	msg := "content blocked by safety filter"
	report := domain.Report{
		Snapshot: domain.BatchSnapshot{
			ID:    "batch-1",
			State: domain.BatchStateExhausted,
			Sweep: 50,
			Items: []domain.ItemSnapshot{
				{SceneIndex: 1, Status: domain.ItemStatusSucceeded, Attempts: 1, Images: []domain.Image{{URL: "/assets/one.png"}}},
				{SceneIndex: 2, Status: domain.ItemStatusFailed, Attempts: 51, WasRewritten: true, Category: domain.CategoryContentPolicy, ErrorMessage: &msg},
			},
		},
		Err: fmt.Errorf("%w after 50 sweeps", domain.ErrSweepExhausted),
	}
	report.Succeeded = report.Snapshot.Items[:1]
	report.Failed = report.Snapshot.Items[1:]

	var buf bytes.Buffer
	renderSummary(&buf, report)
	out := buf.String()
	for _, want := range []string{"batch-1", "/assets/one.png", "blocked", "51", "1 succeeded, 1 failed, 0 never dispatched"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
}
