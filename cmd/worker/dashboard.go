package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"studio/internal/batch"
	"studio/internal/domain"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// fanout forwards every snapshot to each reporter in order.
type fanout []batch.Reporter

func (f fanout) OnProgress(s domain.BatchSnapshot) {
	for _, r := range f {
		r.OnProgress(s)
	}
}

// progressBar draws settled items against the batch total on w.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *progressbar.ProgressBar
	sweep int
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, sweep: -1}
}

func (p *progressBar) OnProgress(s domain.BatchSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(s.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("Generating"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
		)
	}
	if s.Sweep != p.sweep {
		p.sweep = s.Sweep
		if s.Sweep > 0 {
			p.bar.Describe(fmt.Sprintf("Sweep %d/%d", s.Sweep, s.MaxSweeps))
		}
	}
	_ = p.bar.Set(s.Completed)
	if s.State.Done() {
		_ = p.bar.Finish()
		fmt.Fprintln(p.w)
	}
}

// renderSummary prints one row per item followed by a colored verdict.
func renderSummary(w io.Writer, report domain.Report) {
	snap := report.Snapshot
	bold.Fprintf(w, "Batch %s: %s after %d sweep(s)\n", snap.ID, snap.State, snap.Sweep)

	table := tablewriter.NewWriter(w)
	table.Header("Scene", "Status", "Attempts", "Rewritten", "Category", "Detail")
	for _, item := range snap.Items {
		detail := ""
		switch {
		case item.Remediation != "":
			detail = item.Remediation
		case item.ErrorMessage != nil:
			detail = truncate(*item.ErrorMessage, 60)
		case len(item.Images) > 0:
			detail = item.Images[0].URL
		}
		rewritten := ""
		if item.WasRewritten {
			rewritten = "yes"
		}
		_ = table.Append(
			strconv.Itoa(item.SceneIndex),
			string(item.Status),
			strconv.Itoa(item.Attempts),
			rewritten,
			string(item.Category),
			detail,
		)
	}
	_ = table.Render()

	verdict := fmt.Sprintf("%d succeeded, %d failed, %d never dispatched",
		len(report.Succeeded), len(report.Failed), len(report.Pending))
	switch {
	case report.Err == nil:
		green.Fprintln(w, verdict)
	case snap.State == domain.BatchStateCancelled:
		yellow.Fprintln(w, verdict)
	default:
		red.Fprintln(w, verdict)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
