package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"studio/internal/batch"
	"studio/internal/bootstrap"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/storage"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var (
		promptsFlag string
		aspectFlag  string
		styleFlag   string
		countFlag   int
		modelFlag   string
		outFlag     string
		reportFlag  string
		barFlag     bool
		summaryFlag bool
	)
	flag.StringVar(&promptsFlag, "prompts", "-", "file with one prompt per line, - for stdin")
	flag.StringVar(&aspectFlag, "aspect", "", "aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)")
	flag.StringVar(&styleFlag, "style", "", "visual style appended to every prompt")
	flag.IntVar(&countFlag, "count", 0, "images per prompt (1-4)")
	flag.StringVar(&modelFlag, "model", "", "image model, defaults to IMAGE_MODEL")
	flag.StringVar(&outFlag, "out", "", "directory for generated images, defaults to STORAGE_PATH")
	flag.StringVar(&reportFlag, "report", "-", "where to write the JSON report, - for stdout")
	flag.BoolVar(&barFlag, "bar", false, "draw a progress bar on stderr instead of logging every step")
	flag.BoolVar(&summaryFlag, "summary", true, "print a per-item summary table on stderr when the batch ends")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitUsage
	}
	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv).With().Str("cmd", "worker").Logger()

	aspect := domain.AspectRatio(strings.TrimSpace(aspectFlag))
	if aspect != "" && !aspect.Valid() {
		logger.Error().Str("aspect", aspectFlag).Msg("worker: unsupported aspect ratio")
		return exitUsage
	}
	if countFlag < 0 || countFlag > 4 {
		logger.Error().Int("count", countFlag).Msg("worker: count must be between 1 and 4")
		return exitUsage
	}

	prompts, err := loadPrompts(promptsFlag)
	if err != nil {
		logger.Error().Err(err).Msg("worker: cannot read prompts")
		return exitUsage
	}

	outDir := strings.TrimSpace(outFlag)
	if outDir == "" {
		outDir = cfg.StoragePath
	}
	store, err := storage.NewFileStore(outDir, "")
	if err != nil {
		logger.Error().Err(err).Msg("worker: failed to configure storage")
		return exitUsage
	}

	svc, err := bootstrap.Build(cfg, &logger, store)
	if err != nil {
		logger.Error().Err(err).Msg("worker: failed to wire services")
		return exitUsage
	}

	var reporter batch.Reporter = newProgressLogger(logger)
	if barFlag {
		quiet := logger.Level(zerolog.WarnLevel)
		reporter = fanout{newProgressLogger(quiet), newProgressBar(os.Stderr)}
	}

	h, err := svc.Orchestrator.Submit(context.Background(), prompts, batch.Options{
		AspectRatio: aspect,
		Style:       strings.TrimSpace(styleFlag),
		Count:       countFlag,
		Model:       strings.TrimSpace(modelFlag),
		Reporter:    reporter,
	})
	if err != nil {
		logger.Error().Err(err).Msg("worker: batch rejected")
		return exitUsage
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-sigCtx.Done():
			// A second signal falls through to the default handler.
			stop()
			logger.Warn().Str("batch_id", h.ID()).Msg("worker: interrupt received, finishing in-flight generations")
			h.Cancel()
		case <-h.Done():
		}
	}()

	report, err := h.Wait(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("worker: wait failed")
		return exitFailed
	}

	if summaryFlag {
		renderSummary(os.Stderr, report)
	}
	if err := writeReport(reportFlag, report); err != nil {
		logger.Error().Err(err).Msg("worker: cannot write report")
		return exitFailed
	}
	return exitCode(report)
}

func loadPrompts(path string) ([]string, error) {
	if path == "" || path == "-" {
		return readPrompts(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPrompts(f)
}

// readPrompts returns one prompt per non-blank line. Lines starting with
// # are comments.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return prompts, nil
}

type reportOutput struct {
	domain.Report
	Error string `json:"error,omitempty"`
}

func writeReport(path string, report domain.Report) error {
	out := reportOutput{Report: report}
	if report.Err != nil {
		out.Error = report.Err.Error()
	}

	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func exitCode(report domain.Report) int {
	if report.Err == nil {
		return exitOK
	}
	if errors.Is(report.Err, domain.ErrBatchCancelled) {
		return 130
	}
	return exitFailed
}
