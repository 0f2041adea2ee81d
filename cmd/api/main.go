package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"studio/internal/bootstrap"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.AssetURLPrefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	svc, err := bootstrap.Build(cfg, &logger, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to wire services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Batches outlive the request that created them but stop with the process.
	app := handlers.NewApp(svc.Orchestrator, handlers.Options{
		BaseContext: ctx,
		Logger:      &logger,
		Models:      svc.Images.Models(),
		Assets:      store,
	})

	root := chi.NewRouter()
	if cfg.AssetURLPrefix != "" {
		root.Mount(cfg.AssetURLPrefix, store.Handler())
	}
	root.Mount("/", httpapi.NewRouter(app, logger, cfg.RateLimitPerMin))

	server := infra.NewHTTPServer(cfg, root)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Str("image_model", cfg.ImageModel).Msg("api: listening")
		return server.Run(gctx)
	})
	g.Go(func() error {
		pruneFinished(gctx, app, cfg.Batch.Retention, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("api: server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("api: server stopped")
}

// pruneFinished drops finished batches older than retention until ctx ends.
func pruneFinished(ctx context.Context, app *handlers.App, retention time.Duration, logger infra.Logger) {
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := app.Prune(now.Add(-retention)); n > 0 {
				logger.Debug().Int("batches", n).Msg("api: pruned finished batches")
			}
		}
	}
}
