// Command ingest pulls the character catalog from the configured source
// into the snapshot store, resuming from -page.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	service "github.com/okian/rollbot/internal/app"
	"github.com/okian/rollbot/internal/config"
	"github.com/okian/rollbot/pkg/logger"
)

const stopTimeout = 30 * time.Second

func main() {
	page := flag.Int("page", 0, "First catalog page to fetch (default: catalog_start_page)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Named("ingest")

	start := cfg.CatalogStartPage
	if *page > 0 {
		start = *page
	}
	// ingestion runs in the foreground below
	cfg.IngestOnStart = false

	svc := service.New(cfg)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	res, runErr := svc.Ingest(ctx, start)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		log.Error(ctx, "failed to stop service", logger.Error(err))
	}

	fields := []logger.Field{
		logger.Int("pages", res.Pages),
		logger.Int("added", res.Added),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("next_page", res.NextPage),
		logger.Bool("complete", res.Complete),
	}
	if runErr != nil {
		log.Error(ctx, "ingestion stopped; rerun with -page to resume", append(fields, logger.Error(runErr))...)
		os.Exit(1)
	}
	log.Info(ctx, "ingestion finished", fields...)
}
