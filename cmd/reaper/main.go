// Command reaper purges expired snippets from a shared store, optionally
// archiving them to MinIO first. It runs the same sweeper the service can
// host in-process, for deployments that prefer a separate job.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pastebin/pastebin/internal/config"
	"github.com/pastebin/pastebin/internal/retention"
	"github.com/pastebin/pastebin/internal/snippet/repository"
	"github.com/pastebin/pastebin/internal/storage"
	"github.com/pastebin/pastebin/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Snippet.Store == config.StoreMemory {
		logger.Fatalf("reaper needs a shared store; SNIPPET_STORE=memory only lives inside the service process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Snippet.Store, err)
	}
	defer closeStore()

	opts := retention.Options{
		Interval: cfg.Retention.Interval,
		Grace:    cfg.Retention.Grace,
		Batch:    cfg.Retention.Batch,
	}
	if cfg.MinIO.Enabled() {
		arch, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Fatalf("failed to initialize archive: %v", err)
		}
		opts.Archiver = arch
		logger.Infof("archiving purged snippets to %s/%s", cfg.MinIO.Endpoint, cfg.MinIO.Bucket)
	}
	sweeper := retention.NewSweeper(store, opts)

	if *once {
		n, err := sweeper.SweepOnce(ctx)
		if err != nil {
			logger.Errorf("sweep failed after %d deletions: %v", n, err)
			closeStore()
			os.Exit(1)
		}
		logger.Infof("sweep complete: %d snippets purged", n)
		return
	}

	sweeper.Run(ctx)
}
