package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pastebin/pastebin/handlers"
	"github.com/pastebin/pastebin/internal/config"
	"github.com/pastebin/pastebin/internal/retention"
	"github.com/pastebin/pastebin/internal/snippet/handler"
	"github.com/pastebin/pastebin/internal/snippet/repository"
	"github.com/pastebin/pastebin/internal/snippet/service"
	"github.com/pastebin/pastebin/internal/storage"
	"github.com/pastebin/pastebin/pkg/logger"
	"github.com/pastebin/pastebin/pkg/metrics"
	"github.com/pastebin/pastebin/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s env=%s retention=%v archive=%v",
		cfg.Snippet.Store, cfg.Server.Environment, cfg.Retention.Enabled, cfg.MinIO.Enabled())

	if strings.EqualFold(cfg.Server.Environment, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Snippet.Store, err)
	}
	defer closeStore()

	deps := map[string]repository.Pinger{"store": store}
	svc := service.New(store)

	if cfg.Retention.Enabled {
		opts := retention.Options{
			Interval: cfg.Retention.Interval,
			Grace:    cfg.Retention.Grace,
			Batch:    cfg.Retention.Batch,
		}
		if cfg.MinIO.Enabled() {
			arch, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
			if err != nil {
				logger.Warnf("archive disabled: %v", err)
			} else {
				opts.Archiver = arch
				deps["archive"] = arch
			}
		}
		go retention.NewSweeper(store, opts).Run(ctx)
	}

	r := gin.New()
	r.Use(middleware.CORS(), gin.Logger(), gin.Recovery(), middleware.RequestMetrics())

	handlers.RegisterHealth(r, startTime, deps)
	handlers.RegisterSwagger(r)
	handler.RegisterSnippetRoutes(r, svc, handler.Options{
		RecentCount: cfg.Snippet.RecentCount,
		RecentMax:   cfg.Snippet.RecentMax,
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("pastebin listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
