package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/feedbacklab/feedback-analyzer/internal/adapters/http"
	"github.com/feedbacklab/feedback-analyzer/internal/bootstrap"
	"github.com/feedbacklab/feedback-analyzer/internal/config"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/logging"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	if _, err := app.IndexCorpus(indexCtx); err != nil {
		cancel()
		log.Fatalf("index corpus error: %v", err)
	}
	cancel()

	m := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.AnalyzeUC, app.DatasetUC, m, "api").Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort, "default_strategy", cfg.DefaultStrategy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
