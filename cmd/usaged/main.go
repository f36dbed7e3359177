package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/powertothepeople/usage-engine/internal/adapter/http"
	kafkaadapter "github.com/powertothepeople/usage-engine/internal/adapter/kafka"
	"github.com/powertothepeople/usage-engine/internal/adapter/smt"
	"github.com/powertothepeople/usage-engine/internal/config"
	"github.com/powertothepeople/usage-engine/internal/domain"
	"github.com/powertothepeople/usage-engine/internal/observability"
	"github.com/powertothepeople/usage-engine/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Live portal sessions are feature-flagged via PORTAL_ENABLED / PORTAL_BASE_URL.
	var portal domain.PortalClient
	if cfg.PortalEnabled {
		portal = smt.NewClient(cfg.PortalBaseURL, cfg.PortalTimeout, logger)
		logger.Info("live portal enabled", "timeout", cfg.PortalTimeout)
	} else {
		logger.Info("live portal disabled")
	}

	var publisher pipeline.RecordPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("record publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("record publishing disabled")
	}

	extractor := pipeline.New(cfg.Heuristics, portal, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, extractor, cfg.MaxUploadBytes, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
