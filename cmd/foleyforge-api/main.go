package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foleyforge/internal/analysis"
	"foleyforge/internal/config"
	"foleyforge/internal/generation"
	"foleyforge/internal/httpapi"
	"foleyforge/internal/observability"
	"foleyforge/internal/pipeline"
	"foleyforge/internal/upstream/gemini"
	"foleyforge/internal/upstream/mirelo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	metrics := observability.NewMetrics()

	// The analysis call carries no client-side timeout; cancellation comes
	// from the inbound request context alone. Each generation attempt gets
	// its own deadline in the generation service.
	analysisClient := &http.Client{Transport: newTransport(nil)}

	var generationTLS *tls.Config
	if cfg.InsecureSkipVerify {
		logger.Warn("TLS verification disabled for generation upstream")
		generationTLS = &tls.Config{InsecureSkipVerify: true}
	}
	generationClient := &http.Client{Transport: newTransport(generationTLS)}

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, analysisClient, gemini.WithObserver(metrics.ObserveUpstream))
	mireloClient := mirelo.New(cfg.MireloBaseURL, cfg.MireloAPIKey, generationClient, mirelo.WithObserver(metrics.ObserveUpstream))

	analysisService := analysis.New(geminiClient, cfg.AnalysisModel)
	generationService := generation.New(mireloClient, logger, metrics, generation.Options{
		ReferenceVideoURL: cfg.ReferenceVideoURL,
		ModelVersion:      cfg.MireloModelVersion,
		VariationCount:    cfg.VariationCount,
		SeedStride:        cfg.SeedStride,
		AttemptTimeout:    cfg.GenerationTimeout,
	})
	pipelineService := pipeline.New(analysisService, generationService, logger)

	handler := httpapi.NewServer(cfg, logger, httpapi.Dependencies{
		Pipeline:       pipelineService,
		Upstream:       geminiClient,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newTransport(tlsConfig *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig,
	}
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
