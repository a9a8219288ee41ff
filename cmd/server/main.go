// Package main is the entry point for the grok-pipe HTTP bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/grok-manifold/internal/adapter"
	"github.com/hpn/grok-manifold/internal/config"
	"github.com/hpn/grok-manifold/internal/handler"
	"github.com/hpn/grok-manifold/internal/logging"
	"github.com/hpn/grok-manifold/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to grok-pipe.yaml")
	flag.Parse()

	// =========================================================================
	// 1. Load configuration (Singleton)
	// =========================================================================
	cfg, err := config.GetConfigWithPath(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// =========================================================================
	// 2. Structured logger, redacting the API key
	// =========================================================================
	logger := logging.Setup(cfg.Logging, os.Stdout, cfg.Grok.APIKey)

	ui.PrintBanner()
	logger.Info("configuration loaded",
		slog.String("address", cfg.Server.Address()),
		slog.String("base_url", cfg.Grok.BaseURL),
		slog.Bool("api_key_set", cfg.Grok.APIKey != ""),
		slog.Bool("stream_default", cfg.Grok.Stream),
	)
	if cfg.Grok.APIKey == "" {
		logger.Warn("GROK_API_KEY is not set; upstream calls will be rejected")
		ui.PrintInfo("GROK_API_KEY is not set, model listing will come back empty")
	}

	// =========================================================================
	// 3. Adapter, handler, router
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, cache := newServer(cfg, logger)
	defer cache.Close()

	// =========================================================================
	// 4. Start HTTP server with graceful shutdown
	// =========================================================================
	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr))
		ui.PrintStartupInfo(srv.Addr, cfg.Grok.BaseURL, cfg.Grok.APIKey != "")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// newServer builds the HTTP server for cfg. The returned cache must be closed by the caller.
func newServer(cfg *config.Configuration, logger *slog.Logger) (*http.Server, *handler.ResponseCache) {
	pipe := adapter.NewGrokAdapterFromConfig(cfg.Grok, adapter.WithLogger(logger))

	cache := handler.NewResponseCache(handler.WithCacheLogger(logger))
	h := handler.NewPipeHandler(pipe, handler.WithLogger(logger))

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.NewRouter(h, cache, logger),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	return srv, cache
}
