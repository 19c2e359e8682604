package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/trendybets/propcore/internal/app"
	"github.com/trendybets/propcore/internal/config"
	"github.com/trendybets/propcore/internal/observability"
	"github.com/trendybets/propcore/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	zapLogger := logging.NewJSON(cfg.LogLevel)
	if cfg.BetterStackEnabled {
		mirrored, flush, err := observability.InitBetterStackLogger(cfg, zapLogger)
		if err != nil {
			logger.Error("betterstack logger init failed", "error", err)
			os.Exit(1)
		}
		zapLogger = mirrored
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.BetterStackTimeout)
			defer cancel()
			_ = flush(flushCtx)
		}()
	}
	logging.SetDefault(zapLogger)

	shutdownTracing, err := observability.InitUptrace(cfg, zapLogger)
	if err != nil {
		logger.Error("uptrace init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("pyroscope init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stopProfiling() }()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("pprof server init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = observability.StopPprofServer(pprofSrv, logger, 5*time.Second) }()

	srv, cleanup, err := app.NewHTTPServer(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if err := cleanup(shutdownCtx); err != nil {
		logger.Error("cleanup failed", "error", err)
	}

	logger.Info("http server stopped")
}

func slogLevel(level logging.Level) slog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return slog.LevelDebug
	case level == zapcore.InfoLevel:
		return slog.LevelInfo
	case level == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
