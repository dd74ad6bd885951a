// Command whisperlm runs the speech-to-text HTTP service: upload,
// transcription, word-level alignment, speaker diarization, and source
// separation over inference sidecars.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/align"
	"github.com/kbukum/whisperlm/internal/api"
	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/auth"
	"github.com/kbukum/whisperlm/internal/component"
	"github.com/kbukum/whisperlm/internal/config"
	"github.com/kbukum/whisperlm/internal/diarize"
	"github.com/kbukum/whisperlm/internal/logger"
	"github.com/kbukum/whisperlm/internal/observability"
	"github.com/kbukum/whisperlm/internal/separate"
	"github.com/kbukum/whisperlm/internal/server"
	"github.com/kbukum/whisperlm/internal/server/middleware"
	"github.com/kbukum/whisperlm/internal/task"
	"github.com/kbukum/whisperlm/internal/transcribe"
	"github.com/kbukum/whisperlm/internal/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "whisperlm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()

	log.Info("Starting whisperlm", map[string]interface{}{
		"version":     cfg.Version,
		"environment": cfg.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Name, cfg.Version, cfg.Environment, cfg.Observability.Tracing)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("Tracer shutdown failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	loader := audio.NewLoader(log)
	engine := transcribe.NewWhisperX(cfg.Whisper)
	alignBackend := align.NewSidecar(cfg.Align)
	aligner := align.NewAligner(cfg.Align, alignBackend, log)

	var diarizer diarize.Backend
	switch {
	case cfg.Diarization.Available():
		diarizer = diarize.NewPyannote(cfg.Diarization)
	case cfg.Diarization.Enabled:
		log.Warn("Diarization enabled without a HuggingFace token, speaker attribution disabled")
	}

	store, err := upload.NewStore(cfg.Upload, log)
	if err != nil {
		return fmt.Errorf("init upload store: %w", err)
	}

	separator := separate.NewSeparator(cfg.Separation, loader, log)
	pipeline := task.NewService(loader, engine, aligner, diarizer, task.Output{
		WordTimestamps: cfg.Output.WordTimestamps(),
		Confidence:     cfg.Output.Confidence(),
	}, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(authMiddleware(cfg))

	handler := api.NewHandler(pipeline, separator, store, engine, api.Info{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, log)
	handler.Register(srv.GinEngine())

	if cfg.Observability.Metrics.Enabled {
		srv.Handle("/metrics", observability.MetricsHandler())
	}

	registry := component.NewRegistry()
	if err := registry.Register(srv); err != nil {
		return err
	}
	if err := registry.StartAll(ctx); err != nil {
		return err
	}

	probeBackends(ctx, engine, alignBackend, diarizer, separator, log)

	<-ctx.Done()
	log.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return registry.StopAll(stopCtx)
}

// authMiddleware builds the bearer-token middleware, or nil when auth is
// disabled.
func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Auth.Enabled {
		return nil
	}
	validator, err := auth.NewValidator(cfg.Auth.JWTSecret)
	if err != nil {
		// Load already validated the secret; this is unreachable in practice.
		panic(err)
	}
	return middleware.Auth(middleware.AuthConfig{
		TokenValidator: validator.Validate,
		SkipPaths:      cfg.Auth.SkipPaths,
	})
}

// probeBackends checks sidecar reachability at startup so misconfiguration
// shows up in the log immediately instead of on the first request.
func probeBackends(ctx context.Context, engine transcribe.Engine, alignBackend align.Backend, diarizer diarize.Backend, separator *separate.Separator, log *logger.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if !engine.IsAvailable(probeCtx) {
		log.Warn("Recognition sidecar is not reachable, transcription requests will fail until it comes up")
	}
	if !alignBackend.IsAvailable(probeCtx) {
		log.Warn("Alignment sidecar is not reachable, responses will lack word timestamps")
	}
	if diarizer != nil && !diarizer.IsAvailable(probeCtx) {
		log.Warn("Diarization sidecar is not reachable, diarization requests will fail until it comes up")
	}
	if !separator.IsAvailable(probeCtx) {
		log.Warn("Separation sidecar is not reachable, separation requests will fail until it comes up")
	}
}
