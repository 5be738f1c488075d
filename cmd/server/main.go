// Command server starts the card fraud inference API.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-config  Path to the YAML configuration file (default: configs/default.yaml)
//	-port    HTTP port to listen on; overrides config and PORT when set
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cardfraud/inference-api/internal/api"
	"cardfraud/inference-api/internal/config"
	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/metrics"
	"cardfraud/inference-api/internal/model"
	"cardfraud/inference-api/internal/scoring"
	"cardfraud/inference-api/internal/tracing"
	"cardfraud/inference-api/internal/webhook"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config and PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Port = *port
	}

	slog.SetDefault(newLogger(cfg))

	// ── Tracing ───────────────────────────────────────────────────────────────
	shutdownTracing := func(context.Context) error { return nil }
	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracerProvider(cfg.ServiceName, cfg.JaegerEndpoint, cfg.TraceRatio)
		if err != nil {
			slog.Warn("tracing disabled", "endpoint", cfg.JaegerEndpoint, "error", err)
		} else {
			shutdownTracing = tp.Shutdown
		}
	}

	// ── Wire dependencies ─────────────────────────────────────────────────────
	engine, err := buildEngine(cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	info := engine.Info()
	slog.Info("model loaded",
		"kind", info.Kind,
		"version", info.Version,
		"n_features", info.NumFeatures,
		"scaler_mode", info.ScalerMode,
		"scaler_features", strings.Join(info.ScalerFeatures, ","),
		"policy", info.Policy,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	notifier := webhook.New(cfg.AlertWebhooks, cfg.AlertTimeout, m)
	handler := api.NewHandler(engine, notifier, m)
	router := api.NewRouter(handler, m.Handler())

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "port", cfg.Port, "alert_webhooks", len(cfg.AlertWebhooks))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	notifier.Wait()
	if err := shutdownTracing(ctx); err != nil {
		slog.Error("tracer shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// buildEngine loads the artifacts named by cfg and compiles the decision
// policy. Any artifact failure is returned wrapped in domain.ErrArtifactLoad.
func buildEngine(cfg config.Config) (*scoring.Engine, error) {
	clf, err := model.LoadClassifier(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if clf.NumFeatures() != domain.FeatureWidth {
		slog.Warn("model width differs from encoder width; every prediction will fail",
			"model_features", clf.NumFeatures(), "encoder_features", domain.FeatureWidth)
	}

	var scaler scoring.Scaler
	switch cfg.ScalerMode {
	case domain.ScalerPerRequest:
		slog.Warn("scaler_mode=per_request refits on each request: scaled amount is always 0 and time is ignored")
		scaler = model.RefitScaler{}
	default:
		s, err := model.LoadScaler(cfg.ScalerPath)
		if err != nil {
			return nil, err
		}
		scaler = s
	}

	policy, err := scoring.NewPolicy(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("fraud policy: %w", err)
	}
	slog.Info("decision policy compiled", "name", policy.Name(), "expression", policy.Expression())
	return scoring.New(scaler, clf, policy), nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
