package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-compliance-service/internal/app"
	"content-compliance-service/internal/config"
	"content-compliance-service/internal/events"
	"content-compliance-service/internal/observability"
	"content-compliance-service/internal/service/analysis"
)

func main() {
	analyzeFile := flag.String("analyze", "", "analyze a raw transcript payload file and exit")
	flag.Parse()

	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("startup failed")
	}

	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicFinding:  cfg.Kafka.TopicFinding,
		TopicAnalysis: cfg.Kafka.TopicAnalysis,
		Principal:     cfg.Kafka.Principal,
	})
	defer publisher.Close()

	pipeline, err := analysis.FromConfig(cfg, publisher)
	if err != nil {
		application.Logger.Fatal().Err(err).Msg("pipeline wiring failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *analyzeFile != "" {
		runOnce(ctx, application, pipeline, *analyzeFile)
		return
	}

	obs := observability.NewServer(cfg.Observability.HTTPAddr, func() bool {
		return pipeline.Index.Len() > 0
	})
	obs.Start()

	go pipeline.Prober.Run(ctx, cfg.Probe.Interval)

	// SIGHUP swaps in a fresh rulebook snapshot without a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := pipeline.ReloadGuidelines(cfg.Guidelines.Path); err != nil {
				application.Logger.Error().Err(err).Msg("guideline reload failed")
			}
		}
	}()

	application.Logger.Info().
		Str("observabilityAddr", cfg.Observability.HTTPAddr).
		Int("guidelines", pipeline.Index.Len()).
		Msg("Content compliance service started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("observability server shutdown failed")
	}
	application.Shutdown()
}

// runOnce analyzes a single payload file and prints the findings as JSON.
func runOnce(ctx context.Context, application *app.Application, pipeline *analysis.Pipeline, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		application.Logger.Fatal().Err(err).Str("file", path).Msg("cannot read payload")
	}

	findings, err := pipeline.Service.AnalyzeTranscript(ctx, raw)
	if err != nil {
		application.Logger.Fatal().Err(err).Str("file", path).Msg("analysis failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(findings); err != nil {
		application.Logger.Fatal().Err(err).Msg("cannot encode findings")
	}
}
