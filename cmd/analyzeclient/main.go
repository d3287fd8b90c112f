package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"content-compliance-service/internal/config"
	"content-compliance-service/internal/service/analysis"
)

func main() {
	payloadFile := flag.String("payload", "testdata/payload.json", "Path to a raw transcript payload JSON file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Analysis timeout")
	flag.Parse()

	raw, err := os.ReadFile(*payloadFile)
	if err != nil {
		log.Fatalf("Failed to read payload file: %v", err)
	}

	cfg := config.Load()
	pipeline, err := analysis.FromConfig(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Analyzing payload: file=%s bytes=%d guidelines=%d",
		*payloadFile, len(raw), pipeline.Index.Len())

	start := time.Now()
	findings, err := pipeline.Service.AnalyzeTranscript(ctx, raw)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	log.Printf("Analysis completed: findings=%d duration=%v", len(findings), time.Since(start))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(findings); err != nil {
		log.Fatalf("Failed to encode findings: %v", err)
	}
}
