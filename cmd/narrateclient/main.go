package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"content-compliance-service/internal/config"
	"content-compliance-service/internal/service/narration"
)

func main() {
	text := flag.String("text", "", "Text to narrate")
	voice := flag.String("voice", "", "Voice profile (default from config)")
	outFile := flag.String("out", "narration.mp3", "Output audio file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Synthesis timeout")
	flag.Parse()

	if *text == "" {
		log.Fatal("Usage: narrateclient -text \"...\" [-voice natural] [-out narration.mp3]")
	}

	cfg := config.Load()
	proxy := narration.NewProxy(narration.Config{
		BackendURL:   cfg.Narration.BackendURL,
		DefaultVoice: cfg.Narration.DefaultVoice,
		Timeout:      cfg.Narration.Timeout,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Requesting synthesis: backend=%s textLen=%d", cfg.Narration.BackendURL, len(*text))

	stream, job, err := proxy.Synthesize(ctx, *text, *voice)
	if err != nil {
		log.Fatalf("Synthesis failed: %v", err)
	}
	defer stream.Close()

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	n, err := io.Copy(f, stream)
	if err != nil {
		log.Fatalf("Stream failed after %d bytes: %v", n, err)
	}

	log.Printf("Narration written: file=%s bytes=%d state=%s", *outFile, n, job.State())
}
