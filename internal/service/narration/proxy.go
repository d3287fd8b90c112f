package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
)

// Error taxonomy for narration. Both are always surfaced to the caller:
// narration has no fallback chain.
var (
	// ErrSynthesisUnavailable - the backend is unreachable or failing.
	ErrSynthesisUnavailable = errors.New("synthesis backend unavailable")
	// ErrSynthesisRejected - the backend reported an input error.
	ErrSynthesisRejected = errors.New("synthesis backend rejected input")
)

// synthesisRequest is the backend's request contract.
type synthesisRequest struct {
	Text         string `json:"text"`
	VoiceProfile string `json:"voiceProfile"`
}

// Config configures the proxy.
type Config struct {
	BackendURL   string
	DefaultVoice string
	Timeout      time.Duration
}

// Proxy forwards text to the speech-synthesis backend and streams the audio
// back to the caller without buffering it in memory.
type Proxy struct {
	cfg    Config
	client *http.Client
}

// NewProxy creates a narration proxy.
func NewProxy(cfg Config, client *http.Client) *Proxy {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Proxy{cfg: cfg, client: client}
}

// Synthesize sends text to the backend and returns a finite, non-restartable
// audio stream plus the job tracking it. A failed stream requires a fresh
// Synthesize call; the proxy never retries on its own.
func (p *Proxy) Synthesize(ctx context.Context, text, voiceProfile string) (io.ReadCloser, *Job, error) {
	if voiceProfile == "" {
		voiceProfile = p.cfg.DefaultVoice
	}
	job := NewJob(text, voiceProfile)
	logger := logging.WithComponent("narration")

	body, err := json.Marshal(synthesisRequest{Text: text, VoiceProfile: voiceProfile})
	if err != nil {
		job.Fail()
		return nil, job, fmt.Errorf("%w: encode request: %v", ErrSynthesisRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BackendURL, bytes.NewReader(body))
	if err != nil {
		job.Fail()
		return nil, job, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		job.Fail()
		metrics.DefaultMetrics.RecordNarration("unreachable")
		return nil, job, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		job.Fail()
		// Propagate the status class only; backend-internal details stay out
		// of the caller's error.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			metrics.DefaultMetrics.RecordNarration("rejected")
			return nil, job, fmt.Errorf("%w (status %dxx)", ErrSynthesisRejected, resp.StatusCode/100)
		}
		metrics.DefaultMetrics.RecordNarration("backend_error")
		return nil, job, fmt.Errorf("%w (status %dxx)", ErrSynthesisUnavailable, resp.StatusCode/100)
	}

	metrics.DefaultMetrics.NarrationLatency.Observe(time.Since(start).Seconds())
	if err := job.BeginStreaming(); err != nil {
		resp.Body.Close()
		return nil, job, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}

	logger.Debug().
		Str("voiceProfile", voiceProfile).
		Int("textLen", len(text)).
		Msg("Synthesis stream opened")

	return &audioStream{body: resp.Body, job: job}, job, nil
}

// audioStream hands backend bytes to the caller as they arrive and keeps the
// job state in sync with the stream outcome.
type audioStream struct {
	body io.ReadCloser
	job  *Job
	done bool
}

func (s *audioStream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if n > 0 {
		metrics.DefaultMetrics.RecordNarrationBytes(n)
	}
	if err == nil || s.done {
		return n, err
	}
	s.done = true
	if errors.Is(err, io.EOF) {
		s.job.Complete()
		metrics.DefaultMetrics.RecordNarration("complete")
		return n, err
	}
	s.job.Fail()
	metrics.DefaultMetrics.RecordNarration("stream_error")
	return n, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
}

// Close releases the underlying connection. Closing before EOF abandons the
// stream and fails the job.
func (s *audioStream) Close() error {
	if !s.done {
		s.done = true
		if s.job.Fail() {
			metrics.DefaultMetrics.RecordNarration("abandoned")
		}
	}
	return s.body.Close()
}
