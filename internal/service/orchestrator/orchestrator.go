// Package orchestrator walks the provider registry in preference order and
// returns the first successful generation. Provider failover is the primary
// defense against model deprecation: no other code path decides which model
// to call.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
	"content-compliance-service/internal/service/llm"
	"content-compliance-service/internal/service/registry"
)

// Config controls retry and backoff behavior per candidate.
type Config struct {
	MaxRetries        int           // retries per candidate on transient failure
	BackoffBase       time.Duration // exponential backoff base for transient retries
	RetryAfterCeiling time.Duration // max rate-limit wait before skipping a candidate
	RequestTimeout    time.Duration // per-attempt timeout
	Cooldown          time.Duration // unavailable cool-down applied on not-found
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        1,
		BackoffBase:       250 * time.Millisecond,
		RetryAfterCeiling: 2 * time.Second,
		RequestTimeout:    60 * time.Second,
		Cooldown:          time.Hour,
	}
}

// Attempt records the terminal error of one candidate within a Generate call.
type Attempt struct {
	Provider string
	Model    string
	Err      error
}

// ExhaustedError reports that every candidate for a capability was tried and
// failed. It carries the last error per candidate so the caller can diagnose
// without blind retries.
type ExhaustedError struct {
	Capability registry.Capability
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all providers exhausted for %q (%d candidates)", e.Capability, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s/%s: %v", a.Provider, a.Model, a.Err)
	}
	return sb.String()
}

// Orchestrator tries candidates one at a time. Candidates are never fanned
// out in parallel within one call: per-provider rate limits and duplicate
// billed requests both forbid it.
type Orchestrator struct {
	registry *registry.Registry
	cfg      Config
}

// New creates an orchestrator over the given registry.
func New(reg *registry.Registry, cfg Config) *Orchestrator {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 250 * time.Millisecond
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	return &Orchestrator{registry: reg, cfg: cfg}
}

// Generate sends prompt to the first candidate that succeeds and returns the
// candidate used alongside its response text. Candidates already marked
// unavailable and still inside their cool-down are skipped without a network
// call.
func (o *Orchestrator) Generate(ctx context.Context, cap registry.Capability, prompt string) (*registry.Candidate, string, error) {
	candidates := o.registry.ListCandidates(cap)
	if len(candidates) == 0 {
		return nil, "", &ExhaustedError{Capability: cap}
	}

	attempts := make([]Attempt, 0, len(candidates))
	for _, c := range candidates {
		if c.InCooldown(time.Now()) {
			attempts = append(attempts, Attempt{c.Provider, c.Model, fmt.Errorf("in cool-down until retry window expires")})
			continue
		}

		text, err := o.tryCandidate(ctx, c, prompt)
		if err == nil {
			return c, text, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		attempts = append(attempts, Attempt{c.Provider, c.Model, err})
	}

	return nil, "", &ExhaustedError{Capability: cap, Attempts: attempts}
}

// tryCandidate runs the bounded retry loop for one candidate and applies the
// outcome to its registry state.
func (o *Orchestrator) tryCandidate(ctx context.Context, c *registry.Candidate, prompt string) (string, error) {
	logger := logging.WithCandidate(c.Provider, c.Model)

	retriesLeft := o.cfg.MaxRetries
	rateWaited := false

	for {
		text, err := o.attempt(ctx, c, prompt)
		if err == nil {
			c.RecordSuccess(time.Now())
			return text, nil
		}

		switch llm.KindOf(err) {
		case llm.KindNotFound:
			// Model retired. Mark long-lived dead, move on immediately.
			c.MarkUnavailable(time.Now(), o.cfg.Cooldown)
			logger.Warn().Err(err).Msg("Model not found, marked unavailable")
			return "", err

		case llm.KindRateLimited:
			c.MarkRateLimited()
			delay := llm.RetryAfter(err)
			if !rateWaited && delay > 0 && delay <= o.cfg.RetryAfterCeiling {
				rateWaited = true
				logger.Debug().Dur("retryAfter", delay).Msg("Rate limited, waiting")
				if err := sleep(ctx, delay); err != nil {
					return "", err
				}
				continue
			}
			logger.Warn().Dur("retryAfter", delay).Msg("Rate limited beyond ceiling, skipping candidate")
			return "", err

		default:
			if n := c.RecordTransientFailure(); n == 3 {
				metrics.DefaultMetrics.RecordDemotion(c.Provider, c.Model)
				logger.Warn().Int("consecutiveFailures", n).Msg("Candidate demoted within tier")
			}
			if retriesLeft <= 0 {
				return "", err
			}
			backoff := o.cfg.BackoffBase << (o.cfg.MaxRetries - retriesLeft)
			retriesLeft--
			logger.Debug().Err(err).Dur("backoff", backoff).Msg("Transient failure, retrying")
			if err := sleep(ctx, backoff); err != nil {
				return "", err
			}
		}
	}
}

// attempt performs one timed generation request. A timeout cancels the
// underlying request; it is never left to finish in the background.
func (o *Orchestrator) attempt(ctx context.Context, c *registry.Candidate, prompt string) (string, error) {
	attemptCtx := ctx
	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.Client.Generate(attemptCtx, c.Model, prompt)
	class := ""
	if err != nil {
		class = llm.KindOf(err).String()
	}
	metrics.DefaultMetrics.RecordGenerateAttempt(c.Provider, c.Model, err, class, time.Since(start).Seconds())
	return text, err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
