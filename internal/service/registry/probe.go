package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
	"content-compliance-service/internal/service/llm"
)

// ProbeResult is the classification of one availability probe.
type ProbeResult struct {
	Status     Status
	Reason     string
	RetryAfter time.Duration
}

// ProberConfig controls probing behavior.
type ProberConfig struct {
	CanaryPrompt     string
	Cooldown         time.Duration // re-probe holdoff for unavailable models
	Timeout          time.Duration // per-probe request timeout
	Concurrency      int           // probes in flight during a sweep
	ProviderInterval time.Duration // minimum gap between calls to one provider
}

// Prober verifies that candidate models still accept generation requests.
// It sends a minimal canary prompt and classifies the outcome the same way
// the orchestrator classifies real failures. Probes of distinct providers
// may run concurrently, but calls to the same provider are paced to avoid
// tripping rate limits.
type Prober struct {
	registry *Registry
	cfg      ProberConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewProber creates a prober over the given registry.
func NewProber(reg *Registry, cfg ProberConfig) *Prober {
	if cfg.CanaryPrompt == "" {
		cfg.CanaryPrompt = "Hello"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	return &Prober{
		registry: reg,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the pacing limiter for a provider, creating it on first use.
func (p *Prober) limiter(provider string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[provider]
	if !ok {
		interval := p.cfg.ProviderInterval
		if interval <= 0 {
			interval = time.Second
		}
		l = rate.NewLimiter(rate.Every(interval), 1)
		p.limiters[provider] = l
	}
	return l
}

// Probe sends a canary request to one candidate and updates its state.
// Candidates still inside their unavailable cool-down are left untouched.
func (p *Prober) Probe(ctx context.Context, c *Candidate) ProbeResult {
	now := time.Now()
	if c.InCooldown(now) {
		return ProbeResult{Status: StatusUnavailable, Reason: "cooldown"}
	}

	logger := logging.WithCandidate(c.Provider, c.Model)

	if err := p.limiter(c.Provider).Wait(ctx); err != nil {
		return ProbeResult{Status: Status(c.status.Load()), Reason: "cancelled"}
	}

	probeCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	c.MarkProbed(time.Now())
	_, err := c.Client.Generate(probeCtx, c.Model, p.cfg.CanaryPrompt)
	result := p.classify(c, err)

	metrics.DefaultMetrics.RecordProbe(c.Provider, c.Model, result.Status.String())
	metrics.DefaultMetrics.RecordCandidateStatus(c.Provider, c.Model, int(c.Status()))
	logger.Debug().
		Str("status", result.Status.String()).
		Str("reason", result.Reason).
		Msg("Probe completed")
	return result
}

// classify applies the probe outcome to the candidate. A "not found" class
// response means the model was retired: mark it unavailable for the full
// cool-down window. A rate-limit response is not a health problem. Anything
// else is transient and only counts toward the demotion streak.
func (p *Prober) classify(c *Candidate, err error) ProbeResult {
	now := time.Now()
	if err == nil {
		c.RecordSuccess(now)
		return ProbeResult{Status: StatusAvailable}
	}

	switch llm.KindOf(err) {
	case llm.KindNotFound:
		c.MarkUnavailable(now, p.cfg.Cooldown)
		return ProbeResult{Status: StatusUnavailable, Reason: err.Error()}
	case llm.KindRateLimited:
		c.MarkRateLimited()
		return ProbeResult{
			Status:     StatusRateLimited,
			Reason:     err.Error(),
			RetryAfter: llm.RetryAfter(err),
		}
	default:
		if n := c.RecordTransientFailure(); n == demoteThreshold {
			metrics.DefaultMetrics.RecordDemotion(c.Provider, c.Model)
		}
		return ProbeResult{Status: Status(c.status.Load()), Reason: err.Error()}
	}
}

// Sweep probes every candidate with bounded concurrency.
func (p *Prober) Sweep(ctx context.Context) {
	candidates := p.registry.All()
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			p.Probe(ctx, c)
		}(c)
	}
	wg.Wait()
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (p *Prober) Run(ctx context.Context, interval time.Duration) {
	logger := logging.WithComponent("prober")
	logger.Info().
		Dur("interval", interval).
		Int("candidates", len(p.registry.All())).
		Msg("Availability prober started")

	p.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Availability prober stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}
