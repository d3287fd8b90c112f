package analysis

import (
	"fmt"

	"content-compliance-service/internal/config"
	"content-compliance-service/internal/events"
	"content-compliance-service/internal/service/guidelines"
	"content-compliance-service/internal/service/narration"
	"content-compliance-service/internal/service/orchestrator"
	"content-compliance-service/internal/service/registry"
)

// Pipeline bundles the fully wired analysis stack.
type Pipeline struct {
	Service  *Service
	Registry *registry.Registry
	Prober   *registry.Prober
	Index    *guidelines.Index
}

// FromConfig wires the whole pipeline from configuration: rulebook index,
// provider registry, prober, orchestrator, matcher and narration proxy.
// publisher may be nil.
func FromConfig(cfg *config.Config, publisher *events.Publisher) (*Pipeline, error) {
	gs, err := guidelines.LoadFile(cfg.Guidelines.Path)
	if err != nil {
		return nil, fmt.Errorf("load rulebook: %w", err)
	}
	index := guidelines.NewIndex()
	index.Load(gs)

	reg := registry.FromConfig(cfg.Providers, nil)
	prober := registry.NewProber(reg, registry.ProberConfig{
		CanaryPrompt:     cfg.Probe.CanaryPrompt,
		Cooldown:         cfg.Probe.Cooldown,
		Timeout:          cfg.Probe.Timeout,
		Concurrency:      cfg.Probe.Concurrency,
		ProviderInterval: cfg.Probe.ProviderInterval,
	})

	orch := orchestrator.New(reg, orchestrator.Config{
		MaxRetries:        cfg.Orchestrator.MaxRetries,
		BackoffBase:       cfg.Orchestrator.BackoffBase,
		RetryAfterCeiling: cfg.Orchestrator.RetryAfterCeiling,
		RequestTimeout:    cfg.Orchestrator.RequestTimeout,
		Cooldown:          cfg.Probe.Cooldown,
	})

	var classifier guidelines.Classifier
	if cfg.Matcher.UseSemantic {
		classifier = guidelines.NewLLMClassifier(orch, registry.CapabilityCompliance)
	}
	matcher := guidelines.NewMatcher(index, classifier, guidelines.MatcherConfig{
		ConfidenceFloor: cfg.Matcher.ConfidenceFloor,
		Policy:          guidelines.ParseCombinePolicy(cfg.Matcher.CombinePolicy),
	})

	narrator := narration.NewProxy(narration.Config{
		BackendURL:   cfg.Narration.BackendURL,
		DefaultVoice: cfg.Narration.DefaultVoice,
		Timeout:      cfg.Narration.Timeout,
	}, nil)

	return &Pipeline{
		Service:  New(matcher, narrator, publisher),
		Registry: reg,
		Prober:   prober,
		Index:    index,
	}, nil
}

// ReloadGuidelines re-reads the rulebook file and swaps the snapshot.
func (p *Pipeline) ReloadGuidelines(path string) error {
	gs, err := guidelines.LoadFile(path)
	if err != nil {
		return fmt.Errorf("reload rulebook: %w", err)
	}
	p.Index.Load(gs)
	return nil
}
