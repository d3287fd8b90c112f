package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-compliance-service/internal/service/llm"
	"content-compliance-service/internal/service/llm/mock"
	"content-compliance-service/internal/service/registry"
)

func testConfig() Config {
	return Config{
		MaxRetries:        1,
		BackoffBase:       time.Millisecond,
		RetryAfterCeiling: 2 * time.Second,
		RequestTimeout:    time.Second,
		Cooldown:          time.Hour,
	}
}

func buildRegistry(client llm.Client, models ...string) *registry.Registry {
	reg := registry.New()
	for i, m := range models {
		reg.Add(&registry.Candidate{
			Provider: "mock",
			Model:    m,
			Priority: i,
			Client:   client,
		}, registry.CapabilityCompliance)
	}
	return reg
}

func TestGenerate_FirstCandidateSucceeds(t *testing.T) {
	client := mock.New()
	client.SetScript("primary", mock.Script{Response: "classified"})
	reg := buildRegistry(client, "primary", "secondary")
	o := New(reg, testConfig())

	c, text, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "primary" {
		t.Errorf("candidate = %s, want primary", c.Model)
	}
	if text != "classified" {
		t.Errorf("text = %q, want %q", text, "classified")
	}
	if client.Calls("secondary") != 0 {
		t.Errorf("secondary called %d times, want 0", client.Calls("secondary"))
	}
}

func TestGenerate_FallsThroughRetiredModels(t *testing.T) {
	client := mock.New()
	client.SetScript("gone-1", mock.Script{Fail: 10, FailWith: llm.KindNotFound})
	client.SetScript("gone-2", mock.Script{Fail: 10, FailWith: llm.KindNotFound})
	client.SetScript("alive", mock.Script{Response: "ok"})
	reg := buildRegistry(client, "gone-1", "gone-2", "alive")
	o := New(reg, testConfig())

	c, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "alive" {
		t.Errorf("candidate = %s, want alive", c.Model)
	}

	// Retired models get exactly one call and are marked unavailable.
	for _, m := range []string{"gone-1", "gone-2"} {
		if client.Calls(m) != 1 {
			t.Errorf("%s called %d times, want 1 (no retry on not-found)", m, client.Calls(m))
		}
	}

	// A second generation must skip the retired models without a network call.
	_, _, err = o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	for _, m := range []string{"gone-1", "gone-2"} {
		if client.Calls(m) != 1 {
			t.Errorf("%s re-tried during cool-down, calls = %d", m, client.Calls(m))
		}
	}
}

func TestGenerate_TransientFailureRetriesThenFallsThrough(t *testing.T) {
	client := mock.New()
	client.SetScript("flaky", mock.Script{Fail: 10, FailWith: llm.KindTransient})
	client.SetScript("stable", mock.Script{Response: "ok"})
	reg := buildRegistry(client, "flaky", "stable")
	o := New(reg, testConfig())

	c, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "stable" {
		t.Errorf("candidate = %s, want stable", c.Model)
	}
	// One initial attempt plus MaxRetries retries.
	if client.Calls("flaky") != 2 {
		t.Errorf("flaky called %d times, want 2", client.Calls("flaky"))
	}
}

func TestGenerate_TransientRetrySucceeds(t *testing.T) {
	client := mock.New()
	client.SetScript("recovering", mock.Script{Response: "ok", Fail: 1, FailWith: llm.KindTransient})
	reg := buildRegistry(client, "recovering")
	o := New(reg, testConfig())

	c, text, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "recovering" || text != "ok" {
		t.Errorf("got (%s, %q), want (recovering, ok)", c.Model, text)
	}
	if c.ConsecutiveFailures() != 0 {
		t.Errorf("success did not reset failure streak, got %d", c.ConsecutiveFailures())
	}
}

func TestGenerate_RateLimitWaitWithinCeiling(t *testing.T) {
	client := mock.New()
	client.SetScript("busy", mock.Script{Response: "ok", Fail: 1, FailWith: llm.KindRateLimited, RetryAfter: 1})
	reg := buildRegistry(client, "busy")
	cfg := testConfig()
	cfg.RetryAfterCeiling = 2 * time.Second
	o := New(reg, cfg)

	start := time.Now()
	c, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "busy" {
		t.Errorf("candidate = %s, want busy", c.Model)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("rate-limit wait too short: %v", elapsed)
	}
	if client.Calls("busy") != 2 {
		t.Errorf("busy called %d times, want 2", client.Calls("busy"))
	}
}

func TestGenerate_RateLimitBeyondCeilingSkips(t *testing.T) {
	client := mock.New()
	client.SetScript("slammed", mock.Script{Fail: 10, FailWith: llm.KindRateLimited, RetryAfter: 30})
	client.SetScript("fallback", mock.Script{Response: "ok"})
	reg := buildRegistry(client, "slammed", "fallback")
	o := New(reg, testConfig())

	start := time.Now()
	c, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Model != "fallback" {
		t.Errorf("candidate = %s, want fallback", c.Model)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("candidate with 30s retry-after was waited on: %v", elapsed)
	}
	if client.Calls("slammed") != 1 {
		t.Errorf("slammed called %d times, want 1", client.Calls("slammed"))
	}
}

func TestGenerate_AllCandidatesFail(t *testing.T) {
	client := mock.New()
	client.SetScript("a", mock.Script{Fail: 10, FailWith: llm.KindTransient})
	client.SetScript("b", mock.Script{Fail: 10, FailWith: llm.KindNotFound})
	reg := buildRegistry(client, "a", "b")
	o := New(reg, testConfig())

	_, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Generate() error = %v, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(exhausted.Attempts))
	}
	for _, a := range exhausted.Attempts {
		if a.Err == nil {
			t.Errorf("attempt %s/%s carries no error", a.Provider, a.Model)
		}
	}
}

func TestGenerate_EmptyRegistry(t *testing.T) {
	o := New(registry.New(), testConfig())

	_, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "prompt")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Generate() error = %v, want *ExhaustedError", err)
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	client := mock.New()
	client.SetScript("a", mock.Script{Fail: 10, FailWith: llm.KindTransient})
	reg := buildRegistry(client, "a")
	o := New(reg, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := o.Generate(ctx, registry.CapabilityCompliance, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestGenerate_DemotionAfterStreak(t *testing.T) {
	client := mock.New()
	client.SetScript("flaky", mock.Script{Fail: 10, FailWith: llm.KindTransient})
	client.SetScript("stable", mock.Script{Response: "ok"})
	reg := buildRegistry(client, "flaky", "stable")
	cfg := testConfig()
	cfg.MaxRetries = 0
	o := New(reg, cfg)

	for i := 0; i < 3; i++ {
		if _, _, err := o.Generate(context.Background(), registry.CapabilityCompliance, "x"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}

	var flaky *registry.Candidate
	for _, c := range reg.All() {
		if c.Model == "flaky" {
			flaky = c
		}
	}
	if flaky == nil {
		t.Fatal("flaky candidate missing from registry")
	}
	if !flaky.Demoted() {
		t.Error("candidate not demoted after 3 consecutive transient failures")
	}
	if flaky.Status() == registry.StatusUnavailable {
		t.Error("transient streak must not mark the candidate unavailable")
	}
}
