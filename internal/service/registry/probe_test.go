package registry

import (
	"context"
	"testing"
	"time"

	"content-compliance-service/internal/service/llm"
	"content-compliance-service/internal/service/llm/mock"
)

func newProbeFixture(t *testing.T, model string, script mock.Script) (*Prober, *Candidate, *mock.Client) {
	t.Helper()
	client := mock.New()
	client.SetScript(model, script)
	c := &Candidate{Provider: "mock", Model: model, Priority: 0, Client: client}
	reg := New()
	reg.Add(c, CapabilityCompliance)
	p := NewProber(reg, ProberConfig{
		Cooldown:         time.Hour,
		ProviderInterval: time.Millisecond,
	})
	return p, c, client
}

func TestProbe_SuccessMarksAvailable(t *testing.T) {
	p, c, _ := newProbeFixture(t, "healthy", mock.Script{Response: "Hi"})

	result := p.Probe(context.Background(), c)
	if result.Status != StatusAvailable {
		t.Errorf("probe status = %v, want AVAILABLE", result.Status)
	}
	if c.Status() != StatusAvailable {
		t.Errorf("candidate status = %v, want AVAILABLE", c.Status())
	}
	if c.LastSuccess().IsZero() {
		t.Error("LastSuccess not recorded after successful probe")
	}
	if c.LastProbedAt().IsZero() {
		t.Error("LastProbedAt not recorded")
	}
}

func TestProbe_NotFoundStartsCooldown(t *testing.T) {
	p, c, _ := newProbeFixture(t, "retired", mock.Script{Fail: 1, FailWith: llm.KindNotFound})

	result := p.Probe(context.Background(), c)
	if result.Status != StatusUnavailable {
		t.Errorf("probe status = %v, want UNAVAILABLE", result.Status)
	}
	if !c.InCooldown(time.Now()) {
		t.Error("candidate not in cool-down after not-found probe")
	}
}

func TestProbe_SkipsCandidateInCooldown(t *testing.T) {
	p, c, client := newProbeFixture(t, "retired", mock.Script{Response: "Hi"})
	c.MarkUnavailable(time.Now(), time.Hour)

	result := p.Probe(context.Background(), c)
	if result.Reason != "cooldown" {
		t.Errorf("probe reason = %q, want cooldown", result.Reason)
	}
	if client.Calls("retired") != 0 {
		t.Errorf("in-cool-down candidate was probed %d times, want 0", client.Calls("retired"))
	}
}

func TestProbe_RateLimitedIsNotAFailureStreak(t *testing.T) {
	p, c, _ := newProbeFixture(t, "busy",
		mock.Script{Fail: 1, FailWith: llm.KindRateLimited, RetryAfter: 7})

	result := p.Probe(context.Background(), c)
	if result.Status != StatusRateLimited {
		t.Errorf("probe status = %v, want RATE_LIMITED", result.Status)
	}
	if result.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", result.RetryAfter)
	}
	if c.ConsecutiveFailures() != 0 {
		t.Errorf("rate limit counted as transient failure, streak = %d", c.ConsecutiveFailures())
	}
	if c.InCooldown(time.Now()) {
		t.Error("rate-limited candidate entered cool-down")
	}
}

func TestProbe_TransientFailuresDemote(t *testing.T) {
	p, c, _ := newProbeFixture(t, "flaky",
		mock.Script{Fail: 3, FailWith: llm.KindTransient})

	for i := 0; i < 3; i++ {
		p.Probe(context.Background(), c)
	}
	if !c.Demoted() {
		t.Error("candidate not demoted after repeated transient probe failures")
	}
	if c.Status() == StatusUnavailable {
		t.Error("transient failures must not mark the candidate unavailable")
	}

	// The script is exhausted, so the next probe succeeds and resets.
	p.Probe(context.Background(), c)
	if c.Demoted() {
		t.Error("successful probe did not clear demotion")
	}
}

func TestSweep_ProbesEveryCandidate(t *testing.T) {
	client := mock.New()
	reg := New()
	models := []string{"m1", "m2", "m3", "m4"}
	for i, m := range models {
		client.SetScript(m, mock.Script{Response: "ok"})
		reg.Add(&Candidate{Provider: "mock", Model: m, Priority: i, Client: client})
	}
	p := NewProber(reg, ProberConfig{
		Concurrency:      2,
		ProviderInterval: time.Millisecond,
	})

	p.Sweep(context.Background())

	for _, m := range models {
		if client.Calls(m) != 1 {
			t.Errorf("model %s probed %d times, want 1", m, client.Calls(m))
		}
	}
}
