package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"content-compliance-service/internal/events"
	"content-compliance-service/internal/models"
	"content-compliance-service/internal/service/guidelines"
	"content-compliance-service/internal/service/orchestrator"
	"content-compliance-service/internal/service/registry"
	"content-compliance-service/internal/service/transcript"
)

func newKeywordService(t *testing.T) *Service {
	t.Helper()
	idx := guidelines.NewIndex()
	idx.Load([]models.Guideline{
		{
			ID:       "copyright-music",
			Category: models.CategoryCopyright,
			Keywords: []string{"copyrighted", "music"},
			Severity: models.SeverityHigh,
			Active:   true,
		},
		{
			ID:       "community-harassment",
			Category: models.CategoryCommunity,
			Keywords: []string{"harass"},
			Severity: models.SeverityCritical,
			Active:   true,
		},
	})
	matcher := guidelines.NewMatcher(idx, nil, guidelines.DefaultMatcherConfig())
	return New(matcher, nil, events.New(&events.Config{Enabled: false}))
}

func TestAnalyzeTranscript_KeywordPipeline(t *testing.T) {
	svc := newKeywordService(t)

	payload := `[{"data": [
		{"text": "Welcome back everyone"},
		{"text": "This video uses copyrighted music without permission"}
	]}]`

	findings, err := svc.AnalyzeTranscript(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("AnalyzeTranscript() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].GuidelineID != "copyright-music" {
		t.Errorf("guideline = %s, want copyright-music", findings[0].GuidelineID)
	}
	if findings[0].Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", findings[0].Confidence)
	}
	if len(findings[0].MatchedSegments) != 1 || findings[0].MatchedSegments[0] != 1 {
		t.Errorf("matched segments = %v, want [1]", findings[0].MatchedSegments)
	}
}

func TestAnalyzeTranscript_CleanTranscript(t *testing.T) {
	svc := newKeywordService(t)

	findings, err := svc.AnalyzeTranscript(context.Background(),
		[]byte(`{"text": "a perfectly harmless cooking tutorial"}`))
	if err != nil {
		t.Fatalf("AnalyzeTranscript() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %v, want none", findings)
	}
}

func TestAnalyzeTranscript_UnusablePayload(t *testing.T) {
	svc := newKeywordService(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"unrecognized shape", `{"foo": "bar"}`},
		{"invalid json", `{{{`},
		{"empty transcript", `{"text": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeTranscript(context.Background(), []byte(tt.payload))
			if err == nil {
				t.Fatal("AnalyzeTranscript() succeeded, want error")
			}
			if !IsPayloadError(err) {
				t.Errorf("IsPayloadError(%v) = false, want true", err)
			}
			if IsDependencyError(err) {
				t.Errorf("IsDependencyError(%v) = true, want false", err)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	shapeErr := &transcript.ShapeError{Keys: []string{"foo"}}
	exhausted := &orchestrator.ExhaustedError{Capability: registry.CapabilityCompliance}
	plain := errors.New("boom")

	if !IsPayloadError(shapeErr) || !IsPayloadError(transcript.ErrEmptyTranscript) {
		t.Error("payload errors not recognized")
	}
	if IsPayloadError(exhausted) || IsPayloadError(plain) {
		t.Error("non-payload errors classified as payload errors")
	}
	if !IsDependencyError(exhausted) {
		t.Error("exhausted error not recognized as dependency error")
	}
	if IsDependencyError(shapeErr) || IsDependencyError(plain) {
		t.Error("non-dependency errors classified as dependency errors")
	}
}

func TestGenerator_UniqueIDs(t *testing.T) {
	g := NewGenerator()

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- g.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if !strings.HasPrefix(id, "analysis-") {
			t.Errorf("id %q missing analysis- prefix", id)
		}
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("unique ids = %d, want %d", len(seen), n)
	}
}
