package events

import (
	"context"
	"testing"
	"time"

	"content-compliance-service/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerFinding != nil {
				t.Error("expected nil finding writer when disabled")
			}
			if p.writerAnalysis != nil {
				t.Error("expected nil analysis writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:       false,
		Brokers:       []string{"localhost:9092"},
		TopicFinding:  "compliance.finding",
		TopicAnalysis: "compliance.analysis",
		Principal:     "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicFinding != "compliance.finding" {
		t.Errorf("expected finding topic 'compliance.finding', got %s", p.topicFinding)
	}
	if p.topicAnalysis != "compliance.analysis" {
		t.Errorf("expected analysis topic 'compliance.analysis', got %s", p.topicAnalysis)
	}
}

func TestPublisher_PublishFinding_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicFinding: "compliance.finding", Principal: "test-svc"})

	event := FindingEvent{
		EventType:  "compliance.finding.detected",
		AnalysisID: "analysis-1-100",
		Timestamp:  time.Now().UnixMilli(),
		Finding: models.ComplianceFinding{
			GuidelineID: "copyright-music",
			Category:    models.CategoryCopyright,
			Severity:    models.SeverityHigh,
			Confidence:  1.0,
		},
	}

	if err := p.PublishFinding(context.Background(), "analysis-1-100", event); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishAnalysisCompleted_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicAnalysis: "compliance.analysis", Principal: "test-svc"})

	event := AnalysisCompletedEvent{
		EventType:    "compliance.analysis.completed",
		AnalysisID:   "analysis-1-100",
		Timestamp:    time.Now().UnixMilli(),
		SegmentCount: 3,
		FindingCount: 1,
		Provider:     "gemini",
		Model:        "gemini-2.0-flash",
	}

	if err := p.PublishAnalysisCompleted(context.Background(), "analysis-1-100", event); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{
		writerFinding:  nil,
		writerAnalysis: nil,
	}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
