// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/metrics"
)

// FindingEvent is published once per compliance finding.
type FindingEvent struct {
	EventType  string                   `json:"eventType"`
	AnalysisID string                   `json:"analysisId"`
	Timestamp  int64                    `json:"timestamp"`
	Finding    models.ComplianceFinding `json:"finding"`
}

// AnalysisCompletedEvent is published once per finished analysis.
type AnalysisCompletedEvent struct {
	EventType    string `json:"eventType"`
	AnalysisID   string `json:"analysisId"`
	Timestamp    int64  `json:"timestamp"`
	SegmentCount int    `json:"segmentCount"`
	FindingCount int    `json:"findingCount"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Publisher publishes analysis events to separate Kafka topics.
type Publisher struct {
	writerFinding  *kafka.Writer
	writerAnalysis *kafka.Writer
	principal      string
	topicFinding   string
	topicAnalysis  string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicFinding  string
	TopicAnalysis string
	Principal     string
	Enabled       bool
}

// New creates a new Kafka event publisher with separate topics for findings
// and completed analyses.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicFinding:  cfg.TopicFinding,
			topicAnalysis: cfg.TopicAnalysis,
			enabled:       false,
			metrics:       m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerFinding := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicFinding,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerAnalysis := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicAnalysis,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicFinding", cfg.TopicFinding).
		Str("topicAnalysis", cfg.TopicAnalysis).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerFinding:  writerFinding,
		writerAnalysis: writerAnalysis,
		principal:      cfg.Principal,
		topicFinding:   cfg.TopicFinding,
		topicAnalysis:  cfg.TopicAnalysis,
		enabled:        true,
		metrics:        m,
	}
}

// PublishFinding publishes a finding event keyed by analysis ID.
func (p *Publisher) PublishFinding(ctx context.Context, key string, event FindingEvent) error {
	return p.publish(ctx, p.writerFinding, p.topicFinding, "finding", key, event)
}

// PublishAnalysisCompleted publishes an analysis-completed event keyed by
// analysis ID.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, key string, event AnalysisCompletedEvent) error {
	return p.publish(ctx, p.writerAnalysis, p.topicAnalysis, "analysis", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerFinding != nil {
		if e := p.writerFinding.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing finding writer")
			err = e
		}
	}
	if p.writerAnalysis != nil {
		if e := p.writerAnalysis.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing analysis writer")
			err = e
		}
	}
	return err
}
