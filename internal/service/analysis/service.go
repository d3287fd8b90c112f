// Package analysis exposes the service's caller-facing operation surface.
// The web layer embedding this service calls exactly two methods:
// AnalyzeTranscript and Narrate. There is deliberately no second code path
// to either operation.
package analysis

import (
	"context"
	"errors"
	"io"
	"time"

	"content-compliance-service/internal/events"
	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
	"content-compliance-service/internal/service/guidelines"
	"content-compliance-service/internal/service/narration"
	"content-compliance-service/internal/service/orchestrator"
	"content-compliance-service/internal/service/transcript"
)

// Service wires the pipeline: normalizer, matcher, narration proxy and the
// event publisher.
type Service struct {
	matcher   *guidelines.Matcher
	narrator  *narration.Proxy
	publisher *events.Publisher
	ids       *Generator
}

// New creates the analysis service. publisher may be nil if event delivery
// is not wanted.
func New(matcher *guidelines.Matcher, narrator *narration.Proxy, publisher *events.Publisher) *Service {
	return &Service{
		matcher:   matcher,
		narrator:  narrator,
		publisher: publisher,
		ids:       NewGenerator(),
	}
}

// AnalyzeTranscript normalizes a raw upstream payload, matches it against
// the active guideline snapshot and returns the ranked findings.
//
// Error taxonomy surfaced to callers: a *transcript.ShapeError or
// transcript.ErrEmptyTranscript means the payload was unusable (a 4xx-class
// condition); an *orchestrator.ExhaustedError means every model candidate
// failed (an upstream-dependency failure).
func (s *Service) AnalyzeTranscript(ctx context.Context, rawPayload []byte) ([]models.ComplianceFinding, error) {
	analysisId := s.ids.Next()
	logger := logging.WithAnalysis(analysisId)
	start := time.Now()
	metrics.DefaultMetrics.RecordAnalysisStart()

	t, err := transcript.Normalize(rawPayload)
	if err != nil {
		metrics.DefaultMetrics.RecordAnalysisEnd("normalization", time.Since(start).Seconds())
		var shapeErr *transcript.ShapeError
		if errors.As(err, &shapeErr) {
			logger.Warn().
				Strs("topLevelKeys", shapeErr.Keys).
				Msg("Unrecognized transcript payload shape")
		}
		return nil, err
	}

	findings, err := s.matcher.Match(ctx, t)
	if err != nil {
		metrics.DefaultMetrics.RecordAnalysisEnd("matching", time.Since(start).Seconds())
		return nil, err
	}

	s.publishResults(ctx, analysisId, t, findings)

	metrics.DefaultMetrics.RecordAnalysisEnd("", time.Since(start).Seconds())
	logger.Info().
		Int("segments", len(t.Segments)).
		Int("findings", len(findings)).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed")
	return findings, nil
}

// Narrate streams synthesized audio for text. The returned stream is finite
// and not restartable; callers retry by calling Narrate again.
func (s *Service) Narrate(ctx context.Context, text, voiceProfile string) (io.ReadCloser, error) {
	stream, _, err := s.narrator.Synthesize(ctx, text, voiceProfile)
	return stream, err
}

// publishResults delivers events best-effort. Event delivery never fails an
// analysis; the findings were already computed for the caller.
func (s *Service) publishResults(ctx context.Context, analysisId string, t models.Transcript, findings []models.ComplianceFinding) {
	if s.publisher == nil {
		return
	}
	logger := logging.WithAnalysis(analysisId)
	now := time.Now().UnixMilli()

	for _, f := range findings {
		ev := events.FindingEvent{
			EventType:  "compliance.finding",
			AnalysisID: analysisId,
			Timestamp:  now,
			Finding:    f,
		}
		if err := s.publisher.PublishFinding(ctx, analysisId, ev); err != nil {
			logger.Error().Err(err).Str("guidelineId", f.GuidelineID).Msg("Failed to publish finding")
		}
	}

	ev := events.AnalysisCompletedEvent{
		EventType:    "compliance.analysis.completed",
		AnalysisID:   analysisId,
		Timestamp:    now,
		SegmentCount: len(t.Segments),
		FindingCount: len(findings),
	}
	if err := s.publisher.PublishAnalysisCompleted(ctx, analysisId, ev); err != nil {
		logger.Error().Err(err).Msg("Failed to publish analysis completion")
	}
}

// IsPayloadError reports whether err is a caller-side payload problem
// (4xx-equivalent) rather than a dependency failure.
func IsPayloadError(err error) bool {
	var shapeErr *transcript.ShapeError
	return errors.As(err, &shapeErr) || errors.Is(err, transcript.ErrEmptyTranscript)
}

// IsDependencyError reports whether err means every upstream model candidate
// failed (5xx-equivalent).
func IsDependencyError(err error) bool {
	var exhausted *orchestrator.ExhaustedError
	return errors.As(err, &exhausted)
}
