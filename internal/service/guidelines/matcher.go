package guidelines

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
)

// CombinePolicy decides how keyword and semantic confidences merge.
// The max policy keeps keyword matches as a recall safety net independent
// of model availability.
type CombinePolicy string

const (
	CombineMax          CombinePolicy = "max"
	CombineKeywordOnly  CombinePolicy = "keyword-only"
	CombineSemanticOnly CombinePolicy = "semantic-only"
)

// ParseCombinePolicy maps a config string to a policy, defaulting to max.
func ParseCombinePolicy(s string) CombinePolicy {
	switch CombinePolicy(s) {
	case CombineKeywordOnly:
		return CombineKeywordOnly
	case CombineSemanticOnly:
		return CombineSemanticOnly
	default:
		return CombineMax
	}
}

// Classifier provides semantic guideline classification, typically backed by
// the fallback orchestrator. Nil disables the semantic signal.
type Classifier interface {
	ClassifyTranscript(ctx context.Context, t models.Transcript, gs []models.Guideline) ([]SemanticFinding, error)
}

// SemanticFinding is one LLM-provided classification.
type SemanticFinding struct {
	GuidelineID string  `json:"guidelineId"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// MatcherConfig tunes finding scoring.
type MatcherConfig struct {
	ConfidenceFloor float64
	Policy          CombinePolicy
}

// DefaultMatcherConfig returns the matcher defaults.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{ConfidenceFloor: 0.3, Policy: CombineMax}
}

// Matcher scores transcripts against the active guideline snapshot.
type Matcher struct {
	index      *Index
	classifier Classifier
	cfg        MatcherConfig
}

// NewMatcher creates a matcher. classifier may be nil, in which case only
// the keyword signal is used.
func NewMatcher(index *Index, classifier Classifier, cfg MatcherConfig) *Matcher {
	if cfg.Policy == "" {
		cfg.Policy = CombineMax
	}
	return &Matcher{index: index, classifier: classifier, cfg: cfg}
}

// Match produces findings for a transcript, sorted by severity descending
// then confidence descending. Only active guidelines participate; findings
// below the confidence floor are dropped.
//
// When the semantic signal is wanted but every provider is exhausted, the
// matcher degrades to keyword-only scoring rather than failing the request:
// the keyword index exists precisely so matching survives model outages.
func (m *Matcher) Match(ctx context.Context, t models.Transcript) ([]models.ComplianceFinding, error) {
	snap := m.index.snap.Load()
	logger := logging.WithComponent("matcher")

	semantic := map[string]SemanticFinding{}
	if m.classifier != nil && m.cfg.Policy != CombineKeywordOnly {
		active := make([]models.Guideline, 0, len(snap.guidelines))
		for _, g := range snap.guidelines {
			if g.Active {
				active = append(active, g)
			}
		}
		results, err := m.classifier.ClassifyTranscript(ctx, t, active)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Msg("Semantic classification unavailable, falling back to keyword signal")
		}
		for _, r := range results {
			semantic[r.GuidelineID] = r
		}
	}

	var findings []models.ComplianceFinding
	for n, g := range snap.guidelines {
		if !g.Active {
			continue
		}

		kwScore, matched := keywordScore(t, snap.keywords[n])
		sem, hasSem := semantic[g.ID]

		confidence, explanation := m.combine(kwScore, sem, hasSem)
		if confidence < m.cfg.ConfidenceFloor {
			if confidence > 0 {
				metrics.DefaultMetrics.RecordFindingDropped()
			}
			continue
		}

		findings = append(findings, models.ComplianceFinding{
			GuidelineID:     g.ID,
			Category:        g.Category,
			Severity:        g.Severity,
			MatchedSegments: matched,
			Confidence:      confidence,
			Explanation:     explanation,
		})
		metrics.DefaultMetrics.RecordFinding(string(g.Severity))
		lg := logging.WithGuideline(g.ID, string(g.Category))
		lg.Debug().
			Float64("confidence", confidence).
			Ints("matchedSegments", matched).
			Msg("Finding recorded")
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].Confidence > findings[j].Confidence
	})
	return findings, nil
}

// combine merges the two signals under the configured policy. Confidences
// are clamped to [0,1].
func (m *Matcher) combine(kwScore float64, sem SemanticFinding, hasSem bool) (float64, string) {
	semScore := clamp01(sem.Confidence)
	kwScore = clamp01(kwScore)

	switch m.cfg.Policy {
	case CombineKeywordOnly:
		return kwScore, ""
	case CombineSemanticOnly:
		if !hasSem {
			return 0, ""
		}
		return semScore, sem.Explanation
	default:
		if hasSem && semScore >= kwScore {
			return semScore, sem.Explanation
		}
		return kwScore, ""
	}
}

// keywordScore returns the best per-segment fraction of keywords present
// (case-insensitive, whole-word) and the indices of segments where at least
// one keyword appears, in order.
func keywordScore(t models.Transcript, keywords []string) (float64, []int) {
	if len(keywords) == 0 {
		return 0, nil
	}

	best := 0.0
	var matched []int
	for idx, seg := range t.Segments {
		text := " " + normalizeText(seg.Text) + " "
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(text, " "+kw+" ") {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		matched = append(matched, idx)
		if score := float64(hits) / float64(len(keywords)); score > best {
			best = score
		}
	}
	return best, matched
}

// normalizeText lowercases and collapses everything that is not a letter or
// digit to single spaces, so containment checks see word boundaries.
func normalizeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			sb.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
