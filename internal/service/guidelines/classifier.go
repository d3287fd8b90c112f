package guidelines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/service/llm"
	"content-compliance-service/internal/service/orchestrator"
	"content-compliance-service/internal/service/registry"
)

const classifyPromptTemplate = `You are a content compliance reviewer. Given a video transcript and a set of
policy guidelines, identify which guidelines the transcript may violate.

Guidelines:
%s
Transcript:
%s

Respond with ONLY a JSON array. For each guideline that may be violated,
include an object:
  {"guidelineId": "<id>", "confidence": <0.0-1.0>, "explanation": "<one sentence>"}
Return [] if no guideline applies. No prose, no markdown fences.`

// LLMClassifier implements Classifier on top of the fallback orchestrator.
type LLMClassifier struct {
	orch       *orchestrator.Orchestrator
	capability registry.Capability
}

// NewLLMClassifier creates a classifier using the given capability's
// candidate chain.
func NewLLMClassifier(orch *orchestrator.Orchestrator, cap registry.Capability) *LLMClassifier {
	if cap == "" {
		cap = registry.CapabilityCompliance
	}
	return &LLMClassifier{orch: orch, capability: cap}
}

// ClassifyTranscript asks the first available model to score the transcript
// against the guidelines and parses its JSON verdict.
func (c *LLMClassifier) ClassifyTranscript(ctx context.Context, t models.Transcript, gs []models.Guideline) ([]SemanticFinding, error) {
	if len(gs) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(classifyPromptTemplate, formatGuidelines(gs), t.FullText())

	candidate, raw, err := c.orch.Generate(ctx, c.capability, prompt)
	if err != nil {
		return nil, err
	}

	findings, err := parseSemanticFindings(raw)
	if err != nil {
		// A model that answers but not in the contract shape is useless for
		// this request; the keyword signal still covers it.
		lg := logging.WithCandidate(candidate.Provider, candidate.Model)
		lg.Warn().Err(err).Msg("Unparsable classification response")
		return nil, nil
	}

	known := make(map[string]struct{}, len(gs))
	for _, g := range gs {
		known[g.ID] = struct{}{}
	}
	out := findings[:0]
	for _, f := range findings {
		if _, ok := known[f.GuidelineID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func formatGuidelines(gs []models.Guideline) string {
	var sb strings.Builder
	for _, g := range gs {
		fmt.Fprintf(&sb, "- id: %s [%s/%s] %s: %s\n", g.ID, g.Category, g.Severity, g.Title, g.Description)
		if len(g.Keywords) > 0 {
			fmt.Fprintf(&sb, "  keywords: %s\n", strings.Join(g.Keywords, ", "))
		}
	}
	return sb.String()
}

// parseSemanticFindings decodes the model's JSON array, salvaging the usual
// deviations: markdown fences and prose around the array.
func parseSemanticFindings(raw string) ([]SemanticFinding, error) {
	raw = llm.StripFences(raw)

	var findings []SemanticFinding
	if err := json.Unmarshal([]byte(raw), &findings); err == nil {
		return findings, nil
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &findings); err == nil {
			return findings, nil
		}
	}
	return nil, fmt.Errorf("response is not a JSON finding array")
}
