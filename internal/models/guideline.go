package models

import "time"

// Category classifies a guideline by the policy area it belongs to.
type Category string

const (
	CategoryCommunity    Category = "community"
	CategoryMonetization Category = "monetization"
	CategoryCopyright    Category = "copyright"
	CategoryShorts       Category = "shorts"
	CategoryGeneral      Category = "general"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommunity, CategoryMonetization, CategoryCopyright, CategoryShorts, CategoryGeneral:
		return true
	}
	return false
}

// Severity ranks how serious a guideline violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric ordering for severities, higher is more severe.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Guideline is one rule from the compliance rulebook. Guidelines are
// immutable for the duration of a matching pass; the rulebook is reloaded
// as a whole snapshot.
type Guideline struct {
	ID          string    `json:"id" yaml:"id"`
	Category    Category  `json:"category" yaml:"category"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Examples    []string  `json:"examples,omitempty" yaml:"examples"`
	Keywords    []string  `json:"keywords,omitempty" yaml:"keywords"`
	Severity    Severity  `json:"severity" yaml:"severity"`
	Source      string    `json:"source,omitempty" yaml:"source"`
	LastUpdated time.Time `json:"lastUpdated,omitempty" yaml:"lastUpdated"`
	Active      bool      `json:"active" yaml:"active"`
}

// ComplianceFinding is a single guideline match produced for a transcript.
// Findings are produced fresh per analysis request and are not persisted
// by this service.
type ComplianceFinding struct {
	GuidelineID     string   `json:"guidelineId"`
	Category        Category `json:"category"`
	Severity        Severity `json:"severity"`
	MatchedSegments []int    `json:"matchedSegments,omitempty"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation,omitempty"`
}
