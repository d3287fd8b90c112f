// Package guidelines holds the in-memory index over the compliance rulebook
// and the matcher that scores transcripts against it.
package guidelines

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/observability/metrics"
)

// snapshot is one immutable generation of the rulebook. Keyword sets are
// pre-normalized at load time so matching passes do no per-request lowering.
type snapshot struct {
	guidelines []models.Guideline
	keywords   [][]string // normalized, parallel to guidelines
}

// Index is the searchable rulebook index. Load replaces the snapshot
// atomically; readers in flight keep the generation they started with.
type Index struct {
	snap atomic.Pointer[snapshot]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	i := &Index{}
	i.snap.Store(&snapshot{})
	return i
}

// Load replaces the active snapshot wholesale.
func (i *Index) Load(gs []models.Guideline) {
	snap := &snapshot{
		guidelines: make([]models.Guideline, len(gs)),
		keywords:   make([][]string, len(gs)),
	}
	copy(snap.guidelines, gs)
	for n, g := range gs {
		kws := make([]string, 0, len(g.Keywords))
		for _, k := range g.Keywords {
			if k = normalizeText(k); k != "" {
				kws = append(kws, k)
			}
		}
		snap.keywords[n] = kws
	}
	i.snap.Store(snap)

	metrics.DefaultMetrics.RecordGuidelinesLoaded(len(gs))
	lg := logging.WithComponent("guideline-index")
	lg.Info().
		Int("guidelines", len(gs)).
		Msg("Guideline snapshot loaded")
}

// Len returns the number of guidelines in the active snapshot.
func (i *Index) Len() int {
	return len(i.snap.Load().guidelines)
}

// All returns the guidelines of the active snapshot.
func (i *Index) All() []models.Guideline {
	snap := i.snap.Load()
	out := make([]models.Guideline, len(snap.guidelines))
	copy(out, snap.guidelines)
	return out
}

// Filter selects guidelines from the index.
type Filter struct {
	Category    models.Category // empty = any
	MinSeverity models.Severity // empty = any
	Query       string          // free-text match over title and description
	ActiveOnly  bool
}

// Search returns the guidelines matching the filter, in snapshot order.
func (i *Index) Search(f Filter) []models.Guideline {
	snap := i.snap.Load()
	query := normalizeText(f.Query)

	var out []models.Guideline
	for _, g := range snap.guidelines {
		if f.ActiveOnly && !g.Active {
			continue
		}
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		if f.MinSeverity != "" && g.Severity.Rank() < f.MinSeverity.Rank() {
			continue
		}
		if query != "" &&
			!strings.Contains(normalizeText(g.Title), query) &&
			!strings.Contains(normalizeText(g.Description), query) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// guidelineFile is the on-disk rulebook format.
type guidelineFile struct {
	Guidelines []models.Guideline `yaml:"guidelines"`
}

// LoadFile reads a rulebook YAML file and validates its records.
func LoadFile(path string) ([]models.Guideline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guidelines: %w", err)
	}

	var f guidelineFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse guidelines: %w", err)
	}

	for n, g := range f.Guidelines {
		if g.ID == "" {
			return nil, fmt.Errorf("guideline %d: missing id", n)
		}
		if !g.Category.Valid() {
			return nil, fmt.Errorf("guideline %q: unknown category %q", g.ID, g.Category)
		}
		if g.Severity.Rank() == 0 {
			return nil, fmt.Errorf("guideline %q: unknown severity %q", g.ID, g.Severity)
		}
	}
	return f.Guidelines, nil
}
