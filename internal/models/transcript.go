// Package models defines the data structures shared across the analysis pipeline.
package models

import (
	"strings"
	"time"
)

// TranscriptSegment is a single timed piece of transcript text.
type TranscriptSegment struct {
	Text        string        `json:"text"`
	StartOffset time.Duration `json:"startOffset,omitempty"`
	Speaker     string        `json:"speaker,omitempty"`
}

// Transcript is an ordered sequence of segments. Order is chronological
// and significant.
type Transcript struct {
	Segments []TranscriptSegment `json:"segments"`
}

// FullText joins all segment texts with single spaces.
func (t Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
