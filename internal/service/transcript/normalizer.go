// Package transcript normalizes upstream transcript payloads into a single
// canonical shape. The scraping service feeding this pipeline has emitted at
// least four distinct response shapes for logically identical data, so
// normalization applies an ordered list of shape recognizers and the first
// match wins. Order matters: looser checks (a bare "text" field) must never
// pre-empt the more specific, more trustworthy shapes.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"content-compliance-service/internal/models"
	"content-compliance-service/internal/observability/metrics"
)

// ShapeError reports a payload that matched no recognizer. It carries only
// the payload's top-level key set; raw content never reaches logs.
type ShapeError struct {
	Keys []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unrecognized transcript payload shape (top-level keys: %s)",
		strings.Join(e.Keys, ", "))
}

// ErrEmptyTranscript reports a payload that matched a shape but carried no
// text. An empty transcript is a normalization failure, never a valid result.
var ErrEmptyTranscript = errors.New("transcript payload contained no text")

// recognizer attempts to extract segments from a decoded payload.
// ok is false when the payload does not have this shape at all.
type recognizer struct {
	name string
	fn   func(v map[string]any) ([]models.TranscriptSegment, bool)
}

// Recognizers are tried in order; first structural match wins, no merging
// across shapes.
var recognizers = []recognizer{
	{"data-items", recognizeDataItems},
	{"transcript-items", recognizeTranscriptItems},
	{"transcript-string", recognizeTranscriptString},
	{"text-string", recognizeTextString},
}

// Normalize decodes raw JSON and converts it into a canonical Transcript.
func Normalize(raw []byte) (models.Transcript, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		metrics.DefaultMetrics.RecordNormalizationFailure("invalid_json")
		return models.Transcript{}, &ShapeError{Keys: nil}
	}
	return NormalizeValue(v)
}

// NormalizeValue converts an already-decoded payload into a Transcript.
// The scraper wraps results in a single-element array as often as not, so a
// top-level array is unwrapped to its first element before recognition.
func NormalizeValue(v any) (models.Transcript, error) {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			metrics.DefaultMetrics.RecordNormalizationFailure("empty_payload")
			return models.Transcript{}, &ShapeError{Keys: nil}
		}
		v = arr[0]
	}

	obj, ok := v.(map[string]any)
	if !ok {
		metrics.DefaultMetrics.RecordNormalizationFailure("not_an_object")
		return models.Transcript{}, &ShapeError{Keys: nil}
	}

	for _, r := range recognizers {
		segments, matched := r.fn(obj)
		if !matched {
			continue
		}
		t := models.Transcript{Segments: segments}
		if strings.TrimSpace(t.FullText()) == "" {
			metrics.DefaultMetrics.RecordNormalizationFailure("empty_transcript")
			return models.Transcript{}, ErrEmptyTranscript
		}
		metrics.DefaultMetrics.RecordNormalization(r.name, len(segments))
		return t, nil
	}

	metrics.DefaultMetrics.RecordNormalizationFailure("unrecognized_shape")
	return models.Transcript{}, &ShapeError{Keys: topLevelKeys(obj)}
}

// recognizeDataItems handles the scraper's native result shape: an object
// exposing its items under a "data" key.
func recognizeDataItems(obj map[string]any) ([]models.TranscriptSegment, bool) {
	items, ok := obj["data"].([]any)
	if !ok {
		return nil, false
	}
	return itemsToSegments(items), true
}

// recognizeTranscriptItems handles a "transcript" field holding item objects.
func recognizeTranscriptItems(obj map[string]any) ([]models.TranscriptSegment, bool) {
	items, ok := obj["transcript"].([]any)
	if !ok {
		return nil, false
	}
	return itemsToSegments(items), true
}

// recognizeTranscriptString handles a "transcript" field holding plain text.
func recognizeTranscriptString(obj map[string]any) ([]models.TranscriptSegment, bool) {
	s, ok := obj["transcript"].(string)
	if !ok {
		return nil, false
	}
	return []models.TranscriptSegment{{Text: s}}, true
}

// recognizeTextString handles a bare "text" field. Loosest shape, tried last.
func recognizeTextString(obj map[string]any) ([]models.TranscriptSegment, bool) {
	s, ok := obj["text"].(string)
	if !ok {
		return nil, false
	}
	return []models.TranscriptSegment{{Text: s}}, true
}

// itemsToSegments maps item objects to segments in order. A missing text
// field is treated as an empty string, not a failure.
func itemsToSegments(items []any) []models.TranscriptSegment {
	segments := make([]models.TranscriptSegment, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			segments = append(segments, models.TranscriptSegment{})
			continue
		}
		seg := models.TranscriptSegment{}
		if s, ok := obj["text"].(string); ok {
			seg.Text = s
		}
		seg.StartOffset = parseOffset(obj["start"])
		if sp, ok := obj["speaker"].(string); ok {
			seg.Speaker = sp
		}
		segments = append(segments, seg)
	}
	return segments
}

// parseOffset accepts the two start-offset encodings seen upstream:
// a float of seconds and a string of seconds.
func parseOffset(v any) time.Duration {
	switch x := v.(type) {
	case float64:
		return time.Duration(x * float64(time.Second))
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return time.Duration(f * float64(time.Second))
	}
	return 0
}

func topLevelKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
