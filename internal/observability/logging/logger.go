// Package logging provides field-scoped loggers over the global zerolog
// logger, which internal/app configures at startup.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WithAnalysis returns a logger with analysis request context.
func WithAnalysis(analysisId string) zerolog.Logger {
	return log.With().
		Str("analysisId", analysisId).
		Logger()
}

// WithCandidate returns a logger with provider/model context.
func WithCandidate(provider, model string) zerolog.Logger {
	return log.With().
		Str("provider", provider).
		Str("model", model).
		Logger()
}

// WithGuideline returns a logger with guideline context.
func WithGuideline(guidelineId string, category string) zerolog.Logger {
	return log.With().
		Str("guidelineId", guidelineId).
		Str("category", category).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
