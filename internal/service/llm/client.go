// Package llm defines the interface for large-language-model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client is the uniform generation contract every provider implements
// (Gemini, GLM, mock, ...).
type Client interface {
	// Generate sends prompt to the named model and returns the response text.
	Generate(ctx context.Context, model, prompt string) (string, error)

	// Name identifies the provider for registry ordering and logs.
	Name() string
}

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	// KindTransient - network hiccup, 5xx, timeout. Worth retrying.
	KindTransient ErrorKind = iota
	// KindNotFound - the model name no longer exists at the endpoint.
	KindNotFound
	// KindRateLimited - the provider asked us to back off.
	KindRateLimited
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Model      string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration // only meaningful for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", e.Provider, e.Model, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Anything that is not an *Error counts as transient.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// RetryAfter returns the provider-supplied backoff delay, if any.
func RetryAfter(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind == KindRateLimited {
		return pe.RetryAfter
	}
	return 0
}

// classifyStatus maps an HTTP status code to an error kind. Providers have
// been observed returning 404 both for retired models and for misspelled
// endpoints; either way the candidate is dead.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	default:
		return KindTransient
	}
}

// StripFences removes markdown code fences around model output. Models
// routinely wrap JSON answers in ```json blocks regardless of instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
