package llm

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{404, KindNotFound},
		{429, KindRateLimited},
		{500, KindTransient},
		{502, KindTransient},
		{400, KindTransient},
		{401, KindTransient},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil-wrapped plain error", errors.New("boom"), KindTransient},
		{"not found", &Error{Kind: KindNotFound}, KindNotFound},
		{"rate limited", &Error{Kind: KindRateLimited}, KindRateLimited},
		{"wrapped provider error", fmt.Errorf("attempt: %w", &Error{Kind: KindNotFound}), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	limited := &Error{Kind: KindRateLimited, RetryAfter: 5 * time.Second}
	if got := RetryAfter(limited); got != 5*time.Second {
		t.Errorf("RetryAfter() = %v, want 5s", got)
	}

	// RetryAfter is only meaningful on rate-limit errors.
	other := &Error{Kind: KindTransient, RetryAfter: 5 * time.Second}
	if got := RetryAfter(other); got != 0 {
		t.Errorf("RetryAfter() on transient error = %v, want 0", got)
	}
	if got := RetryAfter(errors.New("boom")); got != 0 {
		t.Errorf("RetryAfter() on plain error = %v, want 0", got)
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{
		Provider:   "gemini",
		Model:      "gemini-2.0-flash",
		Kind:       KindNotFound,
		StatusCode: 404,
		Err:        errors.New("model retired"),
	}
	want := "gemini/gemini-2.0-flash: not_found (status 404): model retired"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(e, e.Err) {
		t.Error("Error does not unwrap to its cause")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"  [1]  ", "[1]"},
		{"[1]", "[1]"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
