// Package narration forwards finalized text to the speech-synthesis backend
// and streams the audio back, translating backend errors into the caller's
// error taxonomy.
package narration

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a narration job.
type State int

const (
	// StatePending - job created, backend not yet contacted.
	StatePending State = iota
	// StateStreaming - backend accepted the request, audio is flowing.
	StateStreaming
	// StateComplete - all audio bytes were delivered to the caller.
	StateComplete
	// StateFailed - backend error. Terminal; jobs are never retried
	// automatically because synthesis is billed per request.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateStreaming:
		return "STREAMING"
	case StateComplete:
		return "COMPLETE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMPLETE or FAILED).
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrJobTerminal     = errors.New("narration job already in terminal state")
	ErrJobNotStreaming = errors.New("narration job is not streaming")
)

// Job tracks one synthesis request through its lifecycle.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	PENDING → STREAMING → COMPLETE
//	   │          │
//	   └──────────┴──→ FAILED
type Job struct {
	mu           sync.RWMutex
	text         string
	voiceProfile string
	state        State
}

// NewJob creates a narration job in PENDING state.
func NewJob(text, voiceProfile string) *Job {
	return &Job{
		text:         text,
		voiceProfile: voiceProfile,
		state:        StatePending,
	}
}

// Text returns the text being synthesized.
func (j *Job) Text() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.text
}

// VoiceProfile returns the requested voice profile.
func (j *Job) VoiceProfile() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.voiceProfile
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// BeginStreaming transitions PENDING → STREAMING, once the backend has
// accepted the request.
func (j *Job) BeginStreaming() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return ErrJobTerminal
	}
	j.state = StateStreaming
	return nil
}

// Complete transitions STREAMING → COMPLETE after the last audio byte was
// delivered.
func (j *Job) Complete() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateStreaming {
		if j.state.IsTerminal() {
			return ErrJobTerminal
		}
		return ErrJobNotStreaming
	}
	j.state = StateComplete
	return nil
}

// Fail transitions the job to FAILED from any non-terminal state.
// Returns true if the job was failed, false if already terminal.
func (j *Job) Fail() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return false
	}
	j.state = StateFailed
	return true
}
