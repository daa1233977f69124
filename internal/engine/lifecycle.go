package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/model"
)

// ErrInvalidTransition is returned when a requested lifecycle edge is not
// permitted from the current status.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrSessionFinished is returned for any intent against a terminal session.
var ErrSessionFinished = errors.New("session already finished")

// ErrSubmitInFlight signals that a submission is already pending; the caller
// must wait for its outcome instead of issuing another one.
var ErrSubmitInFlight = errors.New("submission already in flight")

// allowedEdges encodes the session state machine. Completed and failed are
// terminal; expired only ever moves into submitting.
var allowedEdges = map[model.SessionStatus][]model.SessionStatus{
	model.SessionStatusUninitialized: {model.SessionStatusActive},
	model.SessionStatusActive: {
		model.SessionStatusPaused,
		model.SessionStatusSubmitting,
		model.SessionStatusExpired,
	},
	model.SessionStatusPaused: {model.SessionStatusActive},
	model.SessionStatusSubmitting: {
		model.SessionStatusCompleted,
		model.SessionStatusActive,  // manual submission failed, user may retry
		model.SessionStatusExpired, // expiry submission failed, retry pending
		model.SessionStatusFailed,
	},
	model.SessionStatusExpired: {model.SessionStatusSubmitting},
}

// Lifecycle owns the session status and validates every transition request.
// It carries no concurrency guard of its own: the engine serializes access.
type Lifecycle struct {
	status model.SessionStatus
	log    zerolog.Logger
}

// NewLifecycle creates a Lifecycle in the uninitialized state.
func NewLifecycle(log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		status: model.SessionStatusUninitialized,
		log:    log.With().Str("component", "lifecycle").Logger(),
	}
}

// Status returns the current session status.
func (l *Lifecycle) Status() model.SessionStatus {
	return l.status
}

// Is reports whether the current status equals s.
func (l *Lifecycle) Is(s model.SessionStatus) bool {
	return l.status == s
}

// Transition moves the machine to the requested status, or returns
// ErrInvalidTransition without changing anything.
func (l *Lifecycle) Transition(to model.SessionStatus) error {
	if l.status.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, l.status)
	}
	for _, next := range allowedEdges[l.status] {
		if next == to {
			l.log.Debug().
				Str("from", string(l.status)).
				Str("to", string(to)).
				Msg("Session transition")
			l.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.status, to)
}
