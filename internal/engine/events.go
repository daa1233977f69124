package engine

import "github.com/dhruv2494/mocktail-engine/internal/model"

// EventKind labels an engine notification.
type EventKind string

const (
	// EventTick fires once per countdown second with the remaining time.
	EventTick EventKind = "TICK"
	// EventExpired fires once when the countdown crosses zero.
	EventExpired EventKind = "EXPIRED"
	// EventSubmitted carries the score summary after a successful finalization.
	EventSubmitted EventKind = "SUBMITTED"
	// EventSubmitFailed reports a failed finalization. For manual submissions
	// the session is active again and the user may retry; for expiry it is
	// terminal.
	EventSubmitFailed EventKind = "SUBMIT_FAILED"
	// EventPausePersistFailed reports that the pause checkpoint did not reach
	// the server. The local pause still applied; this is a retry affordance,
	// not a blocking error.
	EventPausePersistFailed EventKind = "PAUSE_PERSIST_FAILED"
)

// Event is a non-blocking notification from the engine to the UI.
type Event struct {
	Kind             EventKind
	RemainingSeconds int
	Result           *model.SubmitResult
	Err              error
}
