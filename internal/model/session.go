package model

import "time"

// SessionStatus enumerates the states of a test attempt.
type SessionStatus string

const (
	SessionStatusUninitialized SessionStatus = "UNINITIALIZED"
	SessionStatusActive        SessionStatus = "ACTIVE"
	SessionStatusPaused        SessionStatus = "PAUSED"
	SessionStatusSubmitting    SessionStatus = "SUBMITTING"
	SessionStatusCompleted     SessionStatus = "COMPLETED"
	SessionStatusExpired       SessionStatus = "EXPIRED"
	SessionStatusFailed        SessionStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
// Expired is not terminal: it still moves into SUBMITTING exactly once.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// Session represents one user's timed attempt at one test.
// The token is server-issued and opaque to the client.
type Session struct {
	Token            string        `json:"session_token"`
	TestID           string        `json:"test_id"`
	Status           SessionStatus `json:"status"`
	RemainingSeconds int           `json:"remaining_seconds"`
	IsDemo           bool          `json:"is_demo"`
	Language         string        `json:"language"`
	StartedAt        time.Time     `json:"started_at"`
}
