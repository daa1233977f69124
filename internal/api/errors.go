package api

import (
	"errors"
	"fmt"
)

// ErrCode is a typed error code for consistent API error identification.
type ErrCode string

const (
	ErrTokenRequired    ErrCode = "TOKEN_REQUIRED"
	ErrValidation       ErrCode = "VALIDATION_ERROR"
	ErrInvalidID        ErrCode = "INVALID_ID"
	ErrInvalidPayload   ErrCode = "INVALID_PAYLOAD"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrTestNotAvailable ErrCode = "TEST_NOT_AVAILABLE"
	ErrSessionFinished  ErrCode = "SESSION_FINISHED"
	ErrSessionNotActive ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionNotPaused ErrCode = "SESSION_NOT_PAUSED"
	ErrInternal         ErrCode = "INTERNAL_ERROR"

	// ErrCodeTransport is synthesized client-side when the request never
	// produced a decodable envelope (connection refused, timeout, bad JSON).
	ErrCodeTransport ErrCode = "TRANSPORT_ERROR"
)

// Error is the client-side representation of a failed API call.
type Error struct {
	Status  int
	Code    ErrCode
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code ErrCode) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsTransport reports whether err represents a network-level failure rather
// than a structured rejection from the server.
func IsTransport(err error) bool {
	return IsCode(err, ErrCodeTransport)
}
