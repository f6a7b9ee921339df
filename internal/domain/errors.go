package domain

import "errors"

// Sentinel errors returned by services and the store. Handlers map these
// to HTTP statuses with errors.Is.
var (
	// ErrSessionConflict is returned when starting a session while
	// another session is still active.
	ErrSessionConflict = errors.New("another session is already active")

	// ErrSessionNotFound is returned for operations on an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionStopped is returned for mutations that require an active
	// session when the session has already ended.
	ErrSessionStopped = errors.New("session already stopped")

	// ErrPlanningNotFound is returned for operations on an unknown
	// planning id.
	ErrPlanningNotFound = errors.New("planning entry not found")

	// ErrPlanningOverlap is returned when a planning entry would overlap
	// an existing one.
	ErrPlanningOverlap = errors.New("planning overlaps with existing planning")

	// ErrProjectNotFound is returned for operations on an unknown project id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidInput is returned for malformed caller input, such as a
	// non-positive duration or an out-of-range satisfaction score.
	ErrInvalidInput = errors.New("invalid input")
)
