package service

import "errors"

// Sentinel errors shared across services. Handlers map these to response
// error codes; anything else is treated as an internal failure.
var (
	ErrNoMatchingRule       = errors.New("no placement rule matches the given inputs")
	ErrNoActiveExamForLevel = errors.New("matched level has no active exam")
	ErrExamNotAvailable     = errors.New("exam is not available for new sessions")
	ErrExamNotFound         = errors.New("exam not found")
	ErrLevelNotFound        = errors.New("curriculum level not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrQuestionNotFound     = errors.New("question not found in this exam")
	ErrSessionCompleted     = errors.New("session is already completed")
	ErrSessionNotCompleted  = errors.New("session is not completed yet")
	ErrNoAdjacentLevel      = errors.New("no adjacent level in that direction")
	ErrAdjustmentLimit      = errors.New("adjustment would exceed the allowed distance from the original level")
)
