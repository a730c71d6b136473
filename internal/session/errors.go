package session

// Error is a client-fault error: recoverable, caused by the caller, and
// returned synchronously. The Code is stable and machine-readable so API
// layers can map it without string matching on messages.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrSessionNotFound = &Error{Code: "SESSION_NOT_FOUND", Message: "game session not found"}

	// ErrAlreadyInProgress is returned when starting a game for a
	// conversation that already has one in progress.
	ErrAlreadyInProgress = &Error{Code: "GAME_ALREADY_IN_PROGRESS", Message: "conversation already has a game in progress"}

	ErrNotAParticipant      = &Error{Code: "NOT_A_PARTICIPANT", Message: "user is not a participant in this game"}
	ErrSessionNotInProgress = &Error{Code: "SESSION_NOT_IN_PROGRESS", Message: "game session is no longer in progress"}

	// ErrChoiceAlreadySubmitted is a rejection, not a silent no-op, so
	// clients can detect double-submission bugs.
	ErrChoiceAlreadySubmitted = &Error{Code: "CHOICE_ALREADY_SUBMITTED", Message: "choice already submitted for this round"}

	ErrInvalidChoice = &Error{Code: "INVALID_CHOICE", Message: "choice is not valid for this game"}
	ErrUnknownRules  = &Error{Code: "UNKNOWN_RULE_SET", Message: "unknown rule set"}
	ErrInvalidBestOf = &Error{Code: "INVALID_BEST_OF", Message: "bestOf must be a positive integer"}
	ErrInvalidPolicy = &Error{Code: "INVALID_TIMEOUT_POLICY", Message: "unknown round timeout policy"}

	// ErrInvalidParticipants rejects a start with missing or identical ids.
	ErrInvalidParticipants = &Error{Code: "INVALID_PARTICIPANTS", Message: "two distinct participant ids are required"}
)
