package engine

import "errors"

// Refusals returned by Submit and Roll. None of them touch the log.
var (
	ErrEmptyText        = errors.New("message text is empty")
	ErrInvalidKind      = errors.New("message type must be chat or action")
	ErrNotYourTurn      = errors.New("it is not your turn to act")
	ErrCharacterDead    = errors.New("dead characters cannot act")
	ErrNoPendingRoll    = errors.New("no roll has been requested")
	ErrUnknownCharacter = errors.New("no character for this participant")
)

var (
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("engine: missing dependency")
	// ErrCorruptRequest means a stored request no longer parses.
	ErrCorruptRequest = errors.New("stored request is malformed")
)
