package command

import "errors"

// Validation failure kinds. Every *Error unwraps to exactly one of these.
var (
	ErrUnknownCommand        = errors.New("unknown command")
	ErrArityMismatch         = errors.New("wrong number of arguments")
	ErrInvalidTarget         = errors.New("invalid target")
	ErrInvalidStat           = errors.New("invalid stat")
	ErrNotANumber            = errors.New("not a number")
	ErrInvalidDiceExpression = errors.New("invalid dice expression")
	ErrRequestPending        = errors.New("request pending")
)

// Error is a command validation failure. Reason is the text shown to the DM.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Unwrap returns the failure kind so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func fail(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}
