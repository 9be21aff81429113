package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound = errors.New("requested resource not found")
)
