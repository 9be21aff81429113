package database

import (
	"errors"
	"fmt"

	"github.com/nfrund/tavern/internal/domain"
)

// Errors that can be checked with errors.Is.
var (
	// ErrNotFound is domain.ErrNotFound so callers above the store need not import this package.
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidID    = errors.New("invalid ID format")
	ErrInvalidInput = errors.New("invalid input data")
	ErrQueryFailed  = errors.New("query execution failed")
	ErrNotConnected = errors.New("database not connected")
)

// DBError adds the operation and query to a driver error.
type DBError struct {
	err     error
	context string
	query   string
	params  map[string]any
}

// NewDBError creates a DBError. context describes the operation that failed.
func NewDBError(err error, context string) *DBError {
	return &DBError{err: err, context: context}
}

// WithQuery records the query that was executing.
func (e *DBError) WithQuery(query string) *DBError {
	e.query = query
	return e
}

// WithParams records the query parameters.
func (e *DBError) WithParams(params map[string]any) *DBError {
	e.params = params
	return e
}

func (e *DBError) Error() string {
	msg := e.context
	if e.query != "" {
		msg = fmt.Sprintf("%s\nQuery: %s", msg, e.query)
	}
	if len(e.params) > 0 {
		msg = fmt.Sprintf("%s\nParams: %+v", msg, e.params)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *DBError) Unwrap() error {
	return e.err
}

// WrapError adds context to err. An existing DBError is extended in place.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.context != "" {
			context = fmt.Sprintf("%s: %s", context, dbErr.context)
		}
		dbErr.context = context
		return dbErr
	}
	return NewDBError(err, context)
}
