package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Var validates a single value against tag.
func (cv *CustomValidator) Var(field any, tag string) error {
	return cv.validator.Var(field, tag)
}

// SessionRequest is the body of POST /table/session.
type SessionRequest struct {
	UID         string `json:"uid" validate:"required,max=128"`
	DisplayName string `json:"displayName" validate:"max=64"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
}

// MaxTextLength bounds the text of a single submission, in characters.
// It must match the max rule on SubmitRequest.Text.
const MaxTextLength = 2000

// SubmitRequest is the body of POST /table/messages. Text is not checked
// for emptiness here; the engine trims it and refuses blanks itself.
type SubmitRequest struct {
	Text string `json:"text" validate:"max=2000"`
	Type string `json:"type" validate:"required,oneof=chat action"`
}
