package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/engine"
	"github.com/nfrund/tavern/internal/middleware"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Engine refusals leave the log untouched and are the caller's fault.
var errorMappings = []errorMapping{
	{engine.ErrEmptyText, http.StatusBadRequest, "empty_text"},
	{engine.ErrInvalidKind, http.StatusBadRequest, "invalid_type"},
	{engine.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{engine.ErrCharacterDead, http.StatusForbidden, "character_dead"},
	{engine.ErrNoPendingRoll, http.StatusConflict, "no_pending_roll"},
	{engine.ErrUnknownCharacter, http.StatusNotFound, "unknown_character"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{database.ErrNotConnected, http.StatusServiceUnavailable, "store_unavailable"},
}

// Classify maps err to an HTTP status and a stable error code.
func Classify(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Code: m.code, Message: err.Error()}
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorResponse{Code: codeForStatus(he.Code), Message: msg}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: http.StatusText(http.StatusInternalServerError)}
}

// Error writes err as an ErrorResponse.
func Error(c echo.Context, err error) error {
	status, body := Classify(err)
	logger := middleware.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "status", status)
	} else {
		logger.Debug("Request refused", "error", err, "status", status)
	}
	return c.JSON(status, body)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "error"
	}
}
