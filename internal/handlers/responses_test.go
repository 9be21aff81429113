package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/engine"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not your turn", engine.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
		{"wrapped kind", fmt.Errorf("%w: %q", engine.ErrInvalidKind, "shout"), http.StatusBadRequest, "invalid_type"},
		{"dead", engine.ErrCharacterDead, http.StatusForbidden, "character_dead"},
		{"db not found", database.NewDBError(database.ErrNotFound, "gone"), http.StatusNotFound, "not_found"},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "no session"), http.StatusUnauthorized, "unauthorized"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestClassify_InternalHidesDetail(t *testing.T) {
	_, body := Classify(errors.New("connection string leaked"))
	assert.NotContains(t, body.Message, "leaked")
}

func TestError_WritesJSON(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, Error(c, engine.ErrNoPendingRoll))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"code":"no_pending_roll","message":"no roll has been requested"}`, rec.Body.String())
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&SubmitRequest{Text: "hi", Type: "chat"}))
	assert.Error(t, v.Validate(&SubmitRequest{Text: "hi", Type: "shout"}))
	assert.NoError(t, v.Validate(&SubmitRequest{Text: strings.Repeat("é", MaxTextLength), Type: "chat"}))
	assert.Error(t, v.Validate(&SubmitRequest{Text: strings.Repeat("a", MaxTextLength+1), Type: "chat"}))
	assert.Error(t, v.Var(strings.Repeat("a", MaxTextLength+1), "max=2000"))
	assert.NoError(t, v.Validate(&SessionRequest{UID: "abc"}))
	assert.Error(t, v.Validate(&SessionRequest{}))
	assert.Error(t, v.Validate(&SessionRequest{UID: "abc", PhotoURL: "not a url"}))
}
