package table

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/engine"
	"github.com/nfrund/tavern/internal/handlers"
	"github.com/nfrund/tavern/internal/middleware"
	"github.com/nfrund/tavern/internal/websocket"
)

// Table is the part of the engine the HTTP surface drives.
type Table interface {
	Submit(ctx context.Context, user domain.User, kind domain.MessageType, text string) (*domain.Message, error)
	Roll(ctx context.Context, user domain.User) (*domain.Message, error)
	Observe(ctx context.Context, user domain.User) (*engine.View, error)
	Snapshot(ctx context.Context) (domain.Log, domain.Roster, error)
	Commands() []string
}

// Handler serves the table endpoints.
type Handler struct {
	table    Table
	bridge   *websocket.Bridge
	validate *handlers.CustomValidator
}

// NewHandler creates a Handler. The websocket route is only usable once a
// bridge has been attached by the module.
func NewHandler(table Table) *Handler {
	return &Handler{table: table, validate: handlers.NewValidator()}
}

// Routes mounts the endpoints on g. Everything but the session routes
// requires an identity; submissions are rate limited per participant.
func (h *Handler) Routes(g *echo.Group) {
	g.POST("/session", h.StartSession)
	g.DELETE("/session", h.EndSession)

	identity := middleware.Identity
	g.GET("/view", h.View, identity)
	g.GET("/characters", h.Characters, identity)
	g.GET("/commands", h.Commands, identity)
	g.GET("/ws", h.WebSocket, identity)

	limit := middleware.RateLimiter(SubmitsPerMinute)
	g.POST("/messages", h.Submit, identity, limit)
	g.POST("/roll", h.Roll, identity, limit)
}

// StartSession stores the participant identity in the session cookie.
func (h *Handler) StartSession(c echo.Context) error {
	var req handlers.SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := domain.User{UID: req.UID, DisplayName: req.DisplayName, PhotoURL: req.PhotoURL}
	if err := middleware.SaveIdentity(c, user); err != nil {
		return handlers.Error(c, fmt.Errorf("save session: %w", err))
	}
	middleware.FromContext(c.Request().Context()).Info("Session started", "uid", user.UID)
	return c.JSON(http.StatusOK, user)
}

// EndSession clears the session cookie.
func (h *Handler) EndSession(c echo.Context) error {
	if err := middleware.ClearIdentity(c); err != nil {
		return handlers.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// View returns the table as the session user sees it.
func (h *Handler) View(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.table.Observe(c.Request().Context(), user)
	if err != nil {
		return handlers.Error(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Characters lists the roster.
func (h *Handler) Characters(c echo.Context) error {
	_, roster, err := h.table.Snapshot(c.Request().Context())
	if err != nil {
		return handlers.Error(c, err)
	}
	if roster == nil {
		roster = domain.Roster{}
	}
	return c.JSON(http.StatusOK, roster)
}

// Commands lists the DM command names.
func (h *Handler) Commands(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"commands": h.table.Commands()})
}

// Submit appends a chat or action.
func (h *Handler) Submit(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req handlers.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.table.Submit(c.Request().Context(), user, domain.MessageType(req.Type), req.Text)
	if err != nil {
		return handlers.Error(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// Roll answers the session user's pending skill check or dice request.
func (h *Handler) Roll(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	msg, err := h.table.Roll(c.Request().Context(), user)
	if err != nil {
		return handlers.Error(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// WebSocket upgrades to the view feed.
func (h *Handler) WebSocket(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if h.bridge == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "view feed is not running")
	}
	if err := h.bridge.Accept(c.Response(), c.Request(), user); err != nil {
		middleware.FromContext(c.Request().Context()).Error("WebSocket upgrade failed", "error", err)
		return err
	}
	return nil
}

func (h *Handler) viewFor(ctx context.Context, user domain.User) (any, error) {
	return h.table.Observe(ctx, user)
}

// inbound runs a frame sent over the websocket.
func (h *Handler) inbound(ctx context.Context, user domain.User, frame []byte) error {
	var in websocket.Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}
	switch in.Action {
	case websocket.ActionSubmit:
		if err := h.validate.Var(in.Text, fmt.Sprintf("max=%d", handlers.MaxTextLength)); err != nil {
			return fmt.Errorf("text longer than %d characters", handlers.MaxTextLength)
		}
		_, err := h.table.Submit(ctx, user, domain.MessageType(in.Type), in.Text)
		return err
	case websocket.ActionRoll:
		_, err := h.table.Roll(ctx, user)
		return err
	default:
		return fmt.Errorf("unknown action %q", in.Action)
	}
}

func currentUser(c echo.Context) (domain.User, error) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return domain.User{}, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return user, nil
}
