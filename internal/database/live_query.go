package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// LiveQueryAction is the kind of change reported by a live query.
type LiveQueryAction string

const (
	ActionCreate LiveQueryAction = "CREATE"
	ActionUpdate LiveQueryAction = "UPDATE"
	ActionDelete LiveQueryAction = "DELETE"
)

// LiveQueryHandler receives every change on a watched table.
type LiveQueryHandler func(ctx context.Context, table string, action LiveQueryAction, data any)

// Subscription identifies an active live query.
type Subscription struct {
	ID    string
	Table string
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// LiveQueryService turns SurrealDB LIVE SELECT notifications into handler calls.
type LiveQueryService struct {
	conn          *Connection
	subscriptions sync.Map // id -> context.CancelFunc
	wg            sync.WaitGroup
}

// NewLiveQueryService creates a service on conn.
func NewLiveQueryService(conn *Connection) *LiveQueryService {
	return &LiveQueryService{conn: conn}
}

// Subscribe starts a LIVE SELECT on table. Handlers run on the listener
// goroutine, one notification at a time.
func (s *LiveQueryService) Subscribe(ctx context.Context, table string, handler LiveQueryHandler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidInput, table)
	}

	var (
		liveID        string
		notifications <-chan connection.Notification
		db            *surrealdb.DB
	)
	err := s.conn.WithConnection(ctx, func(conn *surrealdb.DB) error {
		results, err := surrealdb.Query[any](ctx, conn, "LIVE SELECT * FROM "+table, nil)
		if err != nil {
			return fmt.Errorf("execute live query: %w", err)
		}
		if results == nil || len(*results) == 0 {
			return errors.New("live query returned no results")
		}
		if liveID, err = liveQueryID((*results)[0].Result); err != nil {
			return err
		}
		if notifications, err = conn.LiveNotifications(liveID); err != nil {
			return fmt.Errorf("get notification channel: %w", err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "subscribe "+table)
	}

	sub := &Subscription{ID: uuid.NewString(), Table: table}
	subCtx, cancel := context.WithCancel(context.Background())
	s.subscriptions.Store(sub.ID, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listen(subCtx, sub, notifications, handler)
		s.kill(db, liveID)
	}()

	slog.Info("Live query established", "event", "live_query_started", "version", "1.0",
		"sub_id", sub.ID, "table", table, "live_query_id", liveID)
	return sub, nil
}

// Unsubscribe stops the subscription with the given id.
func (s *LiveQueryService) Unsubscribe(id string) {
	if v, ok := s.subscriptions.LoadAndDelete(id); ok {
		v.(context.CancelFunc)()
	}
}

// Close stops every subscription and waits for the listeners to exit.
func (s *LiveQueryService) Close() {
	s.subscriptions.Range(func(key, _ any) bool {
		s.Unsubscribe(key.(string))
		return true
	})
	s.wg.Wait()
}

func (s *LiveQueryService) listen(ctx context.Context, sub *Subscription, ch <-chan connection.Notification, handler LiveQueryHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				slog.Debug("Live query notification channel closed", "sub_id", sub.ID)
				s.subscriptions.Delete(sub.ID)
				return
			}
			action, known := notificationAction(n.Action)
			if !known {
				slog.Warn("Unknown live query action", "sub_id", sub.ID, "action", n.Action)
				continue
			}
			s.dispatch(ctx, sub, handler, action, n.Result)
		}
	}
}

func (s *LiveQueryService) dispatch(ctx context.Context, sub *Subscription, handler LiveQueryHandler, action LiveQueryAction, data any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in live query handler", "sub_id", sub.ID, "panic", r)
		}
	}()
	handler(ctx, sub.Table, action, data)
}

func (s *LiveQueryService) kill(db *surrealdb.DB, liveID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.CloseLiveNotifications(liveID); err != nil {
		slog.Warn("Failed to close live notifications", "error", err, "live_query_id", liveID)
	}
	if _, err := surrealdb.Query[any](ctx, db, "KILL $id", map[string]any{"id": liveID}); err != nil {
		slog.Warn("Failed to kill live query", "error", err, "live_query_id", liveID)
	}
}

func notificationAction(a connection.Action) (LiveQueryAction, bool) {
	switch a {
	case connection.CreateAction:
		return ActionCreate, true
	case connection.UpdateAction:
		return ActionUpdate, true
	case connection.DeleteAction:
		return ActionDelete, true
	}
	return "", false
}

// liveQueryID extracts the query uuid, which the driver may decode in several shapes.
func liveQueryID(result any) (string, error) {
	switch v := result.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case models.UUID:
		return v.String(), nil
	case *models.UUID:
		if v != nil {
			return v.String(), nil
		}
	case map[string]any:
		if id, ok := v["id"]; ok {
			return liveQueryID(id)
		}
	}
	return "", fmt.Errorf("unexpected live query result: %T %+v", result, result)
}
