package database

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/domain"
)

var _ domain.MessageLog = (*MessageStore)(nil)

// MessageStore is the SurrealDB table log.
type MessageStore struct {
	conn           DBConnection
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewMessageStore creates a MessageStore using the timeouts from cfg.
func NewMessageStore(conn DBConnection, cfg config.Provider) *MessageStore {
	return &MessageStore{
		conn:           conn,
		queryTimeout:   cfg.GetDBQueryTimeout(),
		executeTimeout: cfg.GetDBExecuteTimeout(),
	}
}

// Append creates the message with a server-side timestamp.
func (s *MessageStore) Append(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	if !msg.Type.Valid() {
		return nil, NewDBError(ErrInvalidInput, fmt.Sprintf("append message of type %q", msg.Type))
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	query, params := appendQuery(newMessageRecord(msg))

	var created *messageRecord
	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		created, err = QueryOne[messageRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, WrapError(err, "append message")
	}
	if created == nil {
		return nil, NewDBError(ErrQueryFailed, "append message returned no record").WithQuery(query)
	}

	out := created.toDomain()
	return &out, nil
}

// appendQuery builds the CREATE statement. Request fields are only set on
// requests so that plain messages never carry them.
func appendQuery(rec messageRecord) (string, map[string]any) {
	query := "CREATE message SET text = $text, type = $type, uid = $uid, photoURL = $photoURL, private = $private, createdAt = time::now()"
	params := map[string]any{
		"text":     rec.Text,
		"type":     rec.Type,
		"uid":      rec.UID,
		"photoURL": rec.PhotoURL,
		"private":  rec.Private,
	}
	if rec.Command != nil {
		query += ", target = $target, command = $command, resolved = $resolved"
		params["target"] = *rec.Target
		params["command"] = map[string]any{"name": rec.Command.Name, "args": rec.Command.Args}
		params["resolved"] = *rec.Resolved
	}
	return query + " RETURN AFTER", params
}

// QueryOrdered reads the newest limit messages and returns them oldest first.
func (s *MessageStore) QueryOrdered(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, NewDBError(ErrInvalidInput, fmt.Sprintf("query log with limit %d", limit))
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	const query = "SELECT * FROM message ORDER BY createdAt DESC LIMIT $limit"

	var rows []messageRecord
	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		rows, err = Query[messageRecord](ctx, db, query, map[string]any{"limit": limit})
		return err
	})
	if err != nil {
		return nil, WrapError(err, "query log")
	}

	out := make([]domain.Message, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toDomain()
	}
	return out, nil
}

// DeleteWhere removes the messages matched by filter. A zero filter deletes nothing.
func (s *MessageStore) DeleteWhere(ctx context.Context, filter domain.MessageFilter) error {
	if filter.Type == "" {
		return nil
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	const query = "DELETE message WHERE type = $type"
	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		return Execute(ctx, db, query, map[string]any{"type": string(filter.Type)})
	})
	return WrapError(err, "delete messages")
}

// MarkResolved sets resolved on the request with the given id.
func (s *MessageStore) MarkResolved(ctx context.Context, id string) error {
	rid, err := parseRecordID(id, messageTable)
	if err != nil {
		return NewDBError(err, "mark resolved")
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	const query = "UPDATE $id SET resolved = true WHERE command != NONE RETURN AFTER"

	var updated *messageRecord
	err = s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		updated, err = QueryOne[messageRecord](ctx, db, query, map[string]any{"id": rid})
		return err
	})
	if err != nil {
		return WrapError(err, "mark resolved")
	}
	if updated == nil {
		return NewDBError(ErrNotFound, fmt.Sprintf("mark resolved %s", id))
	}
	return nil
}

// Clear deletes the whole log.
func (s *MessageStore) Clear(ctx context.Context) error {
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		return Execute(ctx, db, "DELETE message", nil)
	})
	return WrapError(err, "clear log")
}
