package database

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/domain"
)

var _ domain.CharacterRepository = (*CharacterStore)(nil)

// CharacterStore keeps the roster in SurrealDB.
type CharacterStore struct {
	conn           DBConnection
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewCharacterStore creates a CharacterStore using the timeouts from cfg.
func NewCharacterStore(conn DBConnection, cfg config.Provider) *CharacterStore {
	return &CharacterStore{
		conn:           conn,
		queryTimeout:   cfg.GetDBQueryTimeout(),
		executeTimeout: cfg.GetDBExecuteTimeout(),
	}
}

// List returns every character ordered by name.
func (s *CharacterStore) List(ctx context.Context) (domain.Roster, error) {
	ctx, cancel := getTimeoutFromContext(ctx, s.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	var rows []characterRecord
	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		rows, err = Query[characterRecord](ctx, db, "SELECT * FROM character ORDER BY name", nil)
		return err
	})
	if err != nil {
		return nil, WrapError(err, "list characters")
	}

	roster := make(domain.Roster, 0, len(rows))
	for _, r := range rows {
		roster = append(roster, r.toDomain())
	}
	return roster, nil
}

// FindByUID returns the character owned by uid.
func (s *CharacterStore) FindByUID(ctx context.Context, uid string) (*domain.Character, error) {
	ctx, cancel := getTimeoutFromContext(ctx, s.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	rec, err := s.findByUID(ctx, uid)
	if err != nil {
		return nil, WrapError(err, "find character")
	}
	if rec == nil {
		return nil, NewDBError(ErrNotFound, fmt.Sprintf("character for %s", uid))
	}
	c := rec.toDomain()
	return &c, nil
}

func (s *CharacterStore) findByUID(ctx context.Context, uid string) (*characterRecord, error) {
	var rec *characterRecord
	err := s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[characterRecord](ctx, db, "SELECT * FROM character WHERE uid = $uid", map[string]any{"uid": uid})
		return err
	})
	return rec, err
}

// UpdateHP overwrites the hit points of the character with the given id.
func (s *CharacterStore) UpdateHP(ctx context.Context, id string, hp int) error {
	rid, err := parseRecordID(id, characterTable)
	if err != nil {
		return NewDBError(err, "update hp")
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	const query = "UPDATE $id SET hp = $hp, updatedAt = time::now() RETURN AFTER"

	var updated *characterRecord
	err = s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		updated, err = QueryOne[characterRecord](ctx, db, query, map[string]any{"id": rid, "hp": hp})
		return err
	})
	if err != nil {
		return WrapError(err, "update hp")
	}
	if updated == nil {
		return NewDBError(ErrNotFound, fmt.Sprintf("update hp %s", id))
	}
	return nil
}

// Upsert creates c, or replaces the sheet of the character with the same uid.
func (s *CharacterStore) Upsert(ctx context.Context, c domain.Character) (*domain.Character, error) {
	if err := c.Validate(); err != nil {
		return nil, NewDBError(fmt.Errorf("%w: %v", ErrInvalidInput, err), "upsert character")
	}
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	existing, err := s.findByUID(ctx, c.UID)
	if err != nil {
		return nil, WrapError(err, "upsert character")
	}

	query := "CREATE character CONTENT $data RETURN AFTER"
	params := map[string]any{"data": newCharacterRecord(c).content()}
	if existing != nil && existing.ID != nil {
		query = "UPDATE $id CONTENT $data RETURN AFTER"
		params["id"] = *existing.ID
	}

	var saved *characterRecord
	err = s.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		saved, err = QueryOne[characterRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, WrapError(err, "upsert character")
	}
	if saved == nil {
		return nil, NewDBError(ErrQueryFailed, "upsert character returned no record").WithQuery(query)
	}
	out := saved.toDomain()
	return &out, nil
}
