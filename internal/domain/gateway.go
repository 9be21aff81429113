package domain

import "context"

// MessageLog is the append-only ordered table log.
// It lives in the domain because the engine requires it, not the database.
type MessageLog interface {
	// Append stores msg and returns it with its id and server timestamp assigned.
	Append(ctx context.Context, msg Message) (*Message, error)

	// QueryOrdered returns at most limit of the most recent messages, oldest first.
	QueryOrdered(ctx context.Context, limit int) ([]Message, error)

	// DeleteWhere removes every stored message matched by filter.
	DeleteWhere(ctx context.Context, filter MessageFilter) error

	// MarkResolved sets Request.Resolved on the message with the given id.
	MarkResolved(ctx context.Context, id string) error
}

// CharacterRepository gives the engine read access to the roster and the
// single mutation it is allowed to make.
type CharacterRepository interface {
	// List returns every character at the table.
	List(ctx context.Context) (Roster, error)

	// UpdateHP overwrites the hit points of the character with the given id.
	UpdateHP(ctx context.Context, id string, hp int) error
}
