package database

import (
	"context"

	"github.com/surrealdb/surrealdb.go"
)

// schema is applied at startup. Tables stay schemaless; the indexes back the
// ordered log read and the uid lookups.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS message SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS message_created ON message FIELDS createdAt",
	"DEFINE INDEX IF NOT EXISTS message_type ON message FIELDS type",
	"DEFINE TABLE IF NOT EXISTS character SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS character_uid ON character FIELDS uid UNIQUE",
}

// EnsureSchema defines the tables and indexes the stores rely on.
func EnsureSchema(ctx context.Context, conn DBConnection) error {
	return conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		for _, stmt := range schema {
			if err := Execute(ctx, db, stmt, nil); err != nil {
				return WrapError(err, "ensure schema")
			}
		}
		return nil
	})
}
