// Package store holds the database schema applied by the migrate CLI
// subcommand.
package store

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies schema.sql against db. It is idempotent: every
// statement uses IF NOT EXISTS or CREATE OR REPLACE.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
