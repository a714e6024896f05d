package database

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the insights queries read from.
// Every table carries business_id and every index leads with it.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id          TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		email       TEXT,
		phone       TEXT,
		notes       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS customers_business_email_idx
		ON customers (business_id, lower(email)) WHERE email IS NOT NULL AND email <> ''`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id          TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		customer_id TEXT NOT NULL REFERENCES customers (id),
		title       TEXT NOT NULL,
		start_time  TIMESTAMPTZ NOT NULL,
		end_time    TIMESTAMPTZ NOT NULL,
		status      TEXT NOT NULL,
		price       NUMERIC(12, 2) NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_business_start_idx
		ON appointments (business_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_business_created_idx
		ON audit_logs (business_id, created_at)`,
}

// EnsureSchema applies the idempotent DDL in a single transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
