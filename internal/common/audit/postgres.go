package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crm-insights/internal/models"
)

const insertAuditSQL = `
INSERT INTO audit_logs (id, business_id, action, resource, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresSink appends entries to the audit_logs table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, entry models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertAuditSQL,
		entry.ID, entry.BusinessID, entry.Action, entry.Resource, string(details), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
