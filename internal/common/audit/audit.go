// Package audit records what the insights pipeline was asked to do. Writers
// treat the sink as fire-and-forget: a failed Record never fails the request.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crm-insights/internal/models"
)

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// NopSink drops every entry.
type NopSink struct{}

func (NopSink) Record(context.Context, models.AuditEntry) error { return nil }

// NewEntry stamps an entry with an id and the current time.
func NewEntry(businessID, action, resource string, details map[string]interface{}) models.AuditEntry {
	return models.AuditEntry{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Action:     action,
		Resource:   resource,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
}
