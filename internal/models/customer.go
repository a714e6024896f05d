// internal/models/customer.go
package models

import "time"

// Customer is a tenant-owned CRM record.
type Customer struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuditEntry is written once per smart-chat dispatch and per customer write.
type AuditEntry struct {
	ID         string                 `json:"id"`
	BusinessID string                 `json:"businessId"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}
