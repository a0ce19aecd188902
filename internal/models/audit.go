package models

import "time"

// AuditLog records a change made to a billing document.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"size:50;index:idx_audit_entity" json:"entity_type"` // "quotation", "invoice", "receipt"
	EntityID   uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	Action     string    `gorm:"size:50" json:"action"` // "create", "update", "status", "convert", "payment"
	Field      string    `gorm:"size:100" json:"field,omitempty"`
	OldValue   string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue   string    `gorm:"type:text" json:"new_value,omitempty"`
	RequestID  string    `gorm:"size:36" json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
