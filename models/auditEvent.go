package models

import "time"

// AuditEvent records every failure and every deliberate no-op (held receipt,
// skipped posting, sub-tolerance adjustment) with enough context to trace it.
type AuditEvent struct {
	ID            int            `gorm:"primary_key" json:"id"`
	TenantId      string         `gorm:"size:64;not null;index" json:"tenant_id"`
	EventType     AuditEventType `gorm:"size:40;not null;index" json:"event_type"`
	ReferenceType string         `gorm:"size:40" json:"reference_type"`
	ReferenceId   string         `gorm:"size:100" json:"reference_id"`
	CorrelationId string         `gorm:"size:64" json:"correlation_id"`
	UserName      string         `gorm:"size:100" json:"user_name"`
	Detail        string         `gorm:"type:text" json:"detail"`
	ErrorText     *string        `gorm:"type:text" json:"error_text"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
