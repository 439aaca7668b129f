package models

import "time"

// ProcessingJob provides durable, DB-backed idempotency for worker handlers.
// Unique constraint: (tenant_id, job_type, dedupe_key). This is the fast path;
// the ledger source uniqueness constraint is the strong one and survives loss
// of these rows.
type ProcessingJob struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"size:64;not null;index:uniq_job,unique" json:"tenant_id"`
	JobType   JobType   `gorm:"size:40;not null;index:uniq_job,unique" json:"job_type"`
	DedupeKey string    `gorm:"size:255;not null;index:uniq_job,unique" json:"dedupe_key"`
	Status    JobStatus `gorm:"size:20;not null;index" json:"status"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError *string   `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
