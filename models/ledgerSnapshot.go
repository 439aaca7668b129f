package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSnapshot is one recomputed period aggregate, upserted per
// (tenant, period_type, period_key) and never appended. authority_score is the
// evidence-weighted confidence (0-100) derived from the Extracted fraction of
// monetary statement lines in the bucket.
type LedgerSnapshot struct {
	ID             int              `gorm:"primary_key" json:"id"`
	TenantId       string           `gorm:"size:64;not null;index:uniq_snapshot,unique" json:"tenant_id"`
	PeriodType     PeriodType       `gorm:"size:20;not null;index:uniq_snapshot,unique" json:"period_type"`
	PeriodKey      string           `gorm:"size:20;not null;index:uniq_snapshot,unique" json:"period_key"`
	Revenue        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"revenue"`
	Expenses       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"expenses"`
	TaxCollected   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"tax_collected"`
	Itc            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"itc"`
	NetTax         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"net_tax"`
	AuthorityScore int              `gorm:"not null;default:0" json:"authority_score"`
	EvidencePct    decimal.Decimal  `gorm:"type:decimal(5,4);default:0" json:"evidence_pct"`
	EstimatedPct   decimal.Decimal  `gorm:"type:decimal(5,4);default:1" json:"estimated_pct"`
	Details        []SnapshotDetail `gorm:"foreignKey:SnapshotId" json:"details"`
	ComputedAt     time.Time        `gorm:"not null" json:"computed_at"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// SnapshotDetail is one per-metric row under a snapshot (non-monetary metrics
// summed over the bucket's statements, plus per-line-type breakdowns).
type SnapshotDetail struct {
	ID         int             `gorm:"primary_key" json:"id"`
	TenantId   string          `gorm:"size:64;not null;index" json:"tenant_id"`
	SnapshotId int             `gorm:"not null;index:uniq_snapshot_metric,unique" json:"snapshot_id"`
	MetricKey  string          `gorm:"size:100;not null;index:uniq_snapshot_metric,unique" json:"metric_key"`
	Value      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"value"`
	Unit       string          `gorm:"size:20" json:"unit"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
