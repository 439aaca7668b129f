package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statement is one ingested provider report for a reporting period.
// Unique per (tenant, provider, period_type, period_key); re-extraction
// replaces its lines wholesale and resets status to Draft.
type Statement struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TenantId         string          `gorm:"size:64;not null;index:uniq_statement,unique" json:"tenant_id"`
	Provider         string          `gorm:"size:100;not null;index:uniq_statement,unique" json:"provider"`
	PeriodType       PeriodType      `gorm:"size:20;not null;index:uniq_statement,unique" json:"period_type"`
	PeriodKey        string          `gorm:"size:20;not null;index:uniq_statement,unique" json:"period_key"`
	PeriodStart      time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd        time.Time       `gorm:"not null" json:"period_end"`
	CurrencyCode     string          `gorm:"size:3;not null" json:"currency_code"`
	CurrencyEvidence Evidence        `gorm:"size:20;not null;default:'Inferred'" json:"currency_evidence"`
	Status           StatementStatus `gorm:"size:30;not null;default:'Draft';index" json:"status"`
	FileObject       string          `gorm:"size:512" json:"file_object"`
	ContentType      string          `gorm:"size:100" json:"content_type"`
	TotalIncome      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_income"`
	TotalFees        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_fees"`
	TotalTax         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_tax"`
	Lines            []StatementLine `gorm:"foreignKey:StatementId" json:"lines"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Year returns the reporting year encoded in the period key
// (period keys are "2024", "2024-07" or "2024-Q3").
func (s Statement) Year() string {
	if len(s.PeriodKey) >= 4 {
		return s.PeriodKey[:4]
	}
	return s.PeriodKey
}

// CanPost reports whether the statement's status allows posting at all.
// ReconciliationOnly never posts; Posted is a no-op for the caller to audit.
func (s Statement) CanPost() bool {
	return s.Status == StatementStatusDraft || s.Status == StatementStatusSubmitted
}
