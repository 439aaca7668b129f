package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationRun is one monthly-vs-yearly comparison for
// (tenant, provider, year). Upserted by that natural key; reruns overwrite.
type ReconciliationRun struct {
	ID                 int                      `gorm:"primary_key" json:"id"`
	TenantId           string                   `gorm:"size:64;not null;index:uniq_recon_run,unique" json:"tenant_id"`
	Provider           string                   `gorm:"size:100;not null;index:uniq_recon_run,unique" json:"provider"`
	PeriodType         PeriodType               `gorm:"size:20;not null;index:uniq_recon_run,unique" json:"period_type"`
	Year               string                   `gorm:"size:4;not null;index:uniq_recon_run,unique" json:"year"`
	MonthlyIncomeTotal decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"monthly_income_total"`
	YearlyIncomeTotal  decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"yearly_income_total"`
	VarianceAmount     decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"variance_amount"`
	Status             ReconciliationStatus     `gorm:"size:20;not null;default:'Pending'" json:"status"`
	YearlyStatementId  *int                     `json:"yearly_statement_id"`
	Variances          []ReconciliationVariance `gorm:"foreignKey:RunId" json:"variances"`
	CompletedAt        *time.Time               `json:"completed_at"`
	CreatedAt          time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReconciliationVariance is one compared metric within a run.
// variance = monthly_total - yearly_total.
type ReconciliationVariance struct {
	ID           int             `gorm:"primary_key" json:"id"`
	TenantId     string          `gorm:"size:64;not null;index" json:"tenant_id"`
	RunId        int             `gorm:"not null;index:uniq_recon_metric,unique" json:"run_id"`
	MetricKey    string          `gorm:"size:100;not null;index:uniq_recon_metric,unique" json:"metric_key"`
	MonthlyTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_total"`
	YearlyTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"yearly_total"`
	Variance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"variance"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
