package models

import (
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	errMetricLineWithMoney  = utils.NewDataIntegrityError("metric line must not carry money or tax amounts")
	errMetricLineIncomplete = utils.NewDataIntegrityError("metric line requires metric_key and metric_value")
	errMoneyLineWithMetric  = utils.NewDataIntegrityError("monetary line must not carry metric fields")
	errMoneyLineEmpty       = utils.NewDataIntegrityError("monetary line requires money_amount or tax_amount")
)

// StatementLine is one extracted fact owned by a Statement: either monetary
// (line_type + money_amount/tax_amount) or a metric (is_metric + metric_key +
// metric_value). The two shapes are mutually exclusive.
type StatementLine struct {
	ID                     int              `gorm:"primary_key" json:"id"`
	TenantId               string           `gorm:"size:64;not null;index" json:"tenant_id"`
	StatementId            int              `gorm:"not null;index" json:"statement_id"`
	Description            string           `gorm:"size:255;not null" json:"description"`
	LineType               LineType         `gorm:"size:20" json:"line_type"`
	MoneyAmount            *decimal.Decimal `gorm:"type:decimal(20,4)" json:"money_amount"`
	TaxAmount              *decimal.Decimal `gorm:"type:decimal(20,4)" json:"tax_amount"`
	IsMetric               bool             `gorm:"not null;default:false" json:"is_metric"`
	MetricKey              string           `gorm:"size:100" json:"metric_key"`
	MetricValue            *decimal.Decimal `gorm:"type:decimal(20,4)" json:"metric_value"`
	Unit                   string           `gorm:"size:20" json:"unit"`
	CurrencyCode           string           `gorm:"size:3" json:"currency_code"`
	CurrencyEvidence       Evidence         `gorm:"size:20;not null;default:'Inferred'" json:"currency_evidence"`
	ClassificationEvidence Evidence         `gorm:"size:20;not null;default:'Inferred'" json:"classification_evidence"`
	CreatedAt              time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate enforces the metric/money exclusivity invariant before persisting.
func (l StatementLine) Validate() error {
	if l.IsMetric {
		if l.MoneyAmount != nil || l.TaxAmount != nil {
			return errMetricLineWithMoney
		}
		if l.MetricKey == "" || l.MetricValue == nil {
			return errMetricLineIncomplete
		}
		return nil
	}
	if l.MetricKey != "" || l.MetricValue != nil {
		return errMoneyLineWithMetric
	}
	if l.MoneyAmount == nil && l.TaxAmount == nil {
		return errMoneyLineEmpty
	}
	return nil
}

// IsMonetary reports whether the line carries an amount the ledger can post.
func (l StatementLine) IsMonetary() bool {
	return !l.IsMetric && (l.MoneyAmount != nil || l.TaxAmount != nil)
}

// Money returns the net amount, zero when absent.
func (l StatementLine) Money() decimal.Decimal {
	if l.MoneyAmount == nil {
		return decimal.Zero
	}
	return *l.MoneyAmount
}

// Tax returns the tax amount, zero when absent.
func (l StatementLine) Tax() decimal.Decimal {
	if l.TaxAmount == nil {
		return decimal.Zero
	}
	return *l.TaxAmount
}
