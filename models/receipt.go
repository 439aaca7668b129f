package models

import (
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"github.com/shopspring/decimal"
)

// Receipt is one extracted expense document. The posting workflow turns it
// into a single ledger entry unless the extraction confidence put it on hold.
type Receipt struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	TenantId             string          `gorm:"size:64;not null;index" json:"tenant_id"`
	FileObject           string          `gorm:"size:512;not null" json:"file_object"`
	ContentType          string          `gorm:"size:100" json:"content_type"`
	Merchant             string          `gorm:"size:255" json:"merchant"`
	ReceiptDate          time.Time       `gorm:"not null" json:"receipt_date"`
	CurrencyCode         string          `gorm:"size:3" json:"currency_code"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TaxAmount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Category             string          `gorm:"size:100" json:"category"`
	ExtractionConfidence decimal.Decimal `gorm:"type:decimal(5,4);default:0" json:"extraction_confidence"`
	Hold                 bool            `gorm:"not null;default:false" json:"hold"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsHeld reports whether this receipt is flagged for review instead of posting.
// The stored Hold flag wins; otherwise the confidence threshold decides.
func (r Receipt) IsHeld() bool {
	if r.Hold {
		return true
	}
	return r.ExtractionConfidence.LessThan(config.ReceiptHoldThreshold())
}
