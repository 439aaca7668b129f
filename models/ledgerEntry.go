package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable posting. The unique key
// (tenant_id, source_type, source_id) is the idempotency anchor: the storage
// constraint, not application logic, is the final arbiter of races.
// Entries are append-only; corrections are reversal+corrected pairs.
type LedgerEntry struct {
	ID               int              `gorm:"primary_key" json:"id"`
	TenantId         string           `gorm:"size:64;not null;index:uniq_ledger_source,unique" json:"tenant_id"`
	SourceType       LedgerSourceType `gorm:"size:20;not null;index:uniq_ledger_source,unique" json:"source_type"`
	SourceId         string           `gorm:"size:100;not null;index:uniq_ledger_source,unique" json:"source_id"`
	EntryDate        time.Time        `gorm:"not null;index" json:"entry_date"`
	Description      string           `gorm:"size:255" json:"description"`
	Provider         string           `gorm:"size:100;index" json:"provider"`
	PeriodType       PeriodType       `gorm:"size:20" json:"period_type"`
	PeriodKey        string           `gorm:"size:20;index" json:"period_key"`
	CorrelationId    string           `gorm:"size:64" json:"correlation_id"`
	IsReversal       bool             `gorm:"not null;default:false" json:"is_reversal"`
	ReversesEntryId  *int             `json:"reverses_entry_id"`
	ReversedByEntryId *int            `json:"reversed_by_entry_id"`
	ReversalReason   *string          `gorm:"size:255" json:"reversal_reason"`
	Lines            []LedgerLine     `gorm:"foreignKey:LedgerEntryId" json:"lines"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// LedgerLine is one monetary effect of an entry. Amount is net; GstHst carries
// tax only. Source links make a posted number traceable back to its document.
// At most one (entry line, receipt, file) or (entry line, statement line, file)
// combination may exist.
type LedgerLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        string          `gorm:"size:64;not null;index" json:"tenant_id"`
	LedgerEntryId   int             `gorm:"not null;index" json:"ledger_entry_id"`
	LineType        LineType        `gorm:"size:20;not null;index:uniq_line_receipt,unique;index:uniq_line_stmt_line,unique" json:"line_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	GstHst          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_hst"`
	Category        string          `gorm:"size:100" json:"category"`
	Description     string          `gorm:"size:255" json:"description"`
	ReceiptId       *int            `gorm:"index:uniq_line_receipt,unique" json:"receipt_id"`
	StatementLineId *int            `gorm:"index:uniq_line_stmt_line,unique" json:"statement_line_id"`
	FileObject      string          `gorm:"size:512" json:"file_object"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Negated returns a copy with amount and tax flipped, for reversal entries.
func (l LedgerLine) Negated() LedgerLine {
	return LedgerLine{
		TenantId:        l.TenantId,
		LineType:        l.LineType,
		Amount:          l.Amount.Neg(),
		GstHst:          l.GstHst.Neg(),
		Category:        l.Category,
		Description:     l.Description,
		FileObject:      l.FileObject,
	}
}
