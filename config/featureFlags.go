package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ReceiptHoldThreshold is the extraction-confidence floor below which a receipt
// is held for review instead of posted.
//
// Set via env:
// - RECEIPT_HOLD_THRESHOLD=0.60
func ReceiptHoldThreshold() decimal.Decimal {
	v := strings.TrimSpace(os.Getenv("RECEIPT_HOLD_THRESHOLD"))
	if v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			return d
		}
	}
	return decimal.NewFromFloat(0.6)
}

// ReconciliationTolerance is the absolute variance below which no adjustment
// is posted (rounding noise).
//
// Set via env:
// - RECONCILIATION_TOLERANCE=0.01
func ReconciliationTolerance() decimal.Decimal {
	v := strings.TrimSpace(os.Getenv("RECONCILIATION_TOLERANCE"))
	if v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			return d
		}
	}
	return decimal.NewFromFloat(0.01)
}

// FreeTextLookaheadLines bounds how far below a matched label the free-text
// extractor scans for the amount.
//
// Set via env:
// - FREETEXT_LOOKAHEAD_LINES=3
func FreeTextLookaheadLines() int {
	return intFromEnv("FREETEXT_LOOKAHEAD_LINES", 3)
}
