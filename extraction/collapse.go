package extraction

import (
	"fmt"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
)

// collapseKey groups duplicate candidates. Amounts are compared at two
// decimals so the same fact extracted by two passes with different trailing
// precision still collapses.
func collapseKey(l models.StatementLine) string {
	money := "-"
	if l.MoneyAmount != nil {
		money = l.MoneyAmount.Round(2).String()
	}
	tax := "-"
	if l.TaxAmount != nil {
		tax = l.TaxAmount.Round(2).String()
	}
	metric := "-"
	if l.MetricValue != nil {
		metric = RoundMetricValue(l.MetricKey, *l.MetricValue).String()
	}
	return fmt.Sprintf("%s|%t|%s|%s|%s|%s|%s|%s",
		l.LineType, l.IsMetric, money, tax, l.MetricKey, metric, l.Unit, l.CurrencyCode)
}

// Collapse dedupes the classified line set: one representative per group,
// preferring Extracted evidence over Inferred. Input order is preserved for
// the survivors.
func Collapse(lines []models.StatementLine) []models.StatementLine {
	byKey := map[string]int{}
	out := make([]models.StatementLine, 0, len(lines))

	for _, l := range lines {
		key := collapseKey(l)
		idx, seen := byKey[key]
		if !seen {
			byKey[key] = len(out)
			out = append(out, l)
			continue
		}
		// Keep the better-evidenced representative.
		if out[idx].ClassificationEvidence == models.EvidenceInferred &&
			l.ClassificationEvidence == models.EvidenceExtracted {
			l2 := l
			out[idx] = l2
		}
	}
	return out
}

// RoundedMoney normalizes a nullable amount to two decimals for persistence.
func RoundedMoney(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}
