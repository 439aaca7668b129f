package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
)

func dp(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	v := d(t, s)
	return &v
}

func TestBuildStatementEntry(t *testing.T) {
	periodEnd := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	statement := &models.Statement{
		ID:         11,
		Provider:   "uber",
		PeriodType: models.PeriodTypeMonthly,
		PeriodKey:  "2024-07",
		PeriodEnd:  periodEnd,
		FileObject: "statements/t1/uber/2024-07",
		Lines: []models.StatementLine{
			{ID: 1, Description: "Gross earnings", LineType: models.LineTypeIncome, MoneyAmount: dp(t, "1000.00")},
			{ID: 2, Description: "Service fee", LineType: models.LineTypeFee, MoneyAmount: dp(t, "-150.00")},
			{ID: 3, Description: "GST/HST collected", LineType: models.LineTypeTaxCollected, TaxAmount: dp(t, "130.00")},
			{ID: 4, Description: "Kilometers on-trip", IsMetric: true, MetricKey: "distance_km", MetricValue: dp(t, "812")},
		},
	}

	entry, err := BuildStatementEntry(statement, "corr-2")
	if err != nil {
		t.Fatalf("BuildStatementEntry: %v", err)
	}
	if !entry.EntryDate.Equal(periodEnd) {
		t.Fatalf("entry date %v, want period end %v", entry.EntryDate, periodEnd)
	}
	if entry.PeriodKey != "2024-07" || entry.PeriodType != models.PeriodTypeMonthly {
		t.Fatalf("period %s %s carried wrong", entry.PeriodType, entry.PeriodKey)
	}
	// Metric line does not post.
	if len(entry.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(entry.Lines))
	}
	for i, line := range entry.Lines {
		if line.StatementLineId == nil {
			t.Fatalf("line %d not linked to its statement line", i)
		}
		if line.FileObject != statement.FileObject {
			t.Fatalf("line %d file object %q", i, line.FileObject)
		}
	}
	if !entry.Lines[1].Amount.Equal(d(t, "-150.00")) {
		t.Fatalf("fee amount %s, want -150.00", entry.Lines[1].Amount)
	}
	// Tax-only line posts with zero net amount.
	if !entry.Lines[2].Amount.IsZero() || !entry.Lines[2].GstHst.Equal(d(t, "130.00")) {
		t.Fatalf("tax line amount=%s gst=%s", entry.Lines[2].Amount, entry.Lines[2].GstHst)
	}
}

func TestBuildStatementEntryNoMonetaryLines(t *testing.T) {
	statement := &models.Statement{
		ID:         12,
		Provider:   "lyft",
		PeriodType: models.PeriodTypeMonthly,
		PeriodKey:  "2024-08",
		Lines: []models.StatementLine{
			{ID: 5, Description: "Rides completed", IsMetric: true, MetricKey: "trip_count", MetricValue: dp(t, "120")},
		},
	}

	entry, err := BuildStatementEntry(statement, "")
	if err != nil {
		t.Fatalf("BuildStatementEntry: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for metric-only statement, got %d lines", len(entry.Lines))
	}
}

// Runs raw extracted cells through classification, posting, and aggregation
// without any hand-set tax columns: the adapters only ever fill Amount, so
// tax lines must surface in snapshot and reconciliation tax totals from that
// alone.
func TestExtractedTaxLinesReachAggregates(t *testing.T) {
	periodEnd := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	statement := &models.Statement{
		ID:           21,
		TenantId:     "t1",
		Provider:     "uber",
		PeriodType:   models.PeriodTypeMonthly,
		PeriodKey:    "2024-07",
		PeriodEnd:    periodEnd,
		CurrencyCode: "CAD",
	}
	candidates := []extraction.LineCandidate{
		{Description: "Gross earnings", Amount: dp(t, "1000.00")},
		{Description: "Service fee", Amount: dp(t, "-150.00")},
		{Description: "GST/HST collected", Amount: dp(t, "50.00")},
		{Description: "GST/HST paid to uber", Amount: dp(t, "10.00")},
	}

	lines := extraction.BuildLines(candidates, statement)
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	for i := range lines {
		lines[i].ID = i + 1
	}
	statement.Lines = lines

	entry, err := BuildStatementEntry(statement, "corr-3")
	if err != nil {
		t.Fatalf("BuildStatementEntry: %v", err)
	}
	if entry == nil || len(entry.Lines) != 4 {
		t.Fatalf("entry %+v, want 4 posted lines", entry)
	}

	totals := ComputeSnapshot([]models.LedgerEntry{*entry}, extraction.AnchorDescriptionFor, nil)
	if !totals.Revenue.Equal(d(t, "1000.00")) {
		t.Fatalf("revenue %s, want 1000.00", totals.Revenue)
	}
	if !totals.Expenses.Equal(d(t, "150.00")) {
		t.Fatalf("expenses %s, want 150.00", totals.Expenses)
	}
	if !totals.TaxCollected.Equal(d(t, "50.00")) {
		t.Fatalf("tax collected %s, want 50.00", totals.TaxCollected)
	}
	if !totals.Itc.Equal(d(t, "10.00")) {
		t.Fatalf("itc %s, want 10.00", totals.Itc)
	}
	if !totals.NetTax.Equal(d(t, "40.00")) {
		t.Fatalf("net tax %s, want 40.00", totals.NetTax)
	}

	variances := ComputeVariances([]models.Statement{*statement}, models.Statement{})
	tax := varianceByKey(t, variances, VarianceKeyTaxCollectedTotal)
	if !tax.MonthlyTotal.Equal(d(t, "50.00")) {
		t.Fatalf("tax_collected_total monthly %s, want 50.00", tax.MonthlyTotal)
	}
	itc := varianceByKey(t, variances, VarianceKeyItcTotal)
	if !itc.MonthlyTotal.Equal(d(t, "10.00")) {
		t.Fatalf("itc_total monthly %s, want 10.00", itc.MonthlyTotal)
	}
}

func TestFinerPeriodTypes(t *testing.T) {
	cases := []struct {
		periodType models.PeriodType
		want       []models.PeriodType
	}{
		{models.PeriodTypeMonthly, nil},
		{models.PeriodTypeQuarterly, []models.PeriodType{models.PeriodTypeMonthly}},
		{models.PeriodTypeYearly, []models.PeriodType{models.PeriodTypeMonthly, models.PeriodTypeQuarterly}},
		{models.PeriodTypeYTD, []models.PeriodType{models.PeriodTypeMonthly, models.PeriodTypeQuarterly}},
	}
	for _, tc := range cases {
		got := FinerPeriodTypes(tc.periodType)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.periodType, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v, want %v", tc.periodType, got, tc.want)
			}
		}
	}
}
