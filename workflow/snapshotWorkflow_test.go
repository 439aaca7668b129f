package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
)

func intp(v int) *int { return &v }

// fixedAnchor anchors every provider on the same description.
func fixedAnchor(desc string) func(string) string {
	return func(string) string { return desc }
}

func TestComputeSnapshot(t *testing.T) {
	entries := []models.LedgerEntry{
		{
			SourceType: models.LedgerSourceTypeStatement,
			Lines: []models.LedgerLine{
				{LineType: models.LineTypeIncome, Amount: d(t, "1000.00"), Description: "Gross earnings", StatementLineId: intp(1)},
				{LineType: models.LineTypeFee, Amount: d(t, "-150.00"), StatementLineId: intp(2)},
				{LineType: models.LineTypeTaxCollected, GstHst: d(t, "130.00"), StatementLineId: intp(3)},
				{LineType: models.LineTypeItc, GstHst: d(t, "90.00"), StatementLineId: intp(4)},
			},
		},
		{
			SourceType: models.LedgerSourceTypeReceipt,
			Lines: []models.LedgerLine{
				{LineType: models.LineTypeExpense, Amount: d(t, "50.00"), ReceiptId: intp(42)},
			},
		},
	}
	evidence := map[int]models.Evidence{
		1: models.EvidenceExtracted,
		2: models.EvidenceExtracted,
		3: models.EvidenceInferred,
		4: models.EvidenceExtracted,
	}

	totals := ComputeSnapshot(entries, fixedAnchor("gross earnings"), evidence)

	if !totals.Revenue.Equal(d(t, "1000.00")) {
		t.Fatalf("revenue %s, want 1000.00", totals.Revenue)
	}
	// Fees count absolute, alongside receipt spend.
	if !totals.Expenses.Equal(d(t, "200.00")) {
		t.Fatalf("expenses %s, want 200.00", totals.Expenses)
	}
	if !totals.NetTax.Equal(d(t, "40.00")) {
		t.Fatalf("net tax %s, want 40.00", totals.NetTax)
	}
	// 3 of 4 statement-sourced lines are Extracted; the receipt line never counts.
	if totals.AuthorityScore != 75 {
		t.Fatalf("authority score %d, want 75", totals.AuthorityScore)
	}
	if !totals.EvidencePct.Equal(d(t, "0.75")) || !totals.EstimatedPct.Equal(d(t, "0.25")) {
		t.Fatalf("evidence %s estimated %s", totals.EvidencePct, totals.EstimatedPct)
	}
}

func TestComputeSnapshotAnchorPreference(t *testing.T) {
	entries := []models.LedgerEntry{{
		Lines: []models.LedgerLine{
			{LineType: models.LineTypeIncome, Amount: d(t, "1000.00"), Description: " Gross Earnings "},
			{LineType: models.LineTypeIncome, Amount: d(t, "700.00"), Description: "Trip fares"},
			{LineType: models.LineTypeIncome, Amount: d(t, "300.00"), Description: "Tips"},
		},
	}}

	// Anchor present: components are a breakdown of it, not additional revenue.
	totals := ComputeSnapshot(entries, fixedAnchor("gross earnings"), nil)
	if !totals.Revenue.Equal(d(t, "1000.00")) {
		t.Fatalf("anchored revenue %s, want 1000.00", totals.Revenue)
	}

	// No anchor configured: all income lines sum.
	totals = ComputeSnapshot(entries, nil, nil)
	if !totals.Revenue.Equal(d(t, "2000.00")) {
		t.Fatalf("unanchored revenue %s, want 2000.00", totals.Revenue)
	}

	// Anchor configured but absent from the lines: fall back to the sum.
	totals = ComputeSnapshot(entries, fixedAnchor("gross ride earnings"), nil)
	if !totals.Revenue.Equal(d(t, "2000.00")) {
		t.Fatalf("fallback revenue %s, want 2000.00", totals.Revenue)
	}
}

func TestComputeSnapshotAnchorsPerProvider(t *testing.T) {
	// One provider reports an anchored breakdown, the other plain income.
	// Anchoring applies within each provider only: uber's anchor must not
	// suppress lyft's income, and entry order must not matter.
	uber := models.LedgerEntry{
		Provider:   "uber",
		SourceType: models.LedgerSourceTypeStatement,
		Lines: []models.LedgerLine{
			{LineType: models.LineTypeIncome, Amount: d(t, "1000.00"), Description: "Gross earnings"},
			{LineType: models.LineTypeIncome, Amount: d(t, "700.00"), Description: "Trip fares"},
		},
	}
	lyft := models.LedgerEntry{
		Provider:   "lyft",
		SourceType: models.LedgerSourceTypeStatement,
		Lines: []models.LedgerLine{
			{LineType: models.LineTypeIncome, Amount: d(t, "400.00"), Description: "Ride earnings"},
		},
	}
	anchorFor := func(provider string) string {
		if provider == "uber" {
			return "gross earnings"
		}
		return ""
	}

	for _, entries := range [][]models.LedgerEntry{
		{uber, lyft},
		{lyft, uber},
	} {
		totals := ComputeSnapshot(entries, anchorFor, nil)
		if !totals.Revenue.Equal(d(t, "1400.00")) {
			t.Fatalf("revenue %s, want 1400.00", totals.Revenue)
		}
	}
}

func TestComputeSnapshotNoStatementLines(t *testing.T) {
	entries := []models.LedgerEntry{{
		SourceType: models.LedgerSourceTypeManual,
		Lines: []models.LedgerLine{
			{LineType: models.LineTypeIncome, Amount: d(t, "100.00")},
		},
	}}

	totals := ComputeSnapshot(entries, nil, nil)
	if totals.AuthorityScore != 0 {
		t.Fatalf("authority score %d, want 0", totals.AuthorityScore)
	}
	if !totals.EvidencePct.IsZero() {
		t.Fatalf("evidence pct %s, want 0", totals.EvidencePct)
	}
	if !totals.EstimatedPct.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("estimated pct %s, want 1", totals.EstimatedPct)
	}
}

func TestComputeSnapshotScoreRounding(t *testing.T) {
	// 2 of 3 evidenced: 66.67 percent rounds to 67.
	entries := []models.LedgerEntry{{
		Lines: []models.LedgerLine{
			{LineType: models.LineTypeIncome, Amount: d(t, "10"), StatementLineId: intp(1)},
			{LineType: models.LineTypeFee, Amount: d(t, "-1"), StatementLineId: intp(2)},
			{LineType: models.LineTypeFee, Amount: d(t, "-2"), StatementLineId: intp(3)},
		},
	}}
	evidence := map[int]models.Evidence{
		1: models.EvidenceExtracted,
		2: models.EvidenceExtracted,
		3: models.EvidenceInferred,
	}

	totals := ComputeSnapshot(entries, nil, evidence)
	if totals.AuthorityScore != 67 {
		t.Fatalf("authority score %d, want 67", totals.AuthorityScore)
	}
	if !totals.EvidencePct.Equal(d(t, "0.6667")) {
		t.Fatalf("evidence pct %s, want 0.6667", totals.EvidencePct)
	}
}

func TestComputeSnapshotEmpty(t *testing.T) {
	totals := ComputeSnapshot(nil, fixedAnchor("gross earnings"), nil)
	if !totals.Revenue.IsZero() || !totals.Expenses.IsZero() || !totals.NetTax.IsZero() {
		t.Fatalf("empty bucket produced totals: %+v", totals)
	}
	if totals.AuthorityScore != 0 || !totals.EstimatedPct.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("empty bucket confidence: %+v", totals)
	}
}
