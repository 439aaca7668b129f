package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
)

func validManualInput(t *testing.T) ManualEntryInput {
	t.Helper()
	return ManualEntryInput{
		SourceId:    "cash-2024-07-01",
		EntryDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Description: "cash tips",
		Lines: []ManualLineInput{
			{LineType: models.LineTypeIncome, Amount: d(t, "45.00"), Description: "cash tips"},
		},
	}
}

func TestValidateManualEntry(t *testing.T) {
	if err := ValidateManualEntry(validManualInput(t)); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ManualEntryInput)
	}{
		{"missing source id", func(in *ManualEntryInput) { in.SourceId = "" }},
		{"missing description", func(in *ManualEntryInput) { in.Description = "" }},
		{"no lines", func(in *ManualEntryInput) { in.Lines = nil }},
		{"bad line type", func(in *ManualEntryInput) { in.Lines[0].LineType = "Revenue" }},
		{"missing line description", func(in *ManualEntryInput) { in.Lines[0].Description = "" }},
		{"zero amount and tax", func(in *ManualEntryInput) {
			in.Lines[0].Amount = decimal.Zero
			in.Lines[0].GstHst = decimal.Zero
		}},
	}
	for _, tc := range cases {
		in := validManualInput(t)
		tc.mutate(&in)
		err := ValidateManualEntry(in)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !utils.IsValidationError(err) {
			t.Fatalf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestValidateManualEntryTaxOnlyLine(t *testing.T) {
	in := validManualInput(t)
	in.Lines[0] = ManualLineInput{
		LineType:    models.LineTypeItc,
		GstHst:      d(t, "3.50"),
		Description: "gst on parking",
	}
	if err := ValidateManualEntry(in); err != nil {
		t.Fatalf("tax-only line rejected: %v", err)
	}
}
