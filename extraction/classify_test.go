package extraction

import (
	"testing"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestClassifyExplicitHintWinsOverKeywords(t *testing.T) {
	// "service fee" would classify as Fee, but the structured field said Income.
	got := Classify(LineCandidate{
		Description:    "service fee rebate",
		Amount:         amt("12.00"),
		TypeHint:       models.LineTypeIncome,
		HasTypeHint:    true,
		SourceEvidence: models.EvidenceExtracted,
	})
	assert.Equal(t, models.LineTypeIncome, got.LineType)
	assert.Equal(t, models.EvidenceExtracted, got.Evidence)
}

func TestClassifyFreeTextHintStaysInferred(t *testing.T) {
	// Hints produced by free-text label matching are heuristics, not evidence.
	got := Classify(LineCandidate{
		Description:    "gross ride earnings",
		Amount:         amt("900.00"),
		TypeHint:       models.LineTypeIncome,
		HasTypeHint:    true,
		SourceEvidence: models.EvidenceInferred,
	})
	assert.Equal(t, models.LineTypeIncome, got.LineType)
	assert.Equal(t, models.EvidenceInferred, got.Evidence)
}

func TestClassifyKeywordTiers(t *testing.T) {
	cases := []struct {
		desc     string
		expected models.LineType
	}{
		{"Input tax credit", models.LineTypeItc},
		{"GST/HST paid to Uber", models.LineTypeItc},
		{"ITC", models.LineTypeItc},
		{"GST/HST collected", models.LineTypeTaxCollected},
		{"HST on fares", models.LineTypeTaxCollected},
		{"Service fee", models.LineTypeFee},
		{"Booking fee", models.LineTypeFee},
		{"Commission", models.LineTypeFee},
		{"Gross earnings", models.LineTypeIncome},
		{"Tips", models.LineTypeIncome},
		{"Quest bonus", models.LineTypeIncome},
	}
	for _, tc := range cases {
		got := Classify(LineCandidate{Description: tc.desc, Amount: amt("10.00")})
		if got.LineType != tc.expected {
			t.Fatalf("Classify(%q) = %s, expected %s", tc.desc, got.LineType, tc.expected)
		}
		if got.Evidence != models.EvidenceInferred {
			t.Fatalf("Classify(%q) evidence = %s, expected Inferred", tc.desc, got.Evidence)
		}
	}
}

func TestClassifyItcRequiresWordBoundary(t *testing.T) {
	// "switch" contains "itc" but is not an input tax credit line.
	got := Classify(LineCandidate{Description: "Switch bonus", Amount: amt("5.00")})
	assert.NotEqual(t, models.LineTypeItc, got.LineType)
}

func TestClassifyMetricIndicatorsBeforeMonetaryTiers(t *testing.T) {
	cases := []struct {
		desc string
		key  string
	}{
		{"Kilometers on-trip", MetricDistanceKm},
		{"Online hours", MetricOnlineHours},
		{"Trips completed", MetricTripCount},
		{"Total deliveries", MetricDeliveries},
	}
	for _, tc := range cases {
		got := Classify(LineCandidate{Description: tc.desc, Amount: amt("42")})
		if !got.IsMetric || got.MetricKey != tc.key {
			t.Fatalf("Classify(%q) = %+v, expected metric %s", tc.desc, got, tc.key)
		}
	}
}

func TestClassifyMetricHint(t *testing.T) {
	got := Classify(LineCandidate{
		Description:    "km",
		MetricHint:     MetricDistanceKm,
		SourceEvidence: models.EvidenceExtracted,
	})
	assert.True(t, got.IsMetric)
	assert.Equal(t, MetricDistanceKm, got.MetricKey)
	assert.Equal(t, models.EvidenceExtracted, got.Evidence)
}

func TestClassifySignFallback(t *testing.T) {
	got := Classify(LineCandidate{Description: "weekly settlement", Amount: amt("-25.00")})
	assert.Equal(t, models.LineTypeFee, got.LineType)

	got = Classify(LineCandidate{Description: "weekly settlement", Amount: amt("25.00")})
	assert.Equal(t, models.LineTypeIncome, got.LineType)

	got = Classify(LineCandidate{Description: "weekly settlement", Amount: amt("0")})
	assert.Equal(t, models.LineTypeOther, got.LineType)
}

func TestRoundMetricValue(t *testing.T) {
	assert.Equal(t, "42", RoundMetricValue(MetricTripCount, decimal.RequireFromString("41.7")).String())
	assert.Equal(t, "123.46", RoundMetricValue(MetricDistanceKm, decimal.RequireFromString("123.456")).String())
	// Unknown keys keep two decimals so collapsing stays deterministic.
	assert.Equal(t, "9.88", RoundMetricValue("mystery_metric", decimal.RequireFromString("9.876")).String())
}
