package extraction

import (
	"testing"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLinesClassifiesAndRounds(t *testing.T) {
	statement := &models.Statement{ID: 7, TenantId: "t1", CurrencyCode: "CAD"}
	candidates := []LineCandidate{
		{Description: "Gross earnings", Amount: amt("1000.004"), SourceEvidence: models.EvidenceExtracted},
		{Description: "Kilometers on-trip", Amount: amt("812.456")},
		{Description: "GST/HST collected", TaxAmount: amt("50.00"), CurrencyCell: "CAD"},
	}

	lines := BuildLines(candidates, statement)
	require.Len(t, lines, 3)

	assert.Equal(t, models.LineTypeIncome, lines[0].LineType)
	assert.Equal(t, "1000", lines[0].MoneyAmount.String())
	assert.Equal(t, 7, lines[0].StatementId)

	assert.True(t, lines[1].IsMetric)
	assert.Equal(t, MetricDistanceKm, lines[1].MetricKey)
	assert.Equal(t, "812.46", lines[1].MetricValue.String())
	assert.Equal(t, "km", lines[1].Unit)
	assert.Nil(t, lines[1].MoneyAmount)

	assert.Equal(t, models.LineTypeTaxCollected, lines[2].LineType)
	assert.Equal(t, models.EvidenceExtracted, lines[2].CurrencyEvidence)
}

func TestBuildLinesMovesTaxTypedAmountsToTaxColumn(t *testing.T) {
	statement := &models.Statement{ID: 3, TenantId: "t1", CurrencyCode: "CAD"}
	candidates := []LineCandidate{
		{Description: "GST/HST collected", Amount: amt("50.00")},
		{Description: "GST/HST paid to uber", Amount: amt("10.00")},
		{Description: "Tax collected", Amount: amt("5.00"), TaxAmount: amt("4.00")},
		{Description: "Service fee", Amount: amt("-150.00")},
	}

	lines := BuildLines(candidates, statement)
	require.Len(t, lines, 4)

	assert.Equal(t, models.LineTypeTaxCollected, lines[0].LineType)
	assert.Nil(t, lines[0].MoneyAmount)
	require.NotNil(t, lines[0].TaxAmount)
	assert.Equal(t, "50", lines[0].TaxAmount.String())

	assert.Equal(t, models.LineTypeItc, lines[1].LineType)
	assert.Nil(t, lines[1].MoneyAmount)
	require.NotNil(t, lines[1].TaxAmount)
	assert.Equal(t, "10", lines[1].TaxAmount.String())

	// An explicit tax cell wins; the monetary cell stays put.
	require.NotNil(t, lines[2].MoneyAmount)
	assert.Equal(t, "5", lines[2].MoneyAmount.String())
	assert.Equal(t, "4", lines[2].TaxAmount.String())

	assert.Equal(t, models.LineTypeFee, lines[3].LineType)
	assert.Equal(t, "-150", lines[3].MoneyAmount.String())
	assert.Nil(t, lines[3].TaxAmount)
}

func TestBuildLinesDropsMetricWithoutValue(t *testing.T) {
	statement := &models.Statement{ID: 1, TenantId: "t1"}
	lines := BuildLines([]LineCandidate{
		{Description: "Online hours"}, // no amount cell at all
	}, statement)
	assert.Empty(t, lines)
}

func TestResolveCurrencyPrecedence(t *testing.T) {
	statement := &models.Statement{CurrencyCode: "USD"}

	code, evidence := resolveCurrency(LineCandidate{CurrencyCell: "1,234.56 EUR"}, statement)
	assert.Equal(t, "EUR", code)
	assert.Equal(t, models.EvidenceExtracted, evidence)

	code, evidence = resolveCurrency(LineCandidate{}, statement)
	assert.Equal(t, "USD", code)
	assert.Equal(t, models.EvidenceInferred, evidence)

	code, evidence = resolveCurrency(LineCandidate{}, &models.Statement{})
	assert.Equal(t, DefaultCurrencyCode, code)
	assert.Equal(t, models.EvidenceInferred, evidence)
}

func TestRollups(t *testing.T) {
	lines := []models.StatementLine{
		{LineType: models.LineTypeIncome, MoneyAmount: amt("1000.00")},
		{LineType: models.LineTypeFee, MoneyAmount: amt("-150.00")},
		{LineType: models.LineTypeTaxCollected, TaxAmount: amt("50.00")},
		{IsMetric: true, MetricKey: MetricTripCount, MetricValue: amt("42")},
	}
	income, fees, tax := Rollups(lines)
	assert.Equal(t, "1000", income.String())
	assert.Equal(t, "150", fees.String())
	assert.Equal(t, "50", tax.String())
}

func TestMajorityCurrency(t *testing.T) {
	lines := []models.StatementLine{
		{CurrencyCode: "CAD", CurrencyEvidence: models.EvidenceExtracted},
		{CurrencyCode: "CAD", CurrencyEvidence: models.EvidenceExtracted},
		{CurrencyCode: "USD", CurrencyEvidence: models.EvidenceExtracted},
		{CurrencyCode: "EUR", CurrencyEvidence: models.EvidenceInferred}, // not a vote
	}
	code, evidence := MajorityCurrency(lines)
	assert.Equal(t, "CAD", code)
	assert.Equal(t, models.EvidenceExtracted, evidence)
}

func TestMajorityCurrencyTieBreaksFirstSeen(t *testing.T) {
	lines := []models.StatementLine{
		{CurrencyCode: "USD", CurrencyEvidence: models.EvidenceExtracted},
		{CurrencyCode: "CAD", CurrencyEvidence: models.EvidenceExtracted},
	}
	code, _ := MajorityCurrency(lines)
	assert.Equal(t, "USD", code)
}

func TestMajorityCurrencyFallsBackToDefault(t *testing.T) {
	code, evidence := MajorityCurrency([]models.StatementLine{
		{CurrencyCode: "CAD", CurrencyEvidence: models.EvidenceInferred},
	})
	assert.Equal(t, DefaultCurrencyCode, code)
	assert.Equal(t, models.EvidenceInferred, evidence)
}
