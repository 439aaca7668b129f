package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeReceiptResultFields(t *testing.T) {
	got, err := normalizeReceiptResult(&AnalysisResult{
		Fields: []AnalyzedField{
			{Key: "Merchant", Value: "Shell Canada", Confidence: 0.95},
			{Key: "Date", Value: "2024-07-15", Confidence: 0.9},
			{Key: "Total", Value: "$53.50", Confidence: 0.99},
			{Key: "Tax", Value: "3.50", Confidence: 0.88},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Shell Canada", got.Merchant)
	assert.Equal(t, "2024-07-15", got.ReceiptDate.Format("2006-01-02"))
	assert.Equal(t, "53.5", got.TotalAmount.String())
	assert.Equal(t, "3.5", got.TaxAmount.String())
	// (0.95 + 0.9 + 0.99 + 0.88) / 4
	assert.Equal(t, "0.93", got.Confidence.String())
}

func TestNormalizeReceiptResultRawTextFallbacks(t *testing.T) {
	got, err := normalizeReceiptResult(&AnalysisResult{
		RawText: "Shell Canada\nJuly 15, 2024\nFuel 48.00\nHST 3.50\nTOTAL $53.50\nThank you\n",
	})
	require.NoError(t, err)

	// Largest amount in the text wins as the total.
	assert.Equal(t, "53.5", got.TotalAmount.String())
	assert.True(t, got.TaxAmount.IsZero())
	assert.Equal(t, "2024-07-15", got.ReceiptDate.Format("2006-01-02"))
	assert.Equal(t, DefaultCurrencyCode, got.CurrencyCode)
	// No extracted fields, nothing to average.
	assert.True(t, got.Confidence.IsZero())
}

func TestNormalizeReceiptResultNoTotal(t *testing.T) {
	_, err := normalizeReceiptResult(&AnalysisResult{
		Fields:  []AnalyzedField{{Key: "Merchant", Value: "Canadian Tire"}},
		RawText: "Canadian Tire\nThank you for shopping\n",
	})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestNormalizeReceiptResultTaxExceedsTotal(t *testing.T) {
	_, err := normalizeReceiptResult(&AnalysisResult{
		Fields: []AnalyzedField{
			{Key: "Total", Value: "10.00"},
			{Key: "Tax", Value: "12.00"},
		},
	})
	require.Error(t, err)
	assert.True(t, utils.IsDataIntegrityError(err))
}

func TestNormalizeReceiptResultNegativeAmounts(t *testing.T) {
	// Refund receipts carry negative amounts; totals are stored absolute.
	got, err := normalizeReceiptResult(&AnalysisResult{
		Fields: []AnalyzedField{
			{Key: "Total", Value: "(53.50)", Confidence: 0.9},
			{Key: "Tax", Value: "(3.50)", Confidence: 0.9},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "53.5", got.TotalAmount.String())
	assert.Equal(t, "3.5", got.TaxAmount.String())
}

func TestAnalyzeReceipt(t *testing.T) {
	prev := activeAnalyzer
	defer RegisterDocumentAnalyzer(prev)

	RegisterDocumentAnalyzer(&fakeAnalyzer{result: &AnalysisResult{
		Fields: []AnalyzedField{
			{Key: "Total", Value: "25.00", Confidence: 0.97},
		},
	}})

	got, err := AnalyzeReceipt(context.Background(), strings.NewReader("%PDF-"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "25", got.TotalAmount.String())

	_, err = AnalyzeReceipt(context.Background(), strings.NewReader(""), "application/zip")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestAnalyzeReceiptAnalyzerFailureIsRetryable(t *testing.T) {
	prev := activeAnalyzer
	defer RegisterDocumentAnalyzer(prev)

	RegisterDocumentAnalyzer(&fakeAnalyzer{err: errors.New("service unavailable")})

	_, err := AnalyzeReceipt(context.Background(), strings.NewReader("%PDF-"), "application/pdf")
	require.Error(t, err)
	assert.True(t, utils.IsRetryable(err))
}
