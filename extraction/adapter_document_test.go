package extraction

import (
	"context"
	"errors"
	"io"
	"testing"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	result *AnalysisResult
	err    error
}

func (f *fakeAnalyzer) CanHandle(contentType string) bool {
	return contentType == "application/pdf" || contentType == "image/jpeg"
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, r io.Reader) (*AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestDocumentAdapterFieldsPass(t *testing.T) {
	a := &documentAdapter{analyzer: &fakeAnalyzer{result: &AnalysisResult{
		Fields: []AnalyzedField{
			{Key: "Gross earnings", Value: "$1,000.00", TypeHint: "income", Confidence: 0.98},
			{Key: "Kilometers on-trip", Value: "812.4", TypeHint: "metric:distance_km", Confidence: 0.92},
			{Key: "Statement period", Value: "July 2024"}, // not an amount
		},
	}}}

	candidates, err := a.Extract(context.Background(), nil, ProviderPolicy{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.True(t, candidates[0].HasTypeHint)
	assert.Equal(t, models.LineTypeIncome, candidates[0].TypeHint)
	assert.Equal(t, models.EvidenceExtracted, candidates[0].SourceEvidence)

	assert.Equal(t, MetricDistanceKm, candidates[1].MetricHint)
}

func TestDocumentAdapterTablesPass(t *testing.T) {
	a := &documentAdapter{analyzer: &fakeAnalyzer{result: &AnalysisResult{
		Tables: []AnalyzedTable{
			{
				Header: []string{"Description", "Amount", "Currency"},
				Rows: [][]string{
					{"Service fee", "(150.00)", "CAD"},
					{"", "10.00", "CAD"}, // no description
				},
			},
			{
				// Headerless table: last parseable cell is the amount.
				Rows: [][]string{
					{"Booking fee", "notes", "25.00"},
				},
			},
		},
	}}}

	candidates, err := a.Extract(context.Background(), nil, ProviderPolicy{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Service fee", candidates[0].Description)
	assert.Equal(t, "-150", candidates[0].Amount.String())
	assert.Contains(t, candidates[0].CurrencyCell, "CAD")

	assert.Equal(t, "Booking fee", candidates[1].Description)
	assert.Equal(t, "25", candidates[1].Amount.String())
}

func TestDocumentAdapterFreeTextPass(t *testing.T) {
	a := &documentAdapter{analyzer: &fakeAnalyzer{result: &AnalysisResult{
		RawText: "Annual Tax Summary\nGross Uber rides fare\n$12,345.67\nGST/HST you collected: $1,604.94\n",
	}}}

	candidates, err := a.Extract(context.Background(), nil, ProviderPolicyFor("uber"))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Amount found by lookahead on the line below the label.
	assert.Equal(t, "gross uber rides fare", candidates[0].Description)
	assert.Equal(t, "12345.67", candidates[0].Amount.String())
	assert.Equal(t, models.EvidenceInferred, candidates[0].SourceEvidence)

	// Amount on the same line as the label.
	assert.Equal(t, "gst/hst you collected", candidates[1].Description)
	assert.Equal(t, "1604.94", candidates[1].Amount.String())
}

func TestDocumentAdapterAnalyzerFailureIsRetryable(t *testing.T) {
	a := &documentAdapter{analyzer: &fakeAnalyzer{err: errors.New("deadline exceeded")}}
	_, err := a.Extract(context.Background(), nil, ProviderPolicy{})
	require.Error(t, err)
	assert.True(t, utils.IsRetryable(err))
}

func TestSelectAdapterUnknownContentTypeIsFatal(t *testing.T) {
	_, err := SelectAdapter("application/zip")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.False(t, utils.IsRetryable(err))
}
