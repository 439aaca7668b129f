package extraction

import (
	"context"
	"io"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// AnalysisResult is what the external document-analysis service returns for
// one page-image/PDF document: key-value fields, detected tables, raw text.
type AnalysisResult struct {
	Fields  []AnalyzedField
	Tables  []AnalyzedTable
	RawText string
}

type AnalyzedField struct {
	Key        string
	Value      string
	TypeHint   string // analyzer's own classification, when it has one
	Confidence float64
}

type AnalyzedTable struct {
	Header []string
	Rows   [][]string
}

// DocumentAnalyzer is the consumed contract for the structured-document
// service. Implementations live outside this repo; tests use fakes.
type DocumentAnalyzer interface {
	CanHandle(contentType string) bool
	Analyze(ctx context.Context, r io.Reader) (*AnalysisResult, error)
}

// LineCandidate is the provider-agnostic output of one adapter pass, before
// classification, currency resolution and collapsing.
type LineCandidate struct {
	Description      string
	Amount           *decimal.Decimal
	TaxAmount        *decimal.Decimal
	CurrencyCell     string // raw cell content the currency may hide in
	TypeHint         models.LineType
	HasTypeHint      bool
	MetricHint       string // canonical metric key when the source marks it
	SourceEvidence   models.Evidence
}

// Adapter produces line candidates from one raw document stream.
type Adapter interface {
	CanHandle(contentType string) bool
	Extract(ctx context.Context, r io.Reader, policy ProviderPolicy) ([]LineCandidate, error)
}

// adapters is the selection order: structured-document analysis for
// page images/PDF, delimited text for CSV, spreadsheet for XLSX.
var adapters []Adapter

// activeAnalyzer is the registered document-analysis client; receipt
// extraction uses it directly, statements go through the adapter pipeline.
var activeAnalyzer DocumentAnalyzer

// RegisterDocumentAnalyzer installs the analyzer-backed adapter. Called once
// at startup with the production analyzer client.
func RegisterDocumentAnalyzer(analyzer DocumentAnalyzer) {
	activeAnalyzer = analyzer
	adapters = []Adapter{
		&documentAdapter{analyzer: analyzer},
		&csvAdapter{},
		&xlsxAdapter{},
	}
}

func init() {
	// CSV/XLSX need no external service and are always available.
	adapters = []Adapter{&csvAdapter{}, &xlsxAdapter{}}
}

// SelectAdapter picks the adapter for a content type. No match is fatal:
// retrying an unsupported document cannot succeed.
func SelectAdapter(contentType string) (Adapter, error) {
	for _, a := range adapters {
		if a.CanHandle(contentType) {
			return a, nil
		}
	}
	return nil, utils.NewValidationError("no extractor for content type " + contentType)
}
