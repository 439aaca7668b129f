package extraction

import (
	"context"
	"io"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// ReceiptExtraction is the normalized output of analyzing one expense
// document: the fields the posting handler needs plus an overall confidence.
type ReceiptExtraction struct {
	Merchant     string
	ReceiptDate  time.Time
	CurrencyCode string
	TotalAmount  decimal.Decimal
	TaxAmount    decimal.Decimal
	Confidence   decimal.Decimal
}

// receiptFieldKeys maps analyzer field keys (lowercased) onto the receipt
// fields we extract. Analyzers differ in labeling; this covers what the
// supported ones emit.
var receiptTotalKeys = []string{"total", "total_amount", "amount_due", "grand total", "amount"}
var receiptTaxKeys = []string{"tax", "total_tax", "hst", "gst", "sales tax", "tax_amount"}
var receiptMerchantKeys = []string{"merchant", "merchant_name", "supplier", "vendor", "store"}
var receiptDateKeys = []string{"date", "transaction_date", "receipt_date", "purchase_date"}

// AnalyzeReceipt runs one expense document through the registered document
// analyzer and normalizes its fields. Image content is downscaled and
// re-encoded first. Analyzer failures are transient; a document the analyzer
// handles but yields no total from is a validation failure, not worth a retry.
func AnalyzeReceipt(ctx context.Context, r io.Reader, contentType string) (*ReceiptExtraction, error) {
	if activeAnalyzer == nil || !activeAnalyzer.CanHandle(contentType) {
		return nil, utils.NewValidationError("no analyzer for content type " + contentType)
	}

	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		normalized, err := NormalizeReceiptImage(r, contentType)
		if err != nil {
			return nil, utils.NewValidationError("undecodable receipt image: " + err.Error())
		}
		r = normalized
	}

	result, err := activeAnalyzer.Analyze(ctx, r)
	if err != nil {
		return nil, utils.NewTransientInfraError("analyze receipt", err)
	}
	return normalizeReceiptResult(result)
}

func normalizeReceiptResult(result *AnalysisResult) (*ReceiptExtraction, error) {
	out := &ReceiptExtraction{}
	var confidences []float64

	for _, f := range result.Fields {
		key := strings.ToLower(strings.TrimSpace(f.Key))
		switch {
		case matchesAny(key, receiptTotalKeys):
			if amt, ok := ParseAmount(f.Value); ok {
				out.TotalAmount = amt.Abs()
				confidences = append(confidences, f.Confidence)
			}
			if code, ok := DetectCurrencyCode(f.Value); ok && out.CurrencyCode == "" {
				out.CurrencyCode = code
			}
		case matchesAny(key, receiptTaxKeys):
			if amt, ok := ParseAmount(f.Value); ok {
				out.TaxAmount = amt.Abs()
				confidences = append(confidences, f.Confidence)
			}
		case matchesAny(key, receiptMerchantKeys):
			if out.Merchant == "" {
				out.Merchant = strings.TrimSpace(f.Value)
				confidences = append(confidences, f.Confidence)
			}
		case matchesAny(key, receiptDateKeys):
			if d, ok := ParseDate(f.Value); ok && out.ReceiptDate.IsZero() {
				out.ReceiptDate = d
				confidences = append(confidences, f.Confidence)
			}
		}
	}

	if out.TotalAmount.IsZero() {
		// Last resort: largest amount anywhere in the raw text.
		if amt, ok := largestAmountInText(result.RawText); ok {
			out.TotalAmount = amt
		}
	}
	if out.TotalAmount.IsZero() {
		return nil, utils.NewValidationError("no total amount found in receipt")
	}
	if out.TaxAmount.GreaterThan(out.TotalAmount) {
		return nil, utils.NewDataIntegrityError("receipt tax exceeds total")
	}
	if out.CurrencyCode == "" {
		if code, ok := DetectCurrencyCode(result.RawText); ok {
			out.CurrencyCode = code
		} else {
			out.CurrencyCode = DefaultCurrencyCode
		}
	}
	if out.ReceiptDate.IsZero() {
		for _, line := range strings.Split(result.RawText, "\n") {
			if d, ok := ParseDate(strings.TrimSpace(line)); ok {
				out.ReceiptDate = d
				break
			}
		}
	}

	out.Confidence = averageConfidence(confidences)
	return out, nil
}

func matchesAny(key string, candidates []string) bool {
	for _, c := range candidates {
		if key == c {
			return true
		}
	}
	return false
}

func largestAmountInText(text string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, line := range strings.Split(text, "\n") {
		if amt, ok := FindAmount(line); ok {
			abs := amt.Abs()
			if !found || abs.GreaterThan(best) {
				best = abs
				found = true
			}
		}
	}
	return best, found
}

func averageConfidence(confidences []float64) decimal.Decimal {
	if len(confidences) == 0 {
		return decimal.Zero
	}
	sum := 0.0
	for _, c := range confidences {
		sum += c
	}
	return decimal.NewFromFloat(sum / float64(len(confidences))).Round(4)
}
