package extraction

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
)

// csvAdapter reads delimited statement exports. Providers disagree on
// delimiter, column naming and row order, so the header is matched against
// known column roles rather than a fixed schema.
type csvAdapter struct{}

func (a *csvAdapter) CanHandle(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "text/csv", "application/csv", "text/plain":
		return true
	}
	return false
}

// columnRoles maps header names (lowercased) to their role in a row.
var columnRoles = map[string]string{
	"description":  "description",
	"item":         "description",
	"category":     "description",
	"line item":    "description",
	"amount":       "amount",
	"total":        "amount",
	"value":        "amount",
	"earnings":     "amount",
	"tax":          "tax",
	"tax amount":   "tax",
	"gst/hst":      "tax",
	"currency":     "currency",
	"ccy":          "currency",
	"type":         "hint",
	"line type":    "hint",
	"metric":       "metric",
	"metric value": "metricValue",
	"unit":         "unit",
}

func (a *csvAdapter) Extract(ctx context.Context, r io.Reader, policy ProviderPolicy) ([]LineCandidate, error) {
	utf8r, err := newUTF8Reader(r)
	if err != nil {
		return nil, utils.NewValidationError("detect encoding: " + err.Error())
	}
	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, utils.NewTransientInfraError("read csv stream", err)
	}

	// Providers export both comma- and semicolon-delimited files.
	for _, comma := range []rune{',', ';'} {
		reader := csv.NewReader(strings.NewReader(string(raw)))
		reader.Comma = comma
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		rows, err := reader.ReadAll()
		if err != nil || len(rows) == 0 {
			continue
		}
		if roles, headerIdx := detectHeader(rows); roles != nil {
			return rowsToCandidates(roles, rows[headerIdx+1:]), nil
		}
	}
	return nil, utils.NewValidationError("no recognizable header row in csv statement")
}

// roleIndex maps a role to its column index for the matched header.
type roleIndex map[string]int

// detectHeader scans the first rows for one that names a description and an
// amount column; provider exports often carry preamble rows above the header.
func detectHeader(rows [][]string) (roleIndex, int) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for rowIdx := 0; rowIdx < limit; rowIdx++ {
		roles := roleIndex{}
		for i, cell := range rows[rowIdx] {
			if role, ok := columnRoles[strings.ToLower(strings.TrimSpace(cell))]; ok {
				if _, taken := roles[role]; !taken {
					roles[role] = i
				}
			}
		}
		_, hasDesc := roles["description"]
		_, hasAmount := roles["amount"]
		if hasDesc && hasAmount {
			return roles, rowIdx
		}
	}
	return nil, 0
}

func rowsToCandidates(roles roleIndex, rows [][]string) []LineCandidate {
	var out []LineCandidate
	for _, row := range rows {
		desc := cellAt(row, roles, "description")
		if desc == "" {
			continue
		}

		c := LineCandidate{
			Description:    desc,
			SourceEvidence: models.EvidenceExtracted,
		}

		rawAmount := cellAt(row, roles, "amount")
		if amount, ok := ParseAmount(rawAmount); ok {
			c.Amount = &amount
		}
		if tax, ok := ParseAmount(cellAt(row, roles, "tax")); ok {
			c.TaxAmount = &tax
		}
		if c.Amount == nil && c.TaxAmount == nil {
			continue
		}

		c.CurrencyCell = strings.TrimSpace(cellAt(row, roles, "currency") + " " + rawAmount)

		hint := strings.ToLower(cellAt(row, roles, "hint"))
		if lt, known := typeHints[hint]; known {
			c.TypeHint = lt
			c.HasTypeHint = true
		}
		if metricCell := cellAt(row, roles, "metric"); strings.EqualFold(metricCell, "true") || strings.EqualFold(metricCell, "yes") {
			if key, ok := CanonicalMetricKey(desc); ok {
				c.MetricHint = key
			}
		}
		out = append(out, c)
	}
	return out
}

func cellAt(row []string, roles roleIndex, role string) string {
	idx, ok := roles[role]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
