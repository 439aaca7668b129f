package extraction

import (
	"context"
	"io"
	"strings"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
)

// documentAdapter runs a page-image/PDF through the external analyzer and
// combines three candidate passes: structured fields, generic table rows,
// provider free-text rules.
type documentAdapter struct {
	analyzer DocumentAnalyzer
}

func (a *documentAdapter) CanHandle(contentType string) bool {
	if a.analyzer == nil {
		return false
	}
	return a.analyzer.CanHandle(contentType)
}

func (a *documentAdapter) Extract(ctx context.Context, r io.Reader, policy ProviderPolicy) ([]LineCandidate, error) {
	result, err := a.analyzer.Analyze(ctx, r)
	if err != nil {
		// Analyzer failures are retryable: persistence fully replaces, so a
		// redelivered extraction converges.
		return nil, utils.NewTransientInfraError("document analyze", err)
	}

	var candidates []LineCandidate
	candidates = append(candidates, fieldsPass(result.Fields)...)
	candidates = append(candidates, tablesPass(result.Tables)...)
	candidates = append(candidates, freeTextPass(result.RawText, policy.FreeTextRules)...)
	return candidates, nil
}

// typeHints maps the analyzer's own field classifications to line types.
var typeHints = map[string]models.LineType{
	"income":        models.LineTypeIncome,
	"fee":           models.LineTypeFee,
	"tax_collected": models.LineTypeTaxCollected,
	"itc":           models.LineTypeItc,
	"expense":       models.LineTypeExpense,
	"other":         models.LineTypeOther,
}

func fieldsPass(fields []AnalyzedField) []LineCandidate {
	var out []LineCandidate
	for _, f := range fields {
		amount, ok := ParseAmount(f.Value)
		if !ok {
			continue
		}
		c := LineCandidate{
			Description:    strings.TrimSpace(f.Key),
			Amount:         &amount,
			CurrencyCell:   f.Value,
			SourceEvidence: models.EvidenceExtracted,
		}
		hint := strings.ToLower(strings.TrimSpace(f.TypeHint))
		if lt, known := typeHints[hint]; known {
			c.TypeHint = lt
			c.HasTypeHint = true
		} else if strings.HasPrefix(hint, "metric:") {
			c.MetricHint = strings.TrimPrefix(hint, "metric:")
		}
		out = append(out, c)
	}
	return out
}

func tablesPass(tables []AnalyzedTable) []LineCandidate {
	var out []LineCandidate
	for _, t := range tables {
		amountCol, currencyCol := tableColumns(t.Header)
		for _, row := range t.Rows {
			if len(row) == 0 {
				continue
			}
			desc := strings.TrimSpace(row[0])
			if desc == "" {
				continue
			}
			var raw string
			if amountCol >= 0 && amountCol < len(row) {
				raw = row[amountCol]
			} else {
				// Headerless table: take the last cell that parses.
				for i := len(row) - 1; i > 0; i-- {
					if _, ok := ParseAmount(row[i]); ok {
						raw = row[i]
						break
					}
				}
			}
			amount, ok := ParseAmount(raw)
			if !ok {
				continue
			}
			c := LineCandidate{
				Description:    desc,
				Amount:         &amount,
				CurrencyCell:   raw,
				SourceEvidence: models.EvidenceExtracted,
			}
			if currencyCol >= 0 && currencyCol < len(row) {
				c.CurrencyCell = row[currencyCol] + " " + raw
			}
			out = append(out, c)
		}
	}
	return out
}

func tableColumns(header []string) (amountCol, currencyCol int) {
	amountCol, currencyCol = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "amount", "total", "value", "amount (cad)", "earnings":
			amountCol = i
		case "currency", "ccy":
			currencyCol = i
		}
	}
	return amountCol, currencyCol
}

// freeTextPass applies provider label rules: a matched label takes its amount
// from the same line, else from the next lines within the bounded lookahead.
func freeTextPass(rawText string, rules []FreeTextRule) []LineCandidate {
	if rawText == "" || len(rules) == 0 {
		return nil
	}
	lines := strings.Split(rawText, "\n")
	lookahead := config.FreeTextLookaheadLines()

	var out []LineCandidate
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, rule := range rules {
			if !strings.Contains(lower, rule.Label) {
				continue
			}
			amount, found := FindAmount(strings.Replace(lower, rule.Label, "", 1))
			for j := 1; !found && j <= lookahead && i+j < len(lines); j++ {
				amount, found = FindAmount(lines[i+j])
			}
			if !found {
				continue
			}
			c := LineCandidate{
				Description:    rule.Label,
				Amount:         &amount,
				CurrencyCell:   line,
				SourceEvidence: models.EvidenceInferred,
			}
			if rule.MetricKey != "" {
				c.MetricHint = rule.MetricKey
			} else {
				c.TypeHint = rule.LineType
				c.HasTypeHint = true
			}
			out = append(out, c)
		}
	}
	return out
}
