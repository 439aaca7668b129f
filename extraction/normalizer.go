package extraction

import (
	"context"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunStatementExtraction turns the statement's raw document into its
// authoritative line set. The whole run replaces rather than increments, so a
// redelivered or retried extraction always converges on the latest output.
func RunStatementExtraction(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, statement *models.Statement) error {
	adapter, err := SelectAdapter(statement.ContentType)
	if err != nil {
		config.LogError(logger, "normalizer.go", "RunStatementExtraction", "SelectAdapter", statement.ContentType, err)
		return err
	}

	rc, err := utils.OpenObjectRead(ctx, statement.FileObject)
	if err != nil {
		config.LogError(logger, "normalizer.go", "RunStatementExtraction", "OpenObjectRead", statement.FileObject, err)
		return err
	}
	defer rc.Close()

	policy := ProviderPolicyFor(statement.Provider)
	candidates, err := adapter.Extract(ctx, rc, policy)
	if err != nil {
		config.LogError(logger, "normalizer.go", "RunStatementExtraction", "Extract", statement.ID, err)
		return err
	}

	lines := BuildLines(candidates, statement)
	lines = Collapse(lines)
	lines = ApplyProviderPolicy(policy, lines)

	return PersistLines(ctx, tx, statement, lines)
}

// BuildLines classifies each candidate and resolves its currency, producing
// unpersisted statement lines.
func BuildLines(candidates []LineCandidate, statement *models.Statement) []models.StatementLine {
	lines := make([]models.StatementLine, 0, len(candidates))
	for _, c := range candidates {
		cls := Classify(c)

		line := models.StatementLine{
			TenantId:               statement.TenantId,
			StatementId:            statement.ID,
			Description:            c.Description,
			ClassificationEvidence: cls.Evidence,
		}

		if cls.IsMetric {
			if c.Amount == nil {
				continue
			}
			v := RoundMetricValue(cls.MetricKey, *c.Amount)
			line.IsMetric = true
			line.MetricKey = cls.MetricKey
			line.MetricValue = &v
			line.Unit = MetricUnit(cls.MetricKey)
			line.CurrencyEvidence = models.EvidenceInferred
		} else {
			line.LineType = cls.LineType
			line.MoneyAmount = RoundedMoney(c.Amount)
			line.TaxAmount = RoundedMoney(c.TaxAmount)
			// Tax-typed lines carry their value in the tax column. Adapters
			// put whatever they parsed into Amount; aggregation reads
			// TaxCollected/Itc exclusively from tax.
			if line.TaxAmount == nil &&
				(cls.LineType == models.LineTypeTaxCollected || cls.LineType == models.LineTypeItc) {
				line.TaxAmount = line.MoneyAmount
				line.MoneyAmount = nil
			}
			line.CurrencyCode, line.CurrencyEvidence = resolveCurrency(c, statement)
		}

		if err := line.Validate(); err != nil {
			// Candidates violating the metric/money shape are dropped, not
			// persisted half-formed.
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// resolveCurrency: explicit cell beats statement-level currency beats default.
func resolveCurrency(c LineCandidate, statement *models.Statement) (string, models.Evidence) {
	if code, ok := DetectCurrencyCode(c.CurrencyCell); ok {
		return code, models.EvidenceExtracted
	}
	if statement.CurrencyCode != "" {
		return statement.CurrencyCode, models.EvidenceInferred
	}
	return DefaultCurrencyCode, models.EvidenceInferred
}

// PersistLines replaces the statement's line set, recomputes rollups and the
// statement currency, and resets status to Draft so the posting gate
// re-evaluates granularity.
func PersistLines(ctx context.Context, tx *gorm.DB, statement *models.Statement, lines []models.StatementLine) error {
	if err := tx.WithContext(ctx).
		Where("statement_id = ? AND tenant_id = ?", statement.ID, statement.TenantId).
		Delete(&models.StatementLine{}).Error; err != nil {
		return err
	}

	for i := range lines {
		lines[i].TenantId = statement.TenantId
		lines[i].StatementId = statement.ID
	}
	if len(lines) > 0 {
		if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
			return err
		}
	}

	totalIncome, totalFees, totalTax := Rollups(lines)
	currency, currencyEvidence := MajorityCurrency(lines)

	return tx.WithContext(ctx).Model(&models.Statement{}).
		Where("id = ? AND tenant_id = ?", statement.ID, statement.TenantId).
		Updates(map[string]interface{}{
			"total_income":      totalIncome,
			"total_fees":        totalFees,
			"total_tax":         totalTax,
			"currency_code":     currency,
			"currency_evidence": currencyEvidence,
			"status":            models.StatementStatusDraft,
		}).Error
}

// Rollups sums the monetary lines by bucket for the statement header.
func Rollups(lines []models.StatementLine) (income, fees, tax decimal.Decimal) {
	for _, l := range lines {
		if l.IsMetric {
			continue
		}
		switch l.LineType {
		case models.LineTypeIncome:
			income = income.Add(l.Money())
		case models.LineTypeFee:
			fees = fees.Add(l.Money().Abs())
		case models.LineTypeTaxCollected:
			tax = tax.Add(l.Money())
		}
		tax = tax.Add(l.Tax())
	}
	return income, fees, tax
}

// MajorityCurrency votes across explicitly-extracted line currencies; a tie
// breaks toward the first seen. No explicit currency at all falls back to the
// inferred default.
func MajorityCurrency(lines []models.StatementLine) (string, models.Evidence) {
	counts := map[string]int{}
	var order []string
	for _, l := range lines {
		if l.CurrencyEvidence != models.EvidenceExtracted || l.CurrencyCode == "" {
			continue
		}
		if counts[l.CurrencyCode] == 0 {
			order = append(order, l.CurrencyCode)
		}
		counts[l.CurrencyCode]++
	}
	if len(order) == 0 {
		return DefaultCurrencyCode, models.EvidenceInferred
	}
	best := order[0]
	for _, code := range order[1:] {
		if counts[code] > counts[best] {
			best = code
		}
	}
	return best, models.EvidenceExtracted
}
