package workflow

import (
	"context"
	"sort"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Variance metric keys for the monetary rollups. Metric-line keys
// (distance_km etc.) are compared under their own canonical names.
const (
	VarianceKeyIncomeTotal       = "income_total"
	VarianceKeyFeeTotal          = "fee_total"
	VarianceKeyTaxCollectedTotal = "tax_collected_total"
	VarianceKeyItcTotal          = "itc_total"
)

// adjustmentAllowlist maps the variance metrics that may post an adjustment
// onto the ledger line type the delta lands on. Income and gross-total
// variances never post: revenue is already captured by statement posting and
// the snapshot's anchor preference, an adjustment there would double-count.
var adjustmentAllowlist = map[string]models.LineType{
	VarianceKeyFeeTotal:          models.LineTypeFee,
	VarianceKeyTaxCollectedTotal: models.LineTypeTaxCollected,
	VarianceKeyItcTotal:          models.LineTypeItc,
}

// taxCarryingAdjustments lists allowlisted metrics whose delta is a tax
// figure and therefore lands on the line's tax column, not its net amount.
var taxCarryingAdjustments = map[string]bool{
	VarianceKeyTaxCollectedTotal: true,
	VarianceKeyItcTotal:          true,
}

// RunReconciliation compares the Monthly statements of one
// (tenant, provider, year) against its Yearly statement and upserts one
// ReconciliationRun with per-metric variances (variance = monthly - yearly).
// Fails with a ValidationError, creating nothing, when no Yearly statement
// exists. Publishes reconciliation.completed after commit.
func RunReconciliation(ctx context.Context, db *gorm.DB, logger *logrus.Logger, provider, year string) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	var yearly models.Statement
	err = db.WithContext(ctx).Preload("Lines").
		Where("tenant_id = ? AND provider = ? AND period_type = ? AND period_key = ?",
			tenantId, provider, models.PeriodTypeYearly, year).
		First(&yearly).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NewValidationError("no yearly statement for " + provider + " " + year)
		}
		return err
	}

	var monthly []models.Statement
	err = db.WithContext(ctx).Preload("Lines").
		Where("tenant_id = ? AND provider = ? AND period_type = ? AND period_key LIKE ?",
			tenantId, provider, models.PeriodTypeMonthly, year+"-%").
		Find(&monthly).Error
	if err != nil {
		return err
	}

	variances := ComputeVariances(monthly, yearly)

	var runId int
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := models.ReconciliationRun{
			TenantId:   tenantId,
			Provider:   provider,
			PeriodType: models.PeriodTypeYearly,
			Year:       year,
		}
		err := tx.Where("tenant_id = ? AND provider = ? AND period_type = ? AND year = ?",
			tenantId, provider, models.PeriodTypeYearly, year).
			First(&run).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		now := time.Now().UTC()
		yearlyId := yearly.ID
		run.YearlyStatementId = &yearlyId
		run.Status = models.ReconciliationStatusCompleted
		run.CompletedAt = &now
		for _, v := range variances {
			if v.MetricKey == VarianceKeyIncomeTotal {
				run.MonthlyIncomeTotal = v.MonthlyTotal
				run.YearlyIncomeTotal = v.YearlyTotal
				run.VarianceAmount = v.Variance
			}
		}
		if err := tx.Save(&run).Error; err != nil {
			if !utils.IsDuplicateKeyErr(err) {
				return err
			}
			// A concurrent run inserted the row first. Adopt it and
			// overwrite; reruns are full recomputations anyway.
			var existing models.ReconciliationRun
			err = tx.Where("tenant_id = ? AND provider = ? AND period_type = ? AND year = ?",
				tenantId, provider, models.PeriodTypeYearly, year).
				First(&existing).Error
			if err != nil {
				return err
			}
			run.ID = existing.ID
			run.CreatedAt = existing.CreatedAt
			if err := tx.Save(&run).Error; err != nil {
				return err
			}
		}
		runId = run.ID

		// Reruns overwrite: wipe the old metric rows before writing this run's.
		if err := tx.Where("run_id = ? AND tenant_id = ?", run.ID, tenantId).
			Delete(&models.ReconciliationVariance{}).Error; err != nil {
			return err
		}
		for i := range variances {
			variances[i].TenantId = tenantId
			variances[i].RunId = run.ID
			if err := tx.Create(&variances[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	PublishAfterCommit(ctx, logger, config.TopicReconciliationCompleted, tenantId, ReconciliationCompletedData{
		RunId:    runId,
		Provider: provider,
		Year:     year,
	})
	return nil
}

// ComputeVariances sums comparable metrics across the Monthly statements and
// compares them against the Yearly statement's same metrics. Monetary rollups
// compare under the *_total keys; metric lines compare under their canonical
// keys. Pure function over loaded statements; exported for deterministic tests.
func ComputeVariances(monthly []models.Statement, yearly models.Statement) []models.ReconciliationVariance {
	monthlyTotals := map[string]decimal.Decimal{}
	for i := range monthly {
		accumulateStatementTotals(monthlyTotals, monthly[i].Lines)
	}
	yearlyTotals := map[string]decimal.Decimal{}
	accumulateStatementTotals(yearlyTotals, yearly.Lines)

	keys := map[string]bool{}
	for k := range monthlyTotals {
		keys[k] = true
	}
	for k := range yearlyTotals {
		keys[k] = true
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	variances := make([]models.ReconciliationVariance, 0, len(ordered))
	for _, key := range ordered {
		m := monthlyTotals[key]
		y := yearlyTotals[key]
		variances = append(variances, models.ReconciliationVariance{
			MetricKey:    key,
			MonthlyTotal: m,
			YearlyTotal:  y,
			Variance:     m.Sub(y),
		})
	}
	return variances
}

func accumulateStatementTotals(totals map[string]decimal.Decimal, lines []models.StatementLine) {
	for _, line := range lines {
		if line.IsMetric {
			if line.MetricValue != nil {
				totals[line.MetricKey] = totals[line.MetricKey].Add(*line.MetricValue)
			}
			continue
		}
		switch line.LineType {
		case models.LineTypeIncome:
			totals[VarianceKeyIncomeTotal] = totals[VarianceKeyIncomeTotal].Add(line.Money())
		case models.LineTypeFee:
			totals[VarianceKeyFeeTotal] = totals[VarianceKeyFeeTotal].Add(line.Money())
		case models.LineTypeTaxCollected:
			totals[VarianceKeyTaxCollectedTotal] = totals[VarianceKeyTaxCollectedTotal].Add(line.Tax())
		case models.LineTypeItc:
			totals[VarianceKeyItcTotal] = totals[VarianceKeyItcTotal].Add(line.Tax())
		}
	}
}

// ProcessReconciliationCompletedWorkflow posts the adjustment for one
// completed run: one line per allowlisted variance metric, delta = -variance,
// variances inside the rounding tolerance skipped. Zero resulting lines
// records a no-op audit instead of an empty entry.
func ProcessReconciliationCompletedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data ReconciliationCompletedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	run, err := utils.FetchModel[models.ReconciliationRun](ctx, db, tenantId, data.RunId, "Variances")
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return utils.NewValidationError("reconciliation run not found: " + strconv.Itoa(data.RunId))
		}
		return err
	}

	sourceId := strconv.Itoa(run.ID)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	posted, err := RunPosting(ctx, db, logger, tenantId, models.JobTypeAdjustmentPost, "reconciliation:"+sourceId,
		models.LedgerSourceTypeReconciliation, sourceId,
		func(tx *gorm.DB) (*models.LedgerEntry, error) {
			entry := BuildAdjustmentEntry(run, config.ReconciliationTolerance(), correlationId)
			if entry == nil {
				return nil, RecordAudit(ctx, tx, tenantId, models.AuditEventTypeAdjustmentSkipped,
					string(models.LedgerSourceTypeReconciliation), sourceId,
					"no variance above tolerance for "+run.Provider+" "+run.Year, nil)
			}
			return entry, nil
		})
	if err != nil {
		return err
	}

	if posted != nil {
		PublishAfterCommit(ctx, logger, config.TopicLedgerPosted, tenantId, LedgerPostedData{
			LedgerEntryId: posted.ID,
			SourceType:    models.LedgerSourceTypeReconciliation,
			SourceId:      sourceId,
			Provider:      run.Provider,
			PeriodType:    models.PeriodTypeYearly,
			PeriodKey:     run.Year,
			EntryDate:     posted.EntryDate,
		})
	}
	return nil
}

// BuildAdjustmentEntry constructs the adjustment entry for one run without
// touching storage. Nil when no allowlisted variance clears the tolerance.
// Exported for deterministic tests.
func BuildAdjustmentEntry(run *models.ReconciliationRun, tolerance decimal.Decimal, correlationId string) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		EntryDate:     time.Date(atoiOrZero(run.Year), 12, 31, 0, 0, 0, 0, time.UTC),
		Description:   run.Provider + " reconciliation adjustment " + run.Year,
		Provider:      run.Provider,
		PeriodType:    models.PeriodTypeYearly,
		PeriodKey:     run.Year,
		CorrelationId: correlationId,
	}
	for _, v := range run.Variances {
		lineType, allowed := adjustmentAllowlist[v.MetricKey]
		if !allowed {
			continue
		}
		if v.Variance.Abs().LessThan(tolerance) {
			continue
		}
		delta := v.Variance.Neg()
		line := models.LedgerLine{
			LineType:    lineType,
			Description: "adjustment " + v.MetricKey,
		}
		if taxCarryingAdjustments[v.MetricKey] {
			line.GstHst = delta
		} else {
			line.Amount = delta
		}
		entry.Lines = append(entry.Lines, line)
	}
	if len(entry.Lines) == 0 {
		return nil
	}
	return entry
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
