package workflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SnapshotTotals is the aggregate of one bucket's ledger lines plus the
// evidence-weighted confidence derived from its statement-sourced lines.
type SnapshotTotals struct {
	Revenue        decimal.Decimal
	Expenses       decimal.Decimal
	TaxCollected   decimal.Decimal
	Itc            decimal.Decimal
	NetTax         decimal.Decimal
	AuthorityScore int
	EvidencePct    decimal.Decimal
	EstimatedPct   decimal.Decimal
}

// ComputeSnapshot aggregates the given entries' lines by line type.
//
// Revenue is summed per provider: within a provider, lines matching that
// provider's anchor description are preferred when any are present, falling
// back to summing all its Income lines, so a coarse total and its component
// breakdown never double-count while one provider's anchor cannot suppress
// another's income. anchorFor maps an entry's provider to its anchor
// description; nil or an empty return means no anchor preference. Expenses
// take absolute values: providers report fees as signed deductions, receipts
// as positive spend.
//
// The authority score is the Extracted fraction of monetary statement-sourced
// lines, receipts never contribute; evidence maps a statement line id to its
// classification evidence. Zero such lines means fully estimated.
//
// Pure function of the entries; exported for deterministic tests.
func ComputeSnapshot(entries []models.LedgerEntry, anchorFor func(provider string) string, evidence map[int]models.Evidence) SnapshotTotals {
	var totals SnapshotTotals
	incomeByProvider := map[string]decimal.Decimal{}
	anchorByProvider := map[string]decimal.Decimal{}
	anchorSeen := map[string]bool{}
	evidenced, monetary := 0, 0

	for i := range entries {
		provider := entries[i].Provider
		anchor := ""
		if anchorFor != nil {
			anchor = anchorFor(provider)
		}
		for _, line := range entries[i].Lines {
			switch line.LineType {
			case models.LineTypeIncome:
				incomeByProvider[provider] = incomeByProvider[provider].Add(line.Amount)
				if anchor != "" && strings.EqualFold(strings.TrimSpace(line.Description), anchor) {
					anchorByProvider[provider] = anchorByProvider[provider].Add(line.Amount)
					anchorSeen[provider] = true
				}
			case models.LineTypeFee, models.LineTypeExpense:
				totals.Expenses = totals.Expenses.Add(line.Amount.Abs())
			case models.LineTypeTaxCollected:
				totals.TaxCollected = totals.TaxCollected.Add(line.GstHst)
			case models.LineTypeItc:
				totals.Itc = totals.Itc.Add(line.GstHst)
			}
			if line.StatementLineId != nil {
				monetary++
				if evidence[*line.StatementLineId] == models.EvidenceExtracted {
					evidenced++
				}
			}
		}
	}

	for provider, income := range incomeByProvider {
		if anchorSeen[provider] {
			totals.Revenue = totals.Revenue.Add(anchorByProvider[provider])
		} else {
			totals.Revenue = totals.Revenue.Add(income)
		}
	}
	totals.NetTax = totals.TaxCollected.Sub(totals.Itc)

	if monetary == 0 {
		totals.AuthorityScore = 0
		totals.EvidencePct = decimal.Zero
		totals.EstimatedPct = decimal.NewFromInt(1)
		return totals
	}
	pct := decimal.NewFromInt(int64(evidenced)).Div(decimal.NewFromInt(int64(monetary)))
	totals.EvidencePct = pct.Round(4)
	totals.EstimatedPct = decimal.NewFromInt(1).Sub(pct).Round(4)
	totals.AuthorityScore = int(pct.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	return totals
}

// RecomputeSnapshot rebuilds one bucket from current ledger state and upserts
// the snapshot row in place. YTD buckets aggregate every entry dated within
// the year; Monthly/Quarterly buckets are restricted to entries sourced from
// statements of that exact period, so yearly-sourced lines never leak in.
// Anchor revenue descriptions come from each entry's own provider, keeping
// the result a function of ledger state alone.
func RecomputeSnapshot(ctx context.Context, tx *gorm.DB, tenantId string, periodType models.PeriodType, periodKey string) error {
	var entries []models.LedgerEntry

	switch periodType {
	case models.PeriodTypeYTD:
		start, end, err := extraction.PeriodRange(models.PeriodTypeYearly, periodKey)
		if err != nil {
			return err
		}
		err = tx.WithContext(ctx).Preload("Lines").
			Where("tenant_id = ? AND entry_date >= ? AND entry_date < ?", tenantId, start, end).
			Find(&entries).Error
		if err != nil {
			return err
		}
	case models.PeriodTypeMonthly, models.PeriodTypeQuarterly:
		err := tx.WithContext(ctx).Preload("Lines").
			Where("tenant_id = ? AND source_type = ? AND period_type = ? AND period_key = ?",
				tenantId, models.LedgerSourceTypeStatement, periodType, periodKey).
			Find(&entries).Error
		if err != nil {
			return err
		}
	default:
		return utils.NewDataIntegrityError("no snapshot bucket for period type " + string(periodType))
	}

	evidence, err := statementLineEvidence(ctx, tx, tenantId, entries)
	if err != nil {
		return err
	}

	totals := ComputeSnapshot(entries, extraction.AnchorDescriptionFor, evidence)

	details, err := bucketMetricDetails(ctx, tx, tenantId, periodType, periodKey)
	if err != nil {
		return err
	}

	return upsertSnapshot(ctx, tx, tenantId, periodType, periodKey, totals, details)
}

// statementLineEvidence loads classification evidence for every statement
// line the entries reference.
func statementLineEvidence(ctx context.Context, tx *gorm.DB, tenantId string, entries []models.LedgerEntry) (map[int]models.Evidence, error) {
	var ids []int
	for i := range entries {
		for _, line := range entries[i].Lines {
			if line.StatementLineId != nil {
				ids = append(ids, *line.StatementLineId)
			}
		}
	}
	evidence := make(map[int]models.Evidence, len(ids))
	if len(ids) == 0 {
		return evidence, nil
	}
	var lines []models.StatementLine
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantId, ids).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		evidence[l.ID] = l.ClassificationEvidence
	}
	return evidence, nil
}

// bucketMetricDetails sums metric lines over the statements feeding a bucket.
// YTD buckets cover every posted statement of the year, period buckets only
// their own statements.
func bucketMetricDetails(ctx context.Context, tx *gorm.DB, tenantId string, periodType models.PeriodType, periodKey string) ([]models.SnapshotDetail, error) {
	query := tx.WithContext(ctx).Model(&models.Statement{}).
		Where("tenant_id = ? AND status = ?", tenantId, models.StatementStatusPosted)
	if periodType == models.PeriodTypeYTD {
		query = query.Where("period_key LIKE ?", periodKey+"%")
	} else {
		query = query.Where("period_type = ? AND period_key = ?", periodType, periodKey)
	}

	var statements []models.Statement
	if err := query.Preload("Lines").Find(&statements).Error; err != nil {
		return nil, err
	}

	sums := map[string]decimal.Decimal{}
	units := map[string]string{}
	for i := range statements {
		for _, line := range statements[i].Lines {
			if !line.IsMetric || line.MetricValue == nil {
				continue
			}
			sums[line.MetricKey] = sums[line.MetricKey].Add(*line.MetricValue)
			if line.Unit != "" {
				units[line.MetricKey] = line.Unit
			}
		}
	}

	details := make([]models.SnapshotDetail, 0, len(sums))
	for key, value := range sums {
		details = append(details, models.SnapshotDetail{
			TenantId:  tenantId,
			MetricKey: key,
			Value:     extraction.RoundMetricValue(key, value),
			Unit:      units[key],
		})
	}
	return details, nil
}

func upsertSnapshot(ctx context.Context, tx *gorm.DB, tenantId string, periodType models.PeriodType, periodKey string, totals SnapshotTotals, details []models.SnapshotDetail) error {
	snapshot := models.LedgerSnapshot{
		TenantId:   tenantId,
		PeriodType: periodType,
		PeriodKey:  periodKey,
	}
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND period_type = ? AND period_key = ?", tenantId, periodType, periodKey).
		First(&snapshot).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	snapshot.Revenue = totals.Revenue
	snapshot.Expenses = totals.Expenses
	snapshot.TaxCollected = totals.TaxCollected
	snapshot.Itc = totals.Itc
	snapshot.NetTax = totals.NetTax
	snapshot.AuthorityScore = totals.AuthorityScore
	snapshot.EvidencePct = totals.EvidencePct
	snapshot.EstimatedPct = totals.EstimatedPct
	snapshot.ComputedAt = time.Now().UTC()
	if err := tx.Save(&snapshot).Error; err != nil {
		if !utils.IsDuplicateKeyErr(err) {
			return err
		}
		// A concurrent recompute created the row first. Adopt it and
		// overwrite; both writers computed from the same ledger state.
		var existing models.LedgerSnapshot
		err = tx.WithContext(ctx).
			Where("tenant_id = ? AND period_type = ? AND period_key = ?", tenantId, periodType, periodKey).
			First(&existing).Error
		if err != nil {
			return err
		}
		snapshot.ID = existing.ID
		snapshot.CreatedAt = existing.CreatedAt
		if err := tx.Save(&snapshot).Error; err != nil {
			return err
		}
	}

	// Replace, never append: details are a full recomputation too.
	err = tx.Where("snapshot_id = ? AND tenant_id = ?", snapshot.ID, tenantId).
		Delete(&models.SnapshotDetail{}).Error
	if err != nil {
		return err
	}
	for i := range details {
		details[i].SnapshotId = snapshot.ID
		if err := tx.Create(&details[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ProcessLedgerPostedWorkflow recomputes the buckets one new entry affects.
// Receipts and manual entries touch only the YTD bucket of the entry's year;
// statement entries additionally touch their own Monthly/Quarterly bucket.
// Recomputation is a pure function of current state, so out-of-order and
// duplicate deliveries converge without an idempotency job.
func ProcessLedgerPostedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data LedgerPostedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	year := data.PeriodKey
	if len(year) > 4 {
		year = year[:4]
	}
	if year == "" {
		if data.EntryDate.IsZero() {
			return utils.NewDataIntegrityError("ledger.posted event without period key or entry date")
		}
		year = strconv.Itoa(data.EntryDate.Year())
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return RecomputeSnapshot(ctx, tx, tenantId, models.PeriodTypeYTD, year)
	})
	if err != nil {
		return err
	}

	if data.SourceType == models.LedgerSourceTypeStatement &&
		(data.PeriodType == models.PeriodTypeMonthly || data.PeriodType == models.PeriodTypeQuarterly) {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return RecomputeSnapshot(ctx, tx, tenantId, data.PeriodType, data.PeriodKey)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RebuildAllSnapshots recomputes every bucket for one tenant from scratch:
// one YTD bucket per ledger year plus one bucket per posted Monthly/Quarterly
// statement. Used by the snapshot-rebuild command after backfills.
func RebuildAllSnapshots(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	var years []string
	err = db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("tenant_id = ?", tenantId).
		Distinct().Pluck("YEAR(entry_date)", &years).Error
	if err != nil {
		return err
	}

	type bucket struct {
		PeriodType models.PeriodType
		PeriodKey  string
	}
	var statements []models.Statement
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND period_type IN ?",
			tenantId, models.StatementStatusPosted,
			[]models.PeriodType{models.PeriodTypeMonthly, models.PeriodTypeQuarterly}).
		Find(&statements).Error
	if err != nil {
		return err
	}

	buckets := make([]bucket, 0, len(years)+len(statements))
	for _, y := range years {
		buckets = append(buckets, bucket{PeriodType: models.PeriodTypeYTD, PeriodKey: y})
	}
	seen := map[bucket]bool{}
	for _, s := range statements {
		b := bucket{PeriodType: s.PeriodType, PeriodKey: s.PeriodKey}
		if seen[b] {
			continue
		}
		seen[b] = true
		buckets = append(buckets, b)
	}

	for _, b := range buckets {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return RecomputeSnapshot(ctx, tx, tenantId, b.PeriodType, b.PeriodKey)
		})
		if err != nil {
			logger.WithContext(ctx).Errorf("rebuild %s %s: %v", b.PeriodType, b.PeriodKey, err)
			return err
		}
	}
	return nil
}
