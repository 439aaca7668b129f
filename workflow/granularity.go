package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"gorm.io/gorm"
)

// FinerPeriodTypes returns the period types ranked strictly above the given
// one. Monthly(3) > Quarterly(2) > Yearly/YTD(1).
func FinerPeriodTypes(periodType models.PeriodType) []models.PeriodType {
	rank := periodType.Rank()
	var finer []models.PeriodType
	for _, pt := range []models.PeriodType{models.PeriodTypeMonthly, models.PeriodTypeQuarterly} {
		if pt.Rank() > rank {
			finer = append(finer, pt)
		}
	}
	return finer
}

// CheckGranularity decides whether a statement may post. Re-evaluated on every
// posting attempt because re-extraction resets status to Draft and finer
// statements can arrive after a coarser one was uploaded. A statement with
// finer-grained siblings for its (tenant, provider, year) is demoted to
// ReconciliationOnly in place and must not post.
func CheckGranularity(ctx context.Context, tx *gorm.DB, statement *models.Statement) (allowed bool, err error) {
	finer := FinerPeriodTypes(statement.PeriodType)
	if len(finer) == 0 {
		return true, nil
	}

	count, err := utils.ResourceCountWhere[models.Statement](ctx, tx, statement.TenantId,
		"provider = ? AND period_type IN ? AND period_key LIKE ?",
		statement.Provider, finer, statement.Year()+"%")
	if err != nil {
		return false, err
	}
	if count == 0 {
		return true, nil
	}

	statement.Status = models.StatementStatusReconciliationOnly
	err = tx.WithContext(ctx).Model(&models.Statement{}).
		Where("id = ? AND tenant_id = ?", statement.ID, statement.TenantId).
		Update("status", models.StatementStatusReconciliationOnly).Error
	if err != nil {
		return false, err
	}
	return false, nil
}
