package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunPosting executes the double-guard posting protocol for one upstream fact:
//
//  1. fast path: a SUCCEEDED ProcessingJob for (tenant, jobType, dedupeKey)
//     makes the whole call a no-op;
//  2. strong path: an existing LedgerEntry at (tenant, sourceType, sourceId)
//     marks the job SUCCEEDED and returns — this survives job-record loss;
//  3. otherwise build runs inside one transaction; a nil entry from build is a
//     deliberate no-op (build records its own audit row); a non-nil entry is
//     inserted with its lines and the job marked SUCCEEDED, all committed
//     atomically;
//  4. a uniqueness violation on the insert is a concurrent duplicate delivery
//     and converts to success;
//  5. any other error marks the job FAILED (commit survives the rollback),
//     records a failure audit, and propagates for transport-level retry.
//
// The returned entry, when non-nil, was newly committed; the caller publishes
// ledger.posted after this function returns.
func RunPosting(
	ctx context.Context,
	db *gorm.DB,
	logger *logrus.Logger,
	tenantId string,
	jobType models.JobType,
	dedupeKey string,
	sourceType models.LedgerSourceType,
	sourceId string,
	build func(tx *gorm.DB) (*models.LedgerEntry, error),
) (*models.LedgerEntry, error) {

	skip, err := BeginJob(ctx, db, tenantId, jobType, dedupeKey)
	if err != nil {
		return nil, err
	}
	if skip {
		return nil, nil
	}

	var posted *models.LedgerEntry
	txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.LedgerEntry
		err := tx.Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantId, sourceType, sourceId).
			First(&existing).Error
		if err == nil {
			// Already posted; converge without a new entry.
			return MarkJobSucceeded(ctx, tx, tenantId, jobType, dedupeKey)
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		entry, err := build(tx)
		if err != nil {
			return err
		}
		if entry != nil {
			entry.TenantId = tenantId
			entry.SourceType = sourceType
			entry.SourceId = sourceId
			for i := range entry.Lines {
				entry.Lines[i].TenantId = tenantId
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
			posted = entry
		}
		return MarkJobSucceeded(ctx, tx, tenantId, jobType, dedupeKey)
	})

	if txErr != nil {
		if utils.IsDuplicateKeyErr(txErr) {
			// True race: another delivery inserted the entry between our check
			// and our insert. The constraint did its job; this is success.
			if err := MarkJobSucceeded(ctx, db, tenantId, jobType, dedupeKey); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if markErr := MarkJobFailed(ctx, db, tenantId, jobType, dedupeKey, txErr); markErr != nil {
			config.LogError(logger, "posting.go", "RunPosting", "MarkJobFailed", dedupeKey, markErr)
		}
		if auditErr := RecordAudit(ctx, db, tenantId, models.AuditEventTypeHandlerFailed,
			string(sourceType), sourceId, string(jobType)+" failed", txErr); auditErr != nil {
			config.LogError(logger, "posting.go", "RunPosting", "RecordAudit", dedupeKey, auditErr)
		}
		return nil, txErr
	}
	return posted, nil
}
