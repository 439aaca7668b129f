package workflow

import (
	"context"
	"strconv"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProcessStatementReceivedWorkflow runs extraction for one uploaded statement.
// Extraction fully replaces the statement's lines, so duplicate deliveries
// converge without an idempotency job. Publishes statement.parsed after commit.
func ProcessStatementReceivedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data StatementReceivedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	statement, err := utils.FetchModel[models.Statement](ctx, db, tenantId, data.StatementId)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return utils.NewValidationError("statement not found: " + strconv.Itoa(data.StatementId))
		}
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return extraction.RunStatementExtraction(ctx, tx, logger, statement)
	})
	if err != nil {
		config.LogError(logger, "statementWorkflow.go", "ProcessStatementReceivedWorkflow", "RunStatementExtraction", statement.ID, err)
		return err
	}

	PublishAfterCommit(ctx, logger, config.TopicStatementParsed, tenantId, StatementParsedData{StatementId: statement.ID})
	return nil
}

// ProcessStatementParsedWorkflow posts one parsed statement: one ledger line
// per non-metric statement line. Gated by status (only Draft/Submitted post,
// ReconciliationOnly never, Posted is a no-op) and by the granularity policy,
// which is re-checked on every attempt because finer-grained statements may
// have arrived since upload.
func ProcessStatementParsedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data StatementParsedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	statement, err := utils.FetchModel[models.Statement](ctx, db, tenantId, data.StatementId, "Lines")
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return utils.NewValidationError("statement not found: " + strconv.Itoa(data.StatementId))
		}
		return err
	}

	sourceId := strconv.Itoa(statement.ID)

	if statement.Status == models.StatementStatusPosted {
		return RecordAudit(ctx, db, tenantId, models.AuditEventTypePostingNoOp,
			string(models.LedgerSourceTypeStatement), sourceId, "statement already posted", nil)
	}
	if !statement.CanPost() {
		return RecordAudit(ctx, db, tenantId, models.AuditEventTypePostingSkipped,
			string(models.LedgerSourceTypeStatement), sourceId,
			"statement status "+string(statement.Status)+" does not post", nil)
	}

	demoted := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allowed, err := CheckGranularity(ctx, tx, statement)
		if err != nil {
			return err
		}
		demoted = !allowed
		return nil
	})
	if err != nil {
		return err
	}
	if demoted {
		return RecordAudit(ctx, db, tenantId, models.AuditEventTypeStatementDemoted,
			string(models.LedgerSourceTypeStatement), sourceId,
			"finer-grained statements exist for "+statement.Provider+" "+statement.Year(), nil)
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	posted, err := RunPosting(ctx, db, logger, tenantId, models.JobTypeStatementPost, "statement:"+sourceId,
		models.LedgerSourceTypeStatement, sourceId,
		func(tx *gorm.DB) (*models.LedgerEntry, error) {
			entry, err := BuildStatementEntry(statement, correlationId)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				return nil, RecordAudit(ctx, tx, tenantId, models.AuditEventTypePostingNoOp,
					string(models.LedgerSourceTypeStatement), sourceId, "statement has no monetary lines", nil)
			}
			err = tx.Model(&models.Statement{}).
				Where("id = ? AND tenant_id = ?", statement.ID, tenantId).
				Update("status", models.StatementStatusPosted).Error
			if err != nil {
				return nil, err
			}
			return entry, nil
		})
	if err != nil {
		return err
	}

	if posted != nil {
		PublishAfterCommit(ctx, logger, config.TopicLedgerPosted, tenantId, LedgerPostedData{
			LedgerEntryId: posted.ID,
			SourceType:    models.LedgerSourceTypeStatement,
			SourceId:      sourceId,
			Provider:      statement.Provider,
			PeriodType:    statement.PeriodType,
			PeriodKey:     statement.PeriodKey,
			EntryDate:     posted.EntryDate,
		})
	}
	return nil
}

// BuildStatementEntry constructs the ledger entry for one statement without
// touching storage: one line per non-metric statement line, dated at period
// end. Nil when the statement has no monetary lines. Exported for
// deterministic tests.
func BuildStatementEntry(statement *models.Statement, correlationId string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{
		EntryDate:     statement.PeriodEnd,
		Description:   statement.Provider + " " + string(statement.PeriodType) + " " + statement.PeriodKey,
		Provider:      statement.Provider,
		PeriodType:    statement.PeriodType,
		PeriodKey:     statement.PeriodKey,
		CorrelationId: correlationId,
	}
	for i := range statement.Lines {
		line := statement.Lines[i]
		if !line.IsMonetary() {
			continue
		}
		lineId := line.ID
		entry.Lines = append(entry.Lines, models.LedgerLine{
			LineType:        line.LineType,
			Amount:          line.Money(),
			GstHst:          line.Tax(),
			Description:     line.Description,
			StatementLineId: &lineId,
			FileObject:      statement.FileObject,
		})
	}
	if len(entry.Lines) == 0 {
		return nil, nil
	}
	return entry, nil
}
