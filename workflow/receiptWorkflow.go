package workflow

import (
	"context"
	"strconv"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProcessReceiptReceivedWorkflow analyzes one uploaded expense document and
// writes the extracted fields back onto the Receipt row. Re-delivery re-runs
// the analysis and overwrites the same fields, so no idempotency job is
// needed; the write converges. Publishes receipt.extracted after commit.
func ProcessReceiptReceivedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data ReceiptReceivedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	receipt, err := utils.FetchModel[models.Receipt](ctx, db, tenantId, data.ReceiptId)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return utils.NewValidationError("receipt not found: " + strconv.Itoa(data.ReceiptId))
		}
		return err
	}

	reader, err := utils.OpenObjectRead(ctx, receipt.FileObject)
	if err != nil {
		return utils.NewTransientInfraError("open receipt object", err)
	}
	defer reader.Close()

	extracted, err := extraction.AnalyzeReceipt(ctx, reader, receipt.ContentType)
	if err != nil {
		config.LogError(logger, "receiptWorkflow.go", "ProcessReceiptReceivedWorkflow", "AnalyzeReceipt", receipt.FileObject, err)
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt.Merchant = extracted.Merchant
		receipt.CurrencyCode = extracted.CurrencyCode
		receipt.TotalAmount = extracted.TotalAmount
		receipt.TaxAmount = extracted.TaxAmount
		receipt.ExtractionConfidence = extracted.Confidence
		receipt.Hold = extracted.Confidence.LessThan(config.ReceiptHoldThreshold())
		if !extracted.ReceiptDate.IsZero() {
			receipt.ReceiptDate = extracted.ReceiptDate
		}
		return tx.Save(receipt).Error
	})
	if err != nil {
		return err
	}

	PublishAfterCommit(ctx, logger, config.TopicReceiptExtracted, tenantId, ReceiptExtractedData{ReceiptId: receipt.ID})
	return nil
}

// ProcessReceiptExtractedWorkflow posts one extracted receipt: a single entry
// carrying an Expense line of (total - tax) and, when tax is present, an Itc
// line carrying only the tax. Held receipts are audited and never posted.
func ProcessReceiptExtractedWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, data ReceiptExtractedData) error {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return err
	}

	receipt, err := utils.FetchModel[models.Receipt](ctx, db, tenantId, data.ReceiptId)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return utils.NewValidationError("receipt not found: " + strconv.Itoa(data.ReceiptId))
		}
		return err
	}

	sourceId := strconv.Itoa(receipt.ID)
	dedupeKey := "receipt:" + sourceId

	if receipt.IsHeld() {
		if err := RecordAudit(ctx, db, tenantId, models.AuditEventTypeReceiptHeld,
			string(models.LedgerSourceTypeReceipt), sourceId,
			"receipt held below confidence threshold", nil); err != nil {
			return err
		}
		return nil
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	posted, err := RunPosting(ctx, db, logger, tenantId, models.JobTypeReceiptPost, dedupeKey,
		models.LedgerSourceTypeReceipt, sourceId,
		func(tx *gorm.DB) (*models.LedgerEntry, error) {
			return BuildReceiptEntry(receipt, correlationId)
		})
	if err != nil {
		return err
	}

	if posted != nil {
		PublishAfterCommit(ctx, logger, config.TopicLedgerPosted, tenantId, LedgerPostedData{
			LedgerEntryId: posted.ID,
			SourceType:    models.LedgerSourceTypeReceipt,
			SourceId:      sourceId,
			EntryDate:     posted.EntryDate,
		})
	}
	return nil
}

// BuildReceiptEntry constructs the ledger entry for one receipt without
// touching storage. Exported for deterministic tests.
func BuildReceiptEntry(receipt *models.Receipt, correlationId string) (*models.LedgerEntry, error) {
	if receipt.TotalAmount.LessThanOrEqual(receipt.TaxAmount) && !receipt.TaxAmount.IsZero() {
		return nil, utils.NewDataIntegrityError("receipt tax not below total")
	}

	receiptId := receipt.ID
	entry := &models.LedgerEntry{
		EntryDate:     receipt.ReceiptDate,
		Description:   receipt.Merchant,
		CorrelationId: correlationId,
		Lines: []models.LedgerLine{
			{
				LineType:    models.LineTypeExpense,
				Amount:      receipt.TotalAmount.Sub(receipt.TaxAmount),
				Category:    receipt.Category,
				Description: receipt.Merchant,
				ReceiptId:   &receiptId,
				FileObject:  receipt.FileObject,
			},
		},
	}
	if receipt.TaxAmount.GreaterThan(decimal.Zero) {
		entry.Lines = append(entry.Lines, models.LedgerLine{
			LineType:    models.LineTypeItc,
			GstHst:      receipt.TaxAmount,
			Category:    receipt.Category,
			Description: receipt.Merchant,
			ReceiptId:   &receiptId,
			FileObject:  receipt.FileObject,
		})
	}
	return entry, nil
}
