package workflow

import (
	"context"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatementUploadInput registers one statement document for extraction.
type StatementUploadInput struct {
	Provider     string `json:"provider" validate:"required,max=100"`
	PeriodType   string `json:"period_type" validate:"required,oneof=Monthly Quarterly YTD Yearly"`
	PeriodKey    string `json:"period_key" validate:"required,max=20"`
	ContentType  string `json:"content_type" validate:"required,max=100"`
	CurrencyCode string `json:"currency_code" validate:"omitempty,len=3"`
}

// RegisterStatement stores the uploaded document, upserts the Statement by
// its natural key and publishes statement.received. Re-uploading the same
// (provider, periodType, periodKey) replaces the document and resets the
// statement to Draft; extraction then replaces its lines wholesale.
func RegisterStatement(ctx context.Context, db *gorm.DB, logger *logrus.Logger, input StatementUploadInput, r io.Reader) (*models.Statement, error) {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	periodType, err := models.ParsePeriodType(input.PeriodType)
	if err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	periodStart, periodEnd, err := extraction.PeriodRange(periodType, input.PeriodKey)
	if err != nil {
		return nil, utils.NewValidationError("bad period key " + input.PeriodKey + " for " + input.PeriodType)
	}

	objectName := "statements/" + tenantId + "/" + input.Provider + "/" + input.PeriodKey + "-" + uuid.NewString()
	if err := utils.UploadObject(ctx, objectName, r, input.ContentType); err != nil {
		return nil, utils.NewTransientInfraError("upload statement object", err)
	}

	currency := input.CurrencyCode
	currencyEvidence := models.EvidenceExtracted
	if currency == "" {
		currency = extraction.DefaultCurrencyCode
		currencyEvidence = models.EvidenceInferred
	}

	var statement models.Statement
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("tenant_id = ? AND provider = ? AND period_type = ? AND period_key = ?",
			tenantId, input.Provider, periodType, input.PeriodKey).
			First(&statement).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		statement.TenantId = tenantId
		statement.Provider = input.Provider
		statement.PeriodType = periodType
		statement.PeriodKey = input.PeriodKey
		statement.PeriodStart = periodStart
		statement.PeriodEnd = periodEnd.AddDate(0, 0, -1)
		statement.CurrencyCode = currency
		statement.CurrencyEvidence = currencyEvidence
		statement.Status = models.StatementStatusDraft
		statement.FileObject = objectName
		statement.ContentType = input.ContentType
		return tx.Save(&statement).Error
	})
	if err != nil {
		return nil, err
	}

	PublishAfterCommit(ctx, logger, config.TopicStatementReceived, tenantId, StatementReceivedData{StatementId: statement.ID})
	return &statement, nil
}

// ReceiptUploadInput registers one expense document for extraction.
type ReceiptUploadInput struct {
	ContentType string `json:"content_type" validate:"required,max=100"`
	Category    string `json:"category" validate:"max=100"`
}

// RegisterReceipt stores the uploaded document, creates the Receipt row and
// publishes receipt.received. Amounts, merchant and date arrive later from
// the extraction handler.
func RegisterReceipt(ctx context.Context, db *gorm.DB, logger *logrus.Logger, input ReceiptUploadInput, r io.Reader) (*models.Receipt, error) {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}

	objectName := "receipts/" + tenantId + "/" + uuid.NewString()
	if err := utils.UploadObject(ctx, objectName, r, input.ContentType); err != nil {
		return nil, utils.NewTransientInfraError("upload receipt object", err)
	}

	receipt := models.Receipt{
		TenantId:     tenantId,
		FileObject:   objectName,
		ContentType:  input.ContentType,
		Category:     input.Category,
		ReceiptDate:  time.Now().UTC(),
		CurrencyCode: extraction.DefaultCurrencyCode,
		Hold:         true, // held until extraction scores it
	}
	if err := db.WithContext(ctx).Create(&receipt).Error; err != nil {
		return nil, err
	}

	PublishAfterCommit(ctx, logger, config.TopicReceiptReceived, tenantId, ReceiptReceivedData{ReceiptId: receipt.ID})
	return &receipt, nil
}
