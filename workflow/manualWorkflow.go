package workflow

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

// ManualLineInput is one caller-supplied ledger line.
type ManualLineInput struct {
	LineType    models.LineType `json:"line_type" validate:"required,oneof=Income Fee TaxCollected Itc Expense Other"`
	Amount      decimal.Decimal `json:"amount"`
	GstHst      decimal.Decimal `json:"gst_hst"`
	Category    string          `json:"category" validate:"max=100"`
	Description string          `json:"description" validate:"required,max=255"`
}

// ManualEntryInput is one manual posting request. SourceId is the caller's
// natural identity for the fact; repeating it repeats the same entry at most
// once.
type ManualEntryInput struct {
	SourceId    string            `json:"source_id" validate:"required,max=100"`
	EntryDate   time.Time         `json:"entry_date" validate:"required"`
	Description string            `json:"description" validate:"required,max=255"`
	Lines       []ManualLineInput `json:"lines" validate:"required,min=1,dive"`
}

// ValidateManualEntry checks shape and rejects zero-amount lines. A line
// carrying neither a net amount nor tax posts nothing and is caller error.
func ValidateManualEntry(input ManualEntryInput) error {
	if err := validate.Struct(input); err != nil {
		return utils.NewValidationError(err.Error())
	}
	for i, line := range input.Lines {
		if line.Amount.IsZero() && line.GstHst.IsZero() {
			return utils.NewValidationError("line " + strconv.Itoa(i+1) + " has zero amount and zero tax")
		}
	}
	return nil
}

// PostManualEntry posts one caller-supplied entry through the same idempotent
// protocol as event-driven postings. Synchronous: a thin request-serving
// caller maps ValidationError to a rejected request.
func PostManualEntry(ctx context.Context, db *gorm.DB, logger *logrus.Logger, input ManualEntryInput) (*models.LedgerEntry, error) {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateManualEntry(input); err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	posted, err := RunPosting(ctx, db, logger, tenantId, models.JobTypeManualPost, "manual:"+input.SourceId,
		models.LedgerSourceTypeManual, input.SourceId,
		func(tx *gorm.DB) (*models.LedgerEntry, error) {
			entry := &models.LedgerEntry{
				EntryDate:     input.EntryDate,
				Description:   input.Description,
				CorrelationId: correlationId,
			}
			for _, line := range input.Lines {
				entry.Lines = append(entry.Lines, models.LedgerLine{
					LineType:    line.LineType,
					Amount:      line.Amount,
					GstHst:      line.GstHst,
					Category:    line.Category,
					Description: line.Description,
				})
			}
			return entry, nil
		})
	if err != nil {
		return nil, err
	}

	if posted != nil {
		PublishAfterCommit(ctx, logger, config.TopicLedgerPosted, tenantId, LedgerPostedData{
			LedgerEntryId: posted.ID,
			SourceType:    models.LedgerSourceTypeManual,
			SourceId:      input.SourceId,
			EntryDate:     posted.EntryDate,
		})
	}
	return posted, nil
}

// CorrectionInput corrects a previously posted entry with a reversal plus a
// corrected entry, both dated identically to the original. Originals are
// never mutated.
type CorrectionInput struct {
	OriginalEntryId int               `json:"original_entry_id" validate:"required"`
	Reason          string            `json:"reason" validate:"required,max=255"`
	SourceId        string            `json:"source_id" validate:"required,max=100"`
	Description     string            `json:"description" validate:"required,max=255"`
	Lines           []ManualLineInput `json:"lines" validate:"required,min=1,dive"`
}

// PostCorrection reverses every line of the original entry and posts the
// corrected entry, all in one transaction. The reversal entry negates every
// original line; both new entries carry the original's entry date so period
// aggregates move within the same bucket. An already-reversed original is
// rejected.
func PostCorrection(ctx context.Context, db *gorm.DB, logger *logrus.Logger, input CorrectionInput) (*models.LedgerEntry, error) {
	tenantId, err := utils.GetTenantIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	for i, line := range input.Lines {
		if line.Amount.IsZero() && line.GstHst.IsZero() {
			return nil, utils.NewValidationError("line " + strconv.Itoa(i+1) + " has zero amount and zero tax")
		}
	}

	original, err := utils.FetchModel[models.LedgerEntry](ctx, db, tenantId, input.OriginalEntryId, "Lines")
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewValidationError("entry not found: " + strconv.Itoa(input.OriginalEntryId))
		}
		return nil, err
	}
	if original.ReversedByEntryId != nil {
		return nil, utils.NewValidationError("entry " + strconv.Itoa(original.ID) + " is already reversed")
	}
	if original.IsReversal {
		return nil, utils.NewValidationError("cannot correct a reversal entry")
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	reason := input.Reason

	var corrected *models.LedgerEntry
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		originalId := original.ID
		reversal := &models.LedgerEntry{
			TenantId:        tenantId,
			SourceType:      models.LedgerSourceTypeAdjustment,
			SourceId:        "reversal:" + strconv.Itoa(originalId),
			EntryDate:       original.EntryDate,
			Description:     "reversal of " + original.Description,
			Provider:        original.Provider,
			PeriodType:      original.PeriodType,
			PeriodKey:       original.PeriodKey,
			CorrelationId:   correlationId,
			IsReversal:      true,
			ReversesEntryId: &originalId,
			ReversalReason:  &reason,
		}
		for _, line := range original.Lines {
			negated := line.Negated()
			negated.TenantId = tenantId
			reversal.Lines = append(reversal.Lines, negated)
		}
		if err := tx.Create(reversal).Error; err != nil {
			return err
		}

		err := tx.Model(&models.LedgerEntry{}).
			Where("id = ? AND tenant_id = ?", originalId, tenantId).
			Update("reversed_by_entry_id", reversal.ID).Error
		if err != nil {
			return err
		}

		corrected = &models.LedgerEntry{
			TenantId:      tenantId,
			SourceType:    models.LedgerSourceTypeAdjustment,
			SourceId:      "correction:" + input.SourceId,
			EntryDate:     original.EntryDate,
			Description:   input.Description,
			Provider:      original.Provider,
			PeriodType:    original.PeriodType,
			PeriodKey:     original.PeriodKey,
			CorrelationId: correlationId,
		}
		for _, line := range input.Lines {
			corrected.Lines = append(corrected.Lines, models.LedgerLine{
				TenantId:    tenantId,
				LineType:    line.LineType,
				Amount:      line.Amount,
				GstHst:      line.GstHst,
				Category:    line.Category,
				Description: line.Description,
			})
		}
		return tx.Create(corrected).Error
	})
	if err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, utils.NewValidationError("correction already posted for " + input.SourceId)
		}
		return nil, err
	}

	PublishAfterCommit(ctx, logger, config.TopicLedgerPosted, tenantId, LedgerPostedData{
		LedgerEntryId: corrected.ID,
		SourceType:    models.LedgerSourceTypeAdjustment,
		SourceId:      corrected.SourceId,
		Provider:      corrected.Provider,
		PeriodType:    corrected.PeriodType,
		PeriodKey:     corrected.PeriodKey,
		EntryDate:     corrected.EntryDate,
	})
	return corrected, nil
}
