package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"gorm.io/gorm"
)

// RecordAudit writes one audit row. Used both inside posting transactions
// (no-op skips) and outside them (handler failures, where the main
// transaction has already rolled back).
func RecordAudit(ctx context.Context, db *gorm.DB, tenantId string, eventType models.AuditEventType, referenceType, referenceId, detail string, cause error) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	ev := models.AuditEvent{
		TenantId:      tenantId,
		EventType:     eventType,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		CorrelationId: correlationId,
		UserName:      userName,
		Detail:        detail,
	}
	if cause != nil {
		msg := cause.Error()
		ev.ErrorText = &msg
	}
	return db.WithContext(ctx).Create(&ev).Error
}
