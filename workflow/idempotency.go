package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"gorm.io/gorm"
)

var ErrJobInProgress = errors.New("processing job in progress")

// staleJobAge is how long a STARTED job may sit before another delivery may
// reclaim it (worker crashed mid-handler).
const staleJobAge = 5 * time.Minute

// BeginJob inserts a STARTED ProcessingJob for (tenant, jobType, dedupeKey).
// Returns (true, nil) when a SUCCEEDED job already exists, meaning "skip
// safely" — the fast idempotency path.
func BeginJob(ctx context.Context, db *gorm.DB, tenantId string, jobType models.JobType, dedupeKey string) (skip bool, err error) {
	job := models.ProcessingJob{
		TenantId:  tenantId,
		JobType:   jobType,
		DedupeKey: dedupeKey,
		Status:    models.JobStatusStarted,
		Attempts:  1,
	}
	if err := db.WithContext(ctx).Create(&job).Error; err == nil {
		return false, nil
	} else if !utils.IsDuplicateKeyErr(err) {
		return false, err
	}

	var existing models.ProcessingJob
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND job_type = ? AND dedupe_key = ?", tenantId, jobType, dedupeKey).
		First(&existing).Error; err != nil {
		return false, err
	}

	switch existing.Status {
	case models.JobStatusSucceeded:
		return true, nil
	case models.JobStatusStarted:
		// Another worker may still be processing; ask the transport to retry.
		// A stale row is reclaimed by this delivery.
		if time.Since(existing.UpdatedAt) < staleJobAge {
			return false, ErrJobInProgress
		}
	}
	return false, db.WithContext(ctx).Model(&models.ProcessingJob{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"status":     models.JobStatusStarted,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": nil,
		}).Error
}

func MarkJobSucceeded(ctx context.Context, db *gorm.DB, tenantId string, jobType models.JobType, dedupeKey string) error {
	return db.WithContext(ctx).Model(&models.ProcessingJob{}).
		Where("tenant_id = ? AND job_type = ? AND dedupe_key = ?", tenantId, jobType, dedupeKey).
		Updates(map[string]interface{}{"status": models.JobStatusSucceeded, "last_error": nil}).Error
}

func MarkJobFailed(ctx context.Context, db *gorm.DB, tenantId string, jobType models.JobType, dedupeKey string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return db.WithContext(ctx).Model(&models.ProcessingJob{}).
		Where("tenant_id = ? AND job_type = ? AND dedupe_key = ?", tenantId, jobType, dedupeKey).
		Updates(map[string]interface{}{"status": models.JobStatusFailed, "last_error": &msg}).Error
}
