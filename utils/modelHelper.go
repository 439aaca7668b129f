package utils

import (
	"context"

	"gorm.io/gorm"
)

/* DB fetching */

// FetchModel loads one record by id, scoped to the tenant, with optional
// association preloads. Returns ErrorRecordNotFound when no row matches.
func FetchModel[T any](ctx context.Context, db *gorm.DB, tenantId string, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// ResourceCountWhere counts records matching a condition, tenant-scoped.
// tenantId can be blank for internal ops.
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, tenantId string, condition string, value ...interface{}) (int64, error) {
	var model T
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if tenantId != "" {
		dbCtx = dbCtx.Where("tenant_id = ?", tenantId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
