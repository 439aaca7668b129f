package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/gigbooks_backend/appctx"
)

var (
	ContextKeyTenantId        = appctx.ContextKeyTenantId
	ContextKeyUserName        = appctx.ContextKeyUserName
	ContextKeyCorrelationId   = appctx.ContextKeyCorrelationId
	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

// GetTenantIdFromContext fails when no tenant is set: every data access is
// tenant-scoped and an unscoped call is a programming error, not a fallback.
func GetTenantIdFromContext(ctx context.Context) (string, error) {
	tenantId, ok := appctx.GetString(ctx, ContextKeyTenantId)
	if !ok || tenantId == "" {
		return "", NewDataIntegrityError("no tenant id in context")
	}
	return tenantId, nil
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTenantIdInContext(ctx context.Context, tenantId string) context.Context {
	return appctx.Set(ctx, ContextKeyTenantId, tenantId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, skip)
}
