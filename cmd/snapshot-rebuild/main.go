package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"bitbucket.org/mmdatafocus/gigbooks_backend/workflow"
)

// One-shot backfill: recomputes every snapshot bucket from current ledger
// state. Run after data imports or policy changes.
func main() {
	godotenv.Load()
	logger := config.GetLogger()

	tenantId := flag.String("tenant", "", "tenant id to rebuild snapshots for")
	allTenants := flag.Bool("all", false, "rebuild for every tenant")
	flag.Parse()
	if *tenantId == "" && !*allTenants {
		logger.Error("usage: snapshot-rebuild -tenant <tenant-id> | -all")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	baseCtx := utils.SetUserNameInContext(context.Background(), "snapshot-rebuild")

	tenants := []string{*tenantId}
	if *allTenants {
		// Listing tenants is the one deliberately unscoped query here.
		scanCtx := utils.SetSkipTenantScopeInContext(baseCtx, true)
		var ids []string
		err := db.WithContext(scanCtx).Model(&models.Statement{}).
			Distinct().Pluck("tenant_id", &ids).Error
		if err != nil {
			config.LogError(logger, "main.go", "main", "list tenants", nil, err)
			os.Exit(1)
		}
		tenants = ids
	}

	for _, id := range tenants {
		ctx := utils.SetTenantIdInContext(baseCtx, id)
		if err := workflow.RebuildAllSnapshots(ctx, db, logger); err != nil {
			config.LogError(logger, "main.go", "main", "RebuildAllSnapshots", id, err)
			os.Exit(1)
		}
		logger.WithField("tenant_id", id).Info("snapshot rebuild complete")
	}
}
