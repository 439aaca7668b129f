package models

import (
	"log"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Statement{}, &StatementLine{},
		&Receipt{},
		&LedgerEntry{}, &LedgerLine{},
		&ReconciliationRun{}, &ReconciliationVariance{},
		&ProcessingJob{},
		&LedgerSnapshot{}, &SnapshotDetail{},
		&AuditEvent{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
