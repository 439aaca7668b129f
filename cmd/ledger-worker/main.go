package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/extraction"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/worker"
)

func main() {
	godotenv.Load()
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	config.ConnectRedis()

	// Without an analyzer only CSV/XLSX statements extract; PDF statements and
	// receipts are rejected as unsupported content types.
	if os.Getenv("DOCUMENT_ANALYZER_URL") != "" {
		analyzer, err := extraction.NewHTTPAnalyzer()
		if err != nil {
			logger.Fatalf("document analyzer: %v", err)
		}
		extraction.RegisterDocumentAnalyzer(analyzer)
	} else {
		logger.Warn("DOCUMENT_ANALYZER_URL not set, document analysis disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("ledger worker starting")
	w := worker.New(config.GetDB(), logger)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		config.LogError(logger, "main.go", "main", "worker.Run", nil, err)
		os.Exit(1)
	}
	logger.Info("ledger worker stopped")
}
