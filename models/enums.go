package models

import "errors"

type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "Monthly"
	PeriodTypeQuarterly PeriodType = "Quarterly"
	PeriodTypeYTD       PeriodType = "YTD"
	PeriodTypeYearly    PeriodType = "Yearly"
)

func ParsePeriodType(s string) (PeriodType, error) {
	switch s {
	case "Monthly":
		return PeriodTypeMonthly, nil
	case "Quarterly":
		return PeriodTypeQuarterly, nil
	case "YTD":
		return PeriodTypeYTD, nil
	case "Yearly":
		return PeriodTypeYearly, nil
	}
	return "", errors.New("invalid period type")
}

// Rank orders period types by granularity: the most granular statement for a
// (tenant, provider, year) wins posting; the rest go reconciliation-only.
func (t PeriodType) Rank() int {
	switch t {
	case PeriodTypeMonthly:
		return 3
	case PeriodTypeQuarterly:
		return 2
	case PeriodTypeYearly, PeriodTypeYTD:
		return 1
	}
	return 0
}

type StatementStatus string

const (
	StatementStatusDraft              StatementStatus = "Draft"
	StatementStatusSubmitted          StatementStatus = "Submitted"
	StatementStatusReconciliationOnly StatementStatus = "ReconciliationOnly"
	StatementStatusPosted             StatementStatus = "Posted"
)

type LineType string

const (
	LineTypeIncome       LineType = "Income"
	LineTypeFee          LineType = "Fee"
	LineTypeTaxCollected LineType = "TaxCollected"
	LineTypeItc          LineType = "Itc"
	LineTypeExpense      LineType = "Expense"
	LineTypeOther        LineType = "Other"
)

// Evidence records whether a value came straight from structured document
// fields (Extracted) or from a heuristic (Inferred).
type Evidence string

const (
	EvidenceExtracted Evidence = "Extracted"
	EvidenceInferred  Evidence = "Inferred"
)

type LedgerSourceType string

const (
	LedgerSourceTypeReceipt        LedgerSourceType = "Receipt"
	LedgerSourceTypeStatement      LedgerSourceType = "Statement"
	LedgerSourceTypeReconciliation LedgerSourceType = "Reconciliation"
	LedgerSourceTypeManual         LedgerSourceType = "Manual"
	LedgerSourceTypeAdjustment     LedgerSourceType = "Adjustment"
)

type ReconciliationStatus string

const (
	ReconciliationStatusPending   ReconciliationStatus = "Pending"
	ReconciliationStatusCompleted ReconciliationStatus = "Completed"
	ReconciliationStatusFailed    ReconciliationStatus = "Failed"
)

type JobStatus string

const (
	JobStatusStarted   JobStatus = "STARTED"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

type JobType string

const (
	JobTypeExtraction     JobType = "EXTRACTION"
	JobTypeReceiptPost    JobType = "RECEIPT_POST"
	JobTypeStatementPost  JobType = "STATEMENT_POST"
	JobTypeReconciliation JobType = "RECONCILIATION"
	JobTypeAdjustmentPost JobType = "ADJUSTMENT_POST"
	JobTypeManualPost     JobType = "MANUAL_POST"
	JobTypeSnapshot       JobType = "SNAPSHOT"
)

type AuditEventType string

const (
	AuditEventTypePostingSkipped    AuditEventType = "POSTING_SKIPPED"
	AuditEventTypePostingNoOp       AuditEventType = "POSTING_NOOP"
	AuditEventTypeReceiptHeld       AuditEventType = "RECEIPT_HELD"
	AuditEventTypeHandlerFailed     AuditEventType = "HANDLER_FAILED"
	AuditEventTypeStatementDemoted  AuditEventType = "STATEMENT_DEMOTED"
	AuditEventTypeAdjustmentSkipped AuditEventType = "ADJUSTMENT_SKIPPED"
)
