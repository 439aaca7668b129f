package workflow

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event payloads. Each is the Data field of a config.EventEnvelope.

type StatementReceivedData struct {
	StatementId int `json:"statement_id"`
}

type StatementParsedData struct {
	StatementId int `json:"statement_id"`
}

type ReceiptReceivedData struct {
	ReceiptId int `json:"receipt_id"`
}

type ReceiptExtractedData struct {
	ReceiptId int `json:"receipt_id"`
}

type ReconciliationCompletedData struct {
	RunId    int    `json:"run_id"`
	Provider string `json:"provider"`
	Year     string `json:"year"`
}

type LedgerPostedData struct {
	LedgerEntryId int                     `json:"ledger_entry_id"`
	SourceType    models.LedgerSourceType `json:"source_type"`
	SourceId      string                  `json:"source_id"`
	Provider      string                  `json:"provider"`
	PeriodType    models.PeriodType       `json:"period_type"`
	PeriodKey     string                  `json:"period_key"`
	EntryDate     time.Time               `json:"entry_date"`
}

// PublishAfterCommit publishes an envelope once the handler's transaction has
// committed. A crash between commit and publish can at most duplicate-publish;
// consumers are idempotent, so that is safe. Publish failures are logged, not
// returned: the committed state is the truth and redelivery of the triggering
// message will re-publish.
func PublishAfterCommit(ctx context.Context, logger *logrus.Logger, topic string, tenantId string, data any) {
	payload, err := utils.MarshalToJSON(data)
	if err != nil {
		config.LogError(logger, "events.go", "PublishAfterCommit", "Marshal", data, err)
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	env := config.EventEnvelope{
		MessageId:     uuid.NewString(),
		Type:          topic,
		OccurredAt:    time.Now().UTC(),
		TenantId:      tenantId,
		CorrelationId: correlationId,
		Data:          json.RawMessage(payload),
	}
	if _, err := config.PublishEvent(ctx, topic, env); err != nil {
		config.LogError(logger, "events.go", "PublishAfterCommit", "PublishEvent "+topic, env.MessageId, err)
	}
}
