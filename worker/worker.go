package worker

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"bitbucket.org/mmdatafocus/gigbooks_backend/workflow"
)

// workflowTopics is everything the ledger worker consumes.
var workflowTopics = []string{
	config.TopicStatementReceived,
	config.TopicStatementParsed,
	config.TopicReceiptReceived,
	config.TopicReceiptExtracted,
	config.TopicReconciliationCompleted,
	config.TopicLedgerPosted,
}

// Worker consumes workflow events and runs handlers. Handlers for different
// tenants run concurrently; messages for one tenant are serialized in-process
// through a per-tenant mutex so a redelivery burst does not stampede one
// tenant's rows.
type Worker struct {
	db     *gorm.DB
	logger *logrus.Logger

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex
}

func New(db *gorm.DB, logger *logrus.Logger) *Worker {
	return &Worker{
		db:          db,
		logger:      logger,
		tenantLocks: map[string]*sync.Mutex{},
	}
}

func (w *Worker) tenantLock(tenantId string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.tenantLocks[tenantId]
	if !ok {
		lock = &sync.Mutex{}
		w.tenantLocks[tenantId] = lock
	}
	return lock
}

// Run ensures topics and subscriptions exist, then consumes until ctx ends.
// One subscription per topic, all feeding the same dispatcher.
//
// Configure via env:
// - PUBSUB_SUBSCRIPTION_SUFFIX=ledger-worker
// - PUBSUB_MAX_OUTSTANDING=20
func (w *Worker) Run(ctx context.Context) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	suffix := os.Getenv("PUBSUB_SUBSCRIPTION_SUFFIX")
	if suffix == "" {
		suffix = "ledger-worker"
	}
	maxOutstanding := 20
	if v := os.Getenv("PUBSUB_MAX_OUTSTANDING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxOutstanding = n
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, topicName := range workflowTopics {
		topic, err := config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
		sub, err := config.CreateSubscriptionIfNotExists(client, topicName+"."+suffix, topic)
		if err != nil {
			return err
		}
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding

		g.Go(func() error {
			return sub.Receive(ctx, w.handleMessage)
		})
	}
	return g.Wait()
}

// handleMessage decodes one delivery and classifies its outcome. Bad input
// (undecodable envelope, validation or integrity failures) is acked with an
// audit record: redelivery cannot fix it and would loop forever. Everything
// else is nacked for transport-level retry, which is safe under the posting
// idempotency guards.
func (w *Worker) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var env config.EventEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		config.LogError(w.logger, "worker.go", "handleMessage", "Unmarshal envelope", string(msg.Data), err)
		msg.Ack()
		return
	}

	if env.TenantId != "" {
		lock := w.tenantLock(env.TenantId)
		lock.Lock()
		defer lock.Unlock()
	}

	// Root span for the delivery; the otelgorm plugin nests queries under it.
	ctx, span := otel.Tracer("ledger-worker").Start(ctx, "event."+env.Type)
	span.SetAttributes(attribute.String("event.message_id", env.MessageId))
	defer span.End()

	err := workflow.ProcessEventWorkflow(ctx, w.db, w.logger, env)
	if err == nil {
		msg.Ack()
		return
	}

	config.LogError(w.logger, "worker.go", "handleMessage", env.Type, env.MessageId, err)
	span.RecordError(err)

	if utils.IsRetryable(err) {
		msg.Nack()
		return
	}

	// Terminal: record why this message is being dropped, then ack.
	if env.TenantId != "" {
		auditCtx := utils.SetTenantIdInContext(ctx, env.TenantId)
		auditErr := workflow.RecordAudit(auditCtx, w.db, env.TenantId, models.AuditEventTypeHandlerFailed,
			"event", env.MessageId, env.Type+" rejected", err)
		if auditErr != nil {
			config.LogError(w.logger, "worker.go", "handleMessage", "RecordAudit", env.MessageId, auditErr)
		}
	}
	msg.Ack()
}
