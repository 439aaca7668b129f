package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/config"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tenantLockTTL = 2 * time.Minute

// ProcessEventWorkflow dispatches one delivered envelope to its handler. The
// tenant and correlation ids are threaded through the context, never a
// global, so concurrent tenants stay isolated.
//
// When redis is configured a best-effort per-tenant lock serializes handlers
// for one tenant to cut duplicate work under redelivery bursts. Correctness
// never depends on it: the ledger's uniqueness constraint resolves any race
// the lock misses, and a handler proceeds when redis is down.
func ProcessEventWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, env config.EventEnvelope) error {
	if env.TenantId == "" {
		return utils.NewDataIntegrityError("event " + env.MessageId + " has no tenant id")
	}
	ctx = utils.SetTenantIdInContext(ctx, env.TenantId)
	if env.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, env.CorrelationId)
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "tenant-lock:"+env.TenantId, tenantLockTTL, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(250 * time.Millisecond),
		})
		if err == nil {
			defer lock.Release(context.WithoutCancel(ctx))
		} else if err != redislock.ErrNotObtained {
			config.LogError(logger, "mainWorkflow.go", "ProcessEventWorkflow", "Obtain tenant lock", env.TenantId, err)
		}
	}

	switch env.Type {
	case config.TopicStatementReceived:
		var data StatementReceivedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessStatementReceivedWorkflow(ctx, db, logger, data)
	case config.TopicStatementParsed:
		var data StatementParsedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessStatementParsedWorkflow(ctx, db, logger, data)
	case config.TopicReceiptReceived:
		var data ReceiptReceivedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessReceiptReceivedWorkflow(ctx, db, logger, data)
	case config.TopicReceiptExtracted:
		var data ReceiptExtractedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessReceiptExtractedWorkflow(ctx, db, logger, data)
	case config.TopicReconciliationCompleted:
		var data ReconciliationCompletedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessReconciliationCompletedWorkflow(ctx, db, logger, data)
	case config.TopicLedgerPosted:
		var data LedgerPostedData
		if err := unmarshalEventData(env, &data); err != nil {
			return err
		}
		return ProcessLedgerPostedWorkflow(ctx, db, logger, data)
	}
	return utils.NewValidationError("unknown event type: " + env.Type)
}

func unmarshalEventData[T any](env config.EventEnvelope, out *T) error {
	if err := utils.UnmarshalFromJSON(env.Data, out); err != nil {
		return utils.NewDataIntegrityError("undecodable " + env.Type + " payload: " + err.Error())
	}
	return nil
}
