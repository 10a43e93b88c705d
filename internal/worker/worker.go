package worker

import (
	"context"
	"encoding/json"
	"log"

	"catalog-sync/internal/broker"
	"catalog-sync/internal/models"
	"catalog-sync/internal/service"
	"catalog-sync/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TenantLookup resolves tenant ids from sync-request messages
type TenantLookup interface {
	GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// SyncWorker drains the sync-request topic: each message asks for a targeted
// re-sync of one entity type for one tenant. Delivery is at-least-once; the
// idempotent upserts downstream make duplicate requests harmless.
type SyncWorker struct {
	consumer *broker.Consumer
	tenants  TenantLookup
	ingestor service.TargetedIngestor
	logger   *zap.Logger
}

// NewSyncWorker creates a new sync request worker
func NewSyncWorker(consumer *broker.Consumer, tenants TenantLookup, ingestor service.TargetedIngestor) *SyncWorker {
	return &SyncWorker{
		consumer: consumer,
		tenants:  tenants,
		ingestor: ingestor,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *SyncWorker) Start(ctx context.Context) error {
	log.Println("Starting sync request worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *SyncWorker) Stop() error {
	log.Println("Stopping sync request worker...")
	return w.consumer.Close()
}

func (w *SyncWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.SyncRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("Dropping unparsable sync request", zap.Error(err))
		return nil
	}

	tenant, err := w.tenants.GetTenantByID(ctx, event.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		w.logger.Warn("Dropping sync request for unknown tenant",
			zap.Int64("tenant_id", event.TenantID))
		return nil
	}

	var counts models.SyncCounts
	switch event.Entity {
	case models.EntityCustomers:
		counts, err = w.ingestor.IngestCustomers(ctx, tenant)
	case models.EntityProducts:
		counts, err = w.ingestor.IngestProducts(ctx, tenant)
	case models.EntityOrders:
		counts, err = w.ingestor.IngestOrders(ctx, tenant)
	default:
		w.logger.Warn("Dropping sync request for unknown entity",
			zap.Int64("tenant_id", event.TenantID),
			zap.String("entity", event.Entity))
		return nil
	}
	if err != nil {
		w.logger.Error("Broker-triggered re-sync failed",
			zap.Int64("tenant_id", event.TenantID),
			zap.String("entity", event.Entity),
			zap.Error(err))
		return err
	}

	w.logger.Info("Broker-triggered re-sync completed",
		zap.Int64("tenant_id", event.TenantID),
		zap.String("entity", event.Entity),
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped))
	return nil
}
