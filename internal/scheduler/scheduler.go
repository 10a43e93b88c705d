package scheduler

import (
	"context"
	"errors"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/service"
	"catalog-sync/internal/util"

	"go.uber.org/zap"
)

// TenantLister enumerates the tenants to sync each cycle
type TenantLister interface {
	ListTenants(ctx context.Context) ([]models.Tenant, error)
}

// FullIngestor runs a complete ingestion for one tenant
type FullIngestor interface {
	IngestAll(ctx context.Context, tenant *models.Tenant, trigger string) (models.SyncSummary, error)
}

// Scheduler owns the periodic sync loop. Each tick it enumerates tenants and
// invokes the stateless ingestion per tenant; one tenant failing (revoked
// credential, remote outage, timeout) is reported and the cycle moves on to
// the next tenant. Retry is simply the next tick.
type Scheduler struct {
	tenants       TenantLister
	ingestor      FullIngestor
	interval      time.Duration
	tenantTimeout time.Duration
	logger        *zap.Logger
}

// NewScheduler creates a new sync scheduler
func NewScheduler(tenants TenantLister, ingestor FullIngestor, interval, tenantTimeout time.Duration) *Scheduler {
	return &Scheduler{
		tenants:       tenants,
		ingestor:      ingestor,
		interval:      interval,
		tenantTimeout: tenantTimeout,
		logger:        util.GetLogger(),
	}
}

// Start runs the scheduling loop until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting sync scheduler", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle ingests every tenant once, isolating per-tenant failures
func (s *Scheduler) RunCycle(ctx context.Context) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for sync cycle", zap.Error(err))
		return
	}

	s.logger.Info("Starting sync cycle", zap.Int("tenants", len(tenants)))

	for i := range tenants {
		tenant := &tenants[i]
		s.runTenant(ctx, tenant)

		if ctx.Err() != nil {
			return
		}
	}

	s.logger.Info("Sync cycle completed", zap.Int("tenants", len(tenants)))
}

// runTenant bounds one tenant's ingestion with the per-tenant timeout
func (s *Scheduler) runTenant(ctx context.Context, tenant *models.Tenant) {
	tenantCtx, cancel := context.WithTimeout(ctx, s.tenantTimeout)
	defer cancel()

	summary, err := s.ingestor.IngestAll(tenantCtx, tenant, service.TriggerScheduled)
	if errors.Is(err, service.ErrSyncInProgress) {
		s.logger.Info("Skipping tenant, ingestion already running",
			zap.Int64("tenant_id", tenant.ID),
			zap.String("shop_domain", tenant.ShopDomain))
		return
	}
	if err != nil {
		util.TenantSyncFailures.Inc()
		s.logger.Error("Tenant ingestion failed, continuing with next tenant",
			zap.Int64("tenant_id", tenant.ID),
			zap.String("shop_domain", tenant.ShopDomain),
			zap.Error(err))
		return
	}

	s.logger.Info("Tenant ingestion completed",
		zap.Int64("tenant_id", tenant.ID),
		zap.String("shop_domain", tenant.ShopDomain),
		zap.Int("customers_created", summary.Customers.Created),
		zap.Int("customers_updated", summary.Customers.Updated),
		zap.Int("products_created", summary.Products.Created),
		zap.Int("products_updated", summary.Products.Updated),
		zap.Int("orders_created", summary.Orders.Created),
		zap.Int("orders_updated", summary.Orders.Updated))
}
