package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/shopify"
	"catalog-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trigger paths that can start an ingestion run
const (
	TriggerScheduled = "scheduled"
	TriggerAPI       = "api"
	TriggerWebhook   = "webhook"
	TriggerBroker    = "broker"
)

// ErrSyncInProgress is returned when a full ingestion run is requested while
// another full run holds the tenant's run lock
var ErrSyncInProgress = errors.New("ingestion already in progress for tenant")

// Datastore is the storage surface the ingestion engine consumes. Lookups
// return (nil, nil) on absence; upserts report whether a row was created.
type Datastore interface {
	UpsertCustomer(ctx context.Context, customer *models.Customer) (bool, error)
	FindCustomerByRemoteID(ctx context.Context, tenantID, remoteID int64) (*models.Customer, error)
	UpsertProduct(ctx context.Context, product *models.Product) (bool, error)
	FindProductByRemoteID(ctx context.Context, tenantID, remoteID int64) (*models.Product, error)
	UpsertOrder(ctx context.Context, order *models.Order) (bool, error)
	ReplaceOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error
	InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error
}

// RemoteClient is the per-tenant paginated collection surface
type RemoteClient interface {
	FetchCustomers(ctx context.Context) ([]shopify.Customer, error)
	FetchProducts(ctx context.Context) ([]shopify.Product, error)
	FetchOrders(ctx context.Context) ([]shopify.Order, error)
}

// ClientFactory builds a remote client for one tenant credential pair
type ClientFactory func(creds shopify.Credentials) RemoteClient

// RunLocker serializes full ingestion runs per tenant
type RunLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// SyncEventPublisher publishes sync lifecycle events to the broker
type SyncEventPublisher interface {
	PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error
	PublishSyncFailed(ctx context.Context, event *models.SyncFailedEvent) error
}

// IngestService reconciles a tenant's remote catalog against the store. Each
// call is stateless: everything it needs comes from the tenant passed in, so
// concurrent runs for different tenants share nothing but the store.
type IngestService struct {
	store      Datastore
	clients    ClientFactory
	locker     RunLocker
	publisher  SyncEventPublisher
	runLockTTL time.Duration
	logger     *zap.Logger
}

// NewIngestService creates a new ingestion service. locker and publisher may
// be nil; run-lock suppression and event publishing are then skipped.
func NewIngestService(
	store Datastore,
	clients ClientFactory,
	locker RunLocker,
	publisher SyncEventPublisher,
	runLockTTL time.Duration,
) *IngestService {
	return &IngestService{
		store:      store,
		clients:    clients,
		locker:     locker,
		publisher:  publisher,
		runLockTTL: runLockTTL,
		logger:     util.GetLogger(),
	}
}

// IngestCustomers fetches the tenant's full customer collection and upserts
// every record. A malformed record degrades to defaults and is still written;
// a record that fails to persist is skipped and counted, never fatal.
func (s *IngestService) IngestCustomers(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.IngestCustomers")
	defer span.End()

	var counts models.SyncCounts

	client := s.clients(shopify.Credentials{ShopDomain: tenant.ShopDomain, AccessToken: tenant.AccessToken})
	records, err := client.FetchCustomers(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to fetch customers: %w", err)
	}

	for _, raw := range records {
		customer := MapCustomer(tenant.ID, raw)

		created, err := s.store.UpsertCustomer(ctx, &customer)
		if err != nil {
			counts.Skipped++
			util.RecordsSkippedTotal.WithLabelValues(models.EntityCustomers, "write_failed").Inc()
			s.logger.Warn("Skipping customer that failed to persist",
				zap.Int64("tenant_id", tenant.ID),
				zap.Int64("remote_id", raw.ID),
				zap.Error(err))
			continue
		}

		s.count(&counts, created, models.EntityCustomers)
	}

	s.logger.Info("Customer ingestion completed",
		zap.Int64("tenant_id", tenant.ID),
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped))

	return counts, nil
}

// IngestProducts fetches the tenant's full product collection and upserts
// every record
func (s *IngestService) IngestProducts(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.IngestProducts")
	defer span.End()

	var counts models.SyncCounts

	client := s.clients(shopify.Credentials{ShopDomain: tenant.ShopDomain, AccessToken: tenant.AccessToken})
	records, err := client.FetchProducts(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to fetch products: %w", err)
	}

	for _, raw := range records {
		product := MapProduct(tenant.ID, raw)

		created, err := s.store.UpsertProduct(ctx, &product)
		if err != nil {
			counts.Skipped++
			util.RecordsSkippedTotal.WithLabelValues(models.EntityProducts, "write_failed").Inc()
			s.logger.Warn("Skipping product that failed to persist",
				zap.Int64("tenant_id", tenant.ID),
				zap.Int64("remote_id", raw.ID),
				zap.Error(err))
			continue
		}

		s.count(&counts, created, models.EntityProducts)
	}

	s.logger.Info("Product ingestion completed",
		zap.Int64("tenant_id", tenant.ID),
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped))

	return counts, nil
}

// IngestOrders fetches the tenant's full order collection, upserts every
// order with a best-effort customer resolution, and replaces each order's
// item set with the current remote line items.
func (s *IngestService) IngestOrders(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.IngestOrders")
	defer span.End()

	var counts models.SyncCounts

	client := s.clients(shopify.Credentials{ShopDomain: tenant.ShopDomain, AccessToken: tenant.AccessToken})
	records, err := client.FetchOrders(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to fetch orders: %w", err)
	}

	for _, raw := range records {
		created, err := s.reconcileOrder(ctx, tenant, raw)
		if err != nil {
			counts.Skipped++
			util.RecordsSkippedTotal.WithLabelValues(models.EntityOrders, "write_failed").Inc()
			s.logger.Warn("Skipping order that failed to persist",
				zap.Int64("tenant_id", tenant.ID),
				zap.Int64("remote_id", raw.ID),
				zap.Error(err))
			continue
		}

		s.count(&counts, created, models.EntityOrders)
	}

	s.logger.Info("Order ingestion completed",
		zap.Int64("tenant_id", tenant.ID),
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped))

	return counts, nil
}

// reconcileOrder upserts one order and replaces its item set. The customer
// and product references are weak: an unresolvable remote id is stored as
// absent, never an error.
func (s *IngestService) reconcileOrder(ctx context.Context, tenant *models.Tenant, raw shopify.Order) (bool, error) {
	order := MapOrder(tenant.ID, raw)
	order.CustomerID = s.resolveCustomer(ctx, tenant.ID, raw.Customer)

	created, err := s.store.UpsertOrder(ctx, &order)
	if err != nil {
		return false, err
	}

	items := make([]models.OrderItem, 0, len(raw.LineItems))
	for _, rawItem := range raw.LineItems {
		item := MapOrderItem(rawItem)
		item.OrderID = order.ID
		item.ProductID = s.resolveProduct(ctx, tenant.ID, rawItem.ProductID)
		items = append(items, item)
	}

	if err := s.store.ReplaceOrderItems(ctx, order.ID, items); err != nil {
		return false, fmt.Errorf("failed to replace order items: %w", err)
	}

	return created, nil
}

// resolveCustomer maps a remote customer reference to an internal row id.
// Absent or unknown references resolve to nil.
func (s *IngestService) resolveCustomer(ctx context.Context, tenantID int64, ref *shopify.CustomerRef) *int64 {
	if ref == nil {
		return nil
	}

	customer, err := s.store.FindCustomerByRemoteID(ctx, tenantID, ref.ID)
	if err != nil {
		s.logger.Warn("Customer reference lookup failed",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("remote_customer_id", ref.ID),
			zap.Error(err))
		return nil
	}
	if customer == nil {
		return nil
	}
	return &customer.ID
}

// resolveProduct maps a remote product id to an internal row id.
// Absent or unknown references resolve to nil.
func (s *IngestService) resolveProduct(ctx context.Context, tenantID int64, remoteID *int64) *int64 {
	if remoteID == nil {
		return nil
	}

	product, err := s.store.FindProductByRemoteID(ctx, tenantID, *remoteID)
	if err != nil {
		s.logger.Warn("Product reference lookup failed",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("remote_product_id", *remoteID),
			zap.Error(err))
		return nil
	}
	if product == nil {
		return nil
	}
	return &product.ID
}

// IngestAll runs a full ingestion for one tenant. Customers and products run
// concurrently with each other; orders start only after both have finished,
// so order and line-item references resolve against the freshest rows. Entity
// failures are aggregated rather than short-circuiting: a failed customer
// fetch still leaves products and orders attempted.
func (s *IngestService) IngestAll(ctx context.Context, tenant *models.Tenant, trigger string) (models.SyncSummary, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.IngestAll")
	defer span.End()

	var summary models.SyncSummary
	start := time.Now()

	if s.locker != nil {
		lockKey := fmt.Sprintf("tenant-sync:%d", tenant.ID)
		acquired, err := s.locker.AcquireLock(ctx, lockKey, s.runLockTTL)
		if err != nil {
			s.logger.Warn("Run lock unavailable, proceeding without it",
				zap.Int64("tenant_id", tenant.ID),
				zap.Error(err))
		} else if !acquired {
			return summary, ErrSyncInProgress
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(context.Background(), lockKey); err != nil {
					s.logger.Warn("Failed to release run lock",
						zap.Int64("tenant_id", tenant.ID),
						zap.Error(err))
				}
			}()
		}
	}

	var wg sync.WaitGroup
	var customersErr, productsErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		summary.Customers, customersErr = s.IngestCustomers(ctx, tenant)
	}()
	go func() {
		defer wg.Done()
		summary.Products, productsErr = s.IngestProducts(ctx, tenant)
	}()
	wg.Wait()

	var ordersErr error
	summary.Orders, ordersErr = s.IngestOrders(ctx, tenant)

	runErr := errors.Join(customersErr, productsErr, ordersErr)
	s.finishRun(ctx, tenant, trigger, summary, time.Since(start), runErr)

	if runErr != nil {
		util.SyncRunsTotal.WithLabelValues(trigger, "failure").Inc()
		return summary, fmt.Errorf("ingestion run incomplete for tenant %d: %w", tenant.ID, runErr)
	}

	util.SyncRunsTotal.WithLabelValues(trigger, "success").Inc()
	return summary, nil
}

// finishRun records the run outcome on the fact log and the broker.
// Both are best-effort side channels and never fail the run.
func (s *IngestService) finishRun(
	ctx context.Context,
	tenant *models.Tenant,
	trigger string,
	summary models.SyncSummary,
	elapsed time.Duration,
	runErr error,
) {
	eventType := models.EventTypeSyncCompleted
	if runErr != nil {
		eventType = models.EventTypeSyncFailed
	}

	metadata, _ := json.Marshal(map[string]any{
		"trigger":     trigger,
		"summary":     summary,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err := s.store.InsertSyncEvent(ctx, &models.SyncEvent{
		TenantID:  tenant.ID,
		EventType: eventType,
		Metadata:  metadata,
	}); err != nil {
		s.logger.Warn("Failed to record sync event",
			zap.Int64("tenant_id", tenant.ID),
			zap.Error(err))
	}

	if s.publisher == nil {
		return
	}

	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}

	if runErr != nil {
		err := s.publisher.PublishSyncFailed(ctx, &models.SyncFailedEvent{
			BaseEvent:  base,
			TenantID:   tenant.ID,
			ShopDomain: tenant.ShopDomain,
			Trigger:    trigger,
			Reason:     runErr.Error(),
		})
		if err != nil {
			s.logger.Error("Failed to publish SyncFailed event", zap.Error(err))
		}
		return
	}

	err := s.publisher.PublishSyncCompleted(ctx, &models.SyncCompletedEvent{
		BaseEvent:  base,
		TenantID:   tenant.ID,
		ShopDomain: tenant.ShopDomain,
		Trigger:    trigger,
		Summary:    summary,
		DurationMs: elapsed.Milliseconds(),
	})
	if err != nil {
		s.logger.Error("Failed to publish SyncCompleted event", zap.Error(err))
	}
}

func (s *IngestService) count(counts *models.SyncCounts, created bool, entity string) {
	if created {
		counts.Created++
		util.RecordsCreatedTotal.WithLabelValues(entity).Inc()
	} else {
		counts.Updated++
		util.RecordsUpdatedTotal.WithLabelValues(entity).Inc()
	}
}
