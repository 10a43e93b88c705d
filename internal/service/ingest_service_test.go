package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Datastore keyed the same way the real schema is:
// one partition per (tenant_id, remote_id)
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	customers map[string]*models.Customer
	products  map[string]*models.Product
	orders    map[string]*models.Order
	items     map[int64][]models.OrderItem
	events    []models.SyncEvent
	tenants   map[string]*models.Tenant

	failCustomerRemoteID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[string]*models.Customer),
		products:  make(map[string]*models.Product),
		orders:    make(map[string]*models.Order),
		items:     make(map[int64][]models.OrderItem),
		tenants:   make(map[string]*models.Tenant),
	}
}

func naturalKey(tenantID, remoteID int64) string {
	return fmt.Sprintf("%d:%d", tenantID, remoteID)
}

func (f *fakeStore) UpsertCustomer(_ context.Context, customer *models.Customer) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCustomerRemoteID != 0 && customer.RemoteID == f.failCustomerRemoteID {
		return false, errors.New("simulated write failure")
	}

	key := naturalKey(customer.TenantID, customer.RemoteID)
	if existing, ok := f.customers[key]; ok {
		customer.ID = existing.ID
		f.customers[key] = customer
		return false, nil
	}

	f.nextID++
	customer.ID = f.nextID
	f.customers[key] = customer
	return true, nil
}

func (f *fakeStore) FindCustomerByRemoteID(_ context.Context, tenantID, remoteID int64) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	customer, ok := f.customers[naturalKey(tenantID, remoteID)]
	if !ok {
		return nil, nil
	}
	return customer, nil
}

func (f *fakeStore) UpsertProduct(_ context.Context, product *models.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := naturalKey(product.TenantID, product.RemoteID)
	if existing, ok := f.products[key]; ok {
		product.ID = existing.ID
		f.products[key] = product
		return false, nil
	}

	f.nextID++
	product.ID = f.nextID
	f.products[key] = product
	return true, nil
}

func (f *fakeStore) FindProductByRemoteID(_ context.Context, tenantID, remoteID int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[naturalKey(tenantID, remoteID)]
	if !ok {
		return nil, nil
	}
	return product, nil
}

func (f *fakeStore) UpsertOrder(_ context.Context, order *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := naturalKey(order.TenantID, order.RemoteID)
	if existing, ok := f.orders[key]; ok {
		order.ID = existing.ID
		f.orders[key] = order
		return false, nil
	}

	f.nextID++
	order.ID = f.nextID
	f.orders[key] = order
	return true, nil
}

func (f *fakeStore) ReplaceOrderItems(_ context.Context, orderID int64, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[orderID] = items
	return nil
}

func (f *fakeStore) InsertSyncEvent(_ context.Context, event *models.SyncEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) GetTenantByShopDomain(_ context.Context, domain string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tenant, ok := f.tenants[domain]
	if !ok {
		return nil, nil
	}
	return tenant, nil
}

func (f *fakeStore) customerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.customers)
}

// fakeRemote is a canned RemoteClient
type fakeRemote struct {
	customers []shopify.Customer
	products  []shopify.Product
	orders    []shopify.Order

	customersErr error
	productsErr  error
	ordersErr    error
}

func (f *fakeRemote) FetchCustomers(context.Context) ([]shopify.Customer, error) {
	return f.customers, f.customersErr
}

func (f *fakeRemote) FetchProducts(context.Context) ([]shopify.Product, error) {
	return f.products, f.productsErr
}

func (f *fakeRemote) FetchOrders(context.Context) ([]shopify.Order, error) {
	return f.orders, f.ordersErr
}

func factoryFor(remote *fakeRemote) ClientFactory {
	return func(shopify.Credentials) RemoteClient { return remote }
}

// fakeLocker grants or denies every acquisition
type fakeLocker struct {
	deny     bool
	acquired []string
	released []string
}

func (f *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.deny {
		return false, nil
	}
	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func testTenant(id int64) *models.Tenant {
	return &models.Tenant{
		ID:          id,
		ShopDomain:  fmt.Sprintf("shop-%d.myshopify.com", id),
		AccessToken: "shpat_test",
	}
}

func TestIngestCustomersIdempotent(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{customers: []shopify.Customer{
		{ID: 1, Email: strPtr("a@example.com")},
		{ID: 2, Email: strPtr("b@example.com")},
	}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	first, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Created: 2}, first)

	second, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Updated: 2}, second)
	assert.Equal(t, 2, store.customerCount())
}

func TestIngestCustomersUpdatesSameRow(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{customers: []shopify.Customer{{ID: 7, Email: strPtr("old@example.com")}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	_, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	before, err := store.FindCustomerByRemoteID(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NotNil(t, before)

	remote.customers[0].Email = strPtr("new@example.com")
	_, err = svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)

	after, err := store.FindCustomerByRemoteID(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "new@example.com", *after.Email)
	assert.Equal(t, 1, store.customerCount())
}

func TestIngestCustomersPartialBatch(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{}
	for i := 1; i <= 10; i++ {
		customer := shopify.Customer{ID: int64(i), TotalSpent: strPtr("10.00")}
		if i == 5 {
			customer.TotalSpent = strPtr("???")
		}
		remote.customers = append(remote.customers, customer)
	}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	counts, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Created: 10}, counts)

	degraded, err := store.FindCustomerByRemoteID(context.Background(), 1, 5)
	require.NoError(t, err)
	require.NotNil(t, degraded)
	assert.True(t, degraded.TotalSpent.IsZero())
}

func TestIngestCustomersSkipsFailedWrites(t *testing.T) {
	store := newFakeStore()
	store.failCustomerRemoteID = 2
	remote := &fakeRemote{customers: []shopify.Customer{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	counts, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Created: 2, Skipped: 1}, counts)
}

func TestIngestCustomersFetchFailurePropagates(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{customersErr: errors.New("boom")}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	_, err := svc.IngestCustomers(context.Background(), testTenant(1))
	assert.Error(t, err)
	assert.Equal(t, 0, store.customerCount())
}

func TestIngestOrdersUnresolvedReferences(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{orders: []shopify.Order{{
		ID:         100,
		Customer:   &shopify.CustomerRef{ID: 55},
		TotalPrice: strPtr("30.00"),
		LineItems:  []shopify.LineItem{{ProductID: int64Ptr(200), Quantity: intPtr(1), Price: strPtr("30.00")}},
	}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)
	tenant := testTenant(1)

	// no customers or products exist yet: the run must still complete and the
	// weak references resolve to absent
	counts, err := svc.IngestOrders(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Created: 1}, counts)

	order, err := store.FindOrderByRemoteID(context.Background(), 1, 100)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Nil(t, order.CustomerID)
	require.Len(t, store.items[order.ID], 1)
	assert.Nil(t, store.items[order.ID][0].ProductID)

	// once the referenced entities arrive, a re-run resolves them
	remote.customers = []shopify.Customer{{ID: 55}}
	remote.products = []shopify.Product{{ID: 200, Title: strPtr("Widget")}}
	_, err = svc.IngestCustomers(context.Background(), tenant)
	require.NoError(t, err)
	_, err = svc.IngestProducts(context.Background(), tenant)
	require.NoError(t, err)

	counts, err = svc.IngestOrders(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Updated: 1}, counts)

	order, err = store.FindOrderByRemoteID(context.Background(), 1, 100)
	require.NoError(t, err)
	require.NotNil(t, order.CustomerID)
	require.Len(t, store.items[order.ID], 1)
	assert.NotNil(t, store.items[order.ID][0].ProductID)
}

func (f *fakeStore) FindOrderByRemoteID(_ context.Context, tenantID, remoteID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[naturalKey(tenantID, remoteID)]
	if !ok {
		return nil, nil
	}
	return order, nil
}

func TestIngestOrdersReplacesItemSet(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{orders: []shopify.Order{{
		ID: 100,
		LineItems: []shopify.LineItem{
			{Title: strPtr("A"), Quantity: intPtr(1)},
			{Title: strPtr("B"), Quantity: intPtr(2)},
			{Title: strPtr("C"), Quantity: intPtr(3)},
		},
	}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)
	tenant := testTenant(1)

	_, err := svc.IngestOrders(context.Background(), tenant)
	require.NoError(t, err)

	order, err := store.FindOrderByRemoteID(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, store.items[order.ID], 3)

	// remote side drops to one line item; no stale rows may survive
	remote.orders[0].LineItems = remote.orders[0].LineItems[:1]
	_, err = svc.IngestOrders(context.Background(), tenant)
	require.NoError(t, err)

	require.Len(t, store.items[order.ID], 1)
	assert.Equal(t, "A", store.items[order.ID][0].Title)
}

func TestCrossTenantIsolation(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{customers: []shopify.Customer{{ID: 77}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	_, err := svc.IngestCustomers(context.Background(), testTenant(1))
	require.NoError(t, err)
	_, err = svc.IngestCustomers(context.Background(), testTenant(2))
	require.NoError(t, err)

	first, err := store.FindCustomerByRemoteID(context.Background(), 1, 77)
	require.NoError(t, err)
	second, err := store.FindCustomerByRemoteID(context.Background(), 2, 77)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestIngestAllResolvesReferencesInOneRun(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{
		customers: []shopify.Customer{{ID: 55}},
		products:  []shopify.Product{{ID: 200, Title: strPtr("Widget")}},
		orders: []shopify.Order{{
			ID:        100,
			Customer:  &shopify.CustomerRef{ID: 55},
			LineItems: []shopify.LineItem{{ProductID: int64Ptr(200), Quantity: intPtr(1)}},
		}},
	}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	summary, err := svc.IngestAll(context.Background(), testTenant(1), TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Created: 1}, summary.Customers)
	assert.Equal(t, models.SyncCounts{Created: 1}, summary.Products)
	assert.Equal(t, models.SyncCounts{Created: 1}, summary.Orders)

	// orders ran after the catalog, so references resolved on first pass
	order, err := store.FindOrderByRemoteID(context.Background(), 1, 100)
	require.NoError(t, err)
	require.NotNil(t, order.CustomerID)
	require.Len(t, store.items[order.ID], 1)
	assert.NotNil(t, store.items[order.ID][0].ProductID)
}

func TestIngestAllPartialFailureStillAttemptsRest(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{
		customersErr: errors.New("rate limited"),
		products:     []shopify.Product{{ID: 200, Title: strPtr("Widget")}},
	}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	summary, err := svc.IngestAll(context.Background(), testTenant(1), TriggerScheduled)
	assert.Error(t, err)
	assert.Equal(t, models.SyncCounts{Created: 1}, summary.Products)
}

func TestIngestAllRunLockConflict(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{}
	locker := &fakeLocker{deny: true}
	svc := NewIngestService(store, factoryFor(remote), locker, nil, time.Minute)

	_, err := svc.IngestAll(context.Background(), testTenant(1), TriggerAPI)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestIngestAllReleasesRunLock(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{}
	locker := &fakeLocker{}
	svc := NewIngestService(store, factoryFor(remote), locker, nil, time.Minute)

	_, err := svc.IngestAll(context.Background(), testTenant(3), TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-sync:3"}, locker.acquired)
	assert.Equal(t, []string{"tenant-sync:3"}, locker.released)
}

func TestIngestAllRecordsSyncEvent(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{customers: []shopify.Customer{{ID: 1}}}
	svc := NewIngestService(store, factoryFor(remote), nil, nil, time.Minute)

	_, err := svc.IngestAll(context.Background(), testTenant(1), TriggerAPI)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Equal(t, models.EventTypeSyncCompleted, store.events[0].EventType)
	assert.Equal(t, int64(1), store.events[0].TenantID)
}
