package worker

import (
	"context"
	"encoding/json"
	"testing"

	"catalog-sync/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenants struct {
	tenants map[int64]*models.Tenant
}

func (f *fakeTenants) GetTenantByID(_ context.Context, id int64) (*models.Tenant, error) {
	return f.tenants[id], nil
}

type fakeIngestor struct {
	entities []string
}

func (f *fakeIngestor) IngestCustomers(context.Context, *models.Tenant) (models.SyncCounts, error) {
	f.entities = append(f.entities, models.EntityCustomers)
	return models.SyncCounts{}, nil
}

func (f *fakeIngestor) IngestProducts(context.Context, *models.Tenant) (models.SyncCounts, error) {
	f.entities = append(f.entities, models.EntityProducts)
	return models.SyncCounts{}, nil
}

func (f *fakeIngestor) IngestOrders(context.Context, *models.Tenant) (models.SyncCounts, error) {
	f.entities = append(f.entities, models.EntityOrders)
	return models.SyncCounts{}, nil
}

func requestMessage(t *testing.T, tenantID int64, entity string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(models.SyncRequestedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeSyncRequested},
		TenantID:  tenantID,
		Entity:    entity,
	})
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestHandleMessageRunsTargetedSync(t *testing.T) {
	tenants := &fakeTenants{tenants: map[int64]*models.Tenant{1: {ID: 1}}}
	ingestor := &fakeIngestor{}
	w := NewSyncWorker(nil, tenants, ingestor)

	err := w.handleMessage(context.Background(), requestMessage(t, 1, models.EntityOrders))
	require.NoError(t, err)
	assert.Equal(t, []string{models.EntityOrders}, ingestor.entities)
}

func TestHandleMessageUnknownTenantDropped(t *testing.T) {
	tenants := &fakeTenants{tenants: map[int64]*models.Tenant{}}
	ingestor := &fakeIngestor{}
	w := NewSyncWorker(nil, tenants, ingestor)

	err := w.handleMessage(context.Background(), requestMessage(t, 42, models.EntityCustomers))
	require.NoError(t, err)
	assert.Empty(t, ingestor.entities)
}

func TestHandleMessageUnparsableDropped(t *testing.T) {
	tenants := &fakeTenants{tenants: map[int64]*models.Tenant{}}
	ingestor := &fakeIngestor{}
	w := NewSyncWorker(nil, tenants, ingestor)

	err := w.handleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	require.NoError(t, err)
	assert.Empty(t, ingestor.entities)
}

func TestHandleMessageUnknownEntityDropped(t *testing.T) {
	tenants := &fakeTenants{tenants: map[int64]*models.Tenant{1: {ID: 1}}}
	ingestor := &fakeIngestor{}
	w := NewSyncWorker(nil, tenants, ingestor)

	err := w.handleMessage(context.Background(), requestMessage(t, 1, "warehouses"))
	require.NoError(t, err)
	assert.Empty(t, ingestor.entities)
}
