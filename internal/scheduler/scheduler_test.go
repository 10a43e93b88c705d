package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	tenants []models.Tenant
	err     error
}

func (f *fakeLister) ListTenants(context.Context) ([]models.Tenant, error) {
	return f.tenants, f.err
}

type fakeIngestor struct {
	ingested []int64
	failFor  map[int64]error
}

func (f *fakeIngestor) IngestAll(_ context.Context, tenant *models.Tenant, _ string) (models.SyncSummary, error) {
	if err, ok := f.failFor[tenant.ID]; ok {
		return models.SyncSummary{}, err
	}
	f.ingested = append(f.ingested, tenant.ID)
	return models.SyncSummary{}, nil
}

func TestRunCycleIsolatesTenantFailures(t *testing.T) {
	lister := &fakeLister{tenants: []models.Tenant{
		{ID: 1, ShopDomain: "a.myshopify.com"},
		{ID: 2, ShopDomain: "b.myshopify.com"},
		{ID: 3, ShopDomain: "c.myshopify.com"},
	}}
	ingestor := &fakeIngestor{failFor: map[int64]error{
		1: errors.New("credential revoked"),
	}}
	sched := NewScheduler(lister, ingestor, time.Hour, time.Minute)

	sched.RunCycle(context.Background())

	// tenant 1 failing must not block tenants 2 and 3
	assert.Equal(t, []int64{2, 3}, ingestor.ingested)
}

func TestRunCycleSkipsOverlappingRuns(t *testing.T) {
	lister := &fakeLister{tenants: []models.Tenant{{ID: 1}, {ID: 2}}}
	ingestor := &fakeIngestor{failFor: map[int64]error{
		1: service.ErrSyncInProgress,
	}}
	sched := NewScheduler(lister, ingestor, time.Hour, time.Minute)

	sched.RunCycle(context.Background())

	assert.Equal(t, []int64{2}, ingestor.ingested)
}

func TestRunCycleStopsWhenContextCancelled(t *testing.T) {
	lister := &fakeLister{tenants: []models.Tenant{{ID: 1}, {ID: 2}}}
	ingestor := &fakeIngestor{}
	sched := NewScheduler(lister, ingestor, time.Hour, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched.RunCycle(ctx)

	// the first tenant may have been attempted before the cancellation check
	require.LessOrEqual(t, len(ingestor.ingested), 1)
}
