package service

import (
	"context"
	"testing"

	"catalog-sync/internal/models"
	"catalog-sync/internal/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingIngestor records which targeted ingestions ran
type countingIngestor struct {
	customerRuns int
	productRuns  int
	orderRuns    int
}

func (c *countingIngestor) IngestCustomers(context.Context, *models.Tenant) (models.SyncCounts, error) {
	c.customerRuns++
	return models.SyncCounts{Updated: 1}, nil
}

func (c *countingIngestor) IngestProducts(context.Context, *models.Tenant) (models.SyncCounts, error) {
	c.productRuns++
	return models.SyncCounts{Updated: 1}, nil
}

func (c *countingIngestor) IngestOrders(context.Context, *models.Tenant) (models.SyncCounts, error) {
	c.orderRuns++
	return models.SyncCounts{Updated: 1}, nil
}

func webhookFixture(t *testing.T) (*WebhookService, *fakeStore, *countingIngestor) {
	t.Helper()

	store := newFakeStore()
	store.tenants["shop-1.myshopify.com"] = &models.Tenant{
		ID:          1,
		ShopDomain:  "shop-1.myshopify.com",
		AccessToken: "shpat_secret",
	}
	ingestor := &countingIngestor{}
	return NewWebhookService(store, ingestor, store, nil), store, ingestor
}

func TestHandleWebhookTriggersOrderResync(t *testing.T) {
	svc, store, ingestor := webhookFixture(t)

	body := []byte(`{"id":100,"total_price":"30.00"}`)
	signature := ComputeSignature(body, "shpat_secret")

	counts, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", "orders/updated", signature, body)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{Updated: 1}, counts)
	assert.Equal(t, 1, ingestor.orderRuns)
	assert.Zero(t, ingestor.customerRuns)
	assert.Zero(t, ingestor.productRuns)

	require.Len(t, store.events, 1)
	assert.Equal(t, models.EventTypeWebhookReceived, store.events[0].EventType)
}

func TestHandleWebhookTopicRouting(t *testing.T) {
	svc, _, ingestor := webhookFixture(t)
	body := []byte(`{}`)
	signature := ComputeSignature(body, "shpat_secret")

	for _, topic := range []string{"customers/create", "customers/update"} {
		_, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", topic, signature, body)
		require.NoError(t, err)
	}
	for _, topic := range []string{"products/create", "products/update"} {
		_, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", topic, signature, body)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, ingestor.customerRuns)
	assert.Equal(t, 2, ingestor.productRuns)
	assert.Zero(t, ingestor.orderRuns)
}

func TestHandleWebhookTamperedBodyRejected(t *testing.T) {
	svc, _, ingestor := webhookFixture(t)

	body := []byte(`{"id":100}`)
	signature := ComputeSignature(body, "shpat_secret")
	tampered := []byte(`{"id":999}`)

	_, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", "orders/updated", signature, tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, ingestor.orderRuns)
}

func TestHandleWebhookWrongSecretRejected(t *testing.T) {
	svc, _, ingestor := webhookFixture(t)

	body := []byte(`{"id":100}`)
	signature := ComputeSignature(body, "wrong-secret")

	_, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", "orders/updated", signature, body)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, ingestor.orderRuns)
}

func TestHandleWebhookUnknownShop(t *testing.T) {
	svc, _, ingestor := webhookFixture(t)

	body := []byte(`{}`)
	signature := ComputeSignature(body, "shpat_secret")

	_, err := svc.HandleWebhook(context.Background(), "nobody.myshopify.com", "orders/updated", signature, body)
	assert.ErrorIs(t, err, ErrUnknownShop)
	assert.Zero(t, ingestor.orderRuns)
}

func TestHandleWebhookUnrecognizedTopicAcceptedNoAction(t *testing.T) {
	svc, store, ingestor := webhookFixture(t)

	body := []byte(`{}`)
	signature := ComputeSignature(body, "shpat_secret")

	counts, err := svc.HandleWebhook(context.Background(), "shop-1.myshopify.com", "fulfillments/create", signature, body)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCounts{}, counts)
	assert.Zero(t, ingestor.orderRuns)
	assert.Empty(t, store.events)
}

func TestVerifySignature(t *testing.T) {
	body := []byte("payload")

	assert.True(t, VerifySignature(body, "key", ComputeSignature(body, "key")))
	assert.False(t, VerifySignature(body, "key", "bogus"))
	assert.False(t, VerifySignature(body, "other", ComputeSignature(body, "key")))
}

// Compile-time check that the real client satisfies the ingestion surface
var _ RemoteClient = (*shopify.Client)(nil)
