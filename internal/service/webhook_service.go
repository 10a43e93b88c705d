package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnknownShop is returned for webhooks from shop domains with no tenant
	ErrUnknownShop = errors.New("unknown shop domain")
	// ErrInvalidSignature is returned when the payload signature does not verify
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// topicEntities maps recognized webhook topics to the entity type to re-sync.
// Topics outside this map are accepted but produce no action.
var topicEntities = map[string]string{
	"orders/create":    models.EntityOrders,
	"orders/updated":   models.EntityOrders,
	"orders/paid":      models.EntityOrders,
	"customers/create": models.EntityCustomers,
	"customers/update": models.EntityCustomers,
	"products/create":  models.EntityProducts,
	"products/update":  models.EntityProducts,
}

// TenantSource resolves shop domains to tenants
type TenantSource interface {
	GetTenantByShopDomain(ctx context.Context, domain string) (*models.Tenant, error)
}

// TargetedIngestor runs per-entity-type ingestion for one tenant
type TargetedIngestor interface {
	IngestCustomers(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error)
	IngestProducts(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error)
	IngestOrders(ctx context.Context, tenant *models.Tenant) (models.SyncCounts, error)
}

// WebhookPublisher publishes webhook receipt events to the broker
type WebhookPublisher interface {
	PublishWebhookReceived(ctx context.Context, event *models.WebhookReceivedEvent) error
}

// WebhookService is the event intake boundary: it authenticates inbound
// notifications against the tenant's stored credential and delegates to the
// targeted ingestion for the topic's entity type. A webhook for one changed
// record re-syncs that whole collection; reconciliation stays idempotent so
// the extra work is redundant, not harmful.
type WebhookService struct {
	tenants   TenantSource
	ingestor  TargetedIngestor
	events    EventRecorder
	publisher WebhookPublisher
	logger    *zap.Logger
}

// EventRecorder appends webhook facts to the sync event log
type EventRecorder interface {
	InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error
}

// NewWebhookService creates a new webhook intake service. publisher may be nil.
func NewWebhookService(
	tenants TenantSource,
	ingestor TargetedIngestor,
	events EventRecorder,
	publisher WebhookPublisher,
) *WebhookService {
	return &WebhookService{
		tenants:   tenants,
		ingestor:  ingestor,
		events:    events,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// HandleWebhook verifies and processes one inbound notification. The raw body
// must be exactly as delivered; the signature is recomputed over it.
func (w *WebhookService) HandleWebhook(ctx context.Context, shopDomain, topic, signature string, body []byte) (models.SyncCounts, error) {
	ctx, span := util.StartSpan(ctx, "WebhookService.HandleWebhook")
	defer span.End()

	var counts models.SyncCounts

	tenant, err := w.tenants.GetTenantByShopDomain(ctx, shopDomain)
	if err != nil {
		return counts, fmt.Errorf("failed to look up tenant: %w", err)
	}
	if tenant == nil {
		util.WebhooksReceivedTotal.WithLabelValues("unknown_shop").Inc()
		return counts, ErrUnknownShop
	}

	if !VerifySignature(body, tenant.AccessToken, signature) {
		util.WebhooksReceivedTotal.WithLabelValues("bad_signature").Inc()
		w.logger.Warn("Rejected webhook with invalid signature",
			zap.String("shop_domain", shopDomain),
			zap.String("topic", topic))
		return counts, ErrInvalidSignature
	}

	entity, recognized := topicEntities[topic]
	if !recognized {
		util.WebhooksReceivedTotal.WithLabelValues("ignored").Inc()
		w.logger.Info("Ignoring unrecognized webhook topic",
			zap.String("shop_domain", shopDomain),
			zap.String("topic", topic))
		return counts, nil
	}

	w.recordReceipt(ctx, tenant, topic)

	switch entity {
	case models.EntityCustomers:
		counts, err = w.ingestor.IngestCustomers(ctx, tenant)
	case models.EntityProducts:
		counts, err = w.ingestor.IngestProducts(ctx, tenant)
	case models.EntityOrders:
		counts, err = w.ingestor.IngestOrders(ctx, tenant)
	}
	if err != nil {
		util.WebhooksReceivedTotal.WithLabelValues("sync_failed").Inc()
		return counts, fmt.Errorf("webhook-triggered %s re-sync failed: %w", entity, err)
	}

	util.WebhooksReceivedTotal.WithLabelValues("processed").Inc()
	return counts, nil
}

// recordReceipt appends the webhook fact to the event log and broker,
// best effort
func (w *WebhookService) recordReceipt(ctx context.Context, tenant *models.Tenant, topic string) {
	metadata, _ := json.Marshal(map[string]string{"topic": topic})
	if err := w.events.InsertSyncEvent(ctx, &models.SyncEvent{
		TenantID:  tenant.ID,
		EventType: models.EventTypeWebhookReceived,
		Metadata:  metadata,
	}); err != nil {
		w.logger.Warn("Failed to record webhook event",
			zap.Int64("tenant_id", tenant.ID),
			zap.Error(err))
	}

	if w.publisher == nil {
		return
	}
	err := w.publisher.PublishWebhookReceived(ctx, &models.WebhookReceivedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeWebhookReceived,
			Timestamp: time.Now(),
		},
		TenantID:   tenant.ID,
		ShopDomain: tenant.ShopDomain,
		Topic:      topic,
	})
	if err != nil {
		w.logger.Error("Failed to publish WebhookReceived event", zap.Error(err))
	}
}

// ComputeSignature returns the base64-encoded HMAC-SHA256 of body keyed with
// secret, the scheme used by the remote platform's webhook deliveries
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a supplied signature against the recomputed one in
// constant time
func VerifySignature(body []byte, secret string, signature string) bool {
	expected := ComputeSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
