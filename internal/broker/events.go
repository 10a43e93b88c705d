package broker

import (
	"context"
	"fmt"

	"catalog-sync/internal/models"
)

// EventPublisher publishes sync lifecycle events, keyed per tenant so one
// tenant's events stay ordered
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSyncCompleted publishes a SyncCompleted event
func (ep *EventPublisher) PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error {
	key := fmt.Sprintf("tenant-%d", event.TenantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSyncFailed publishes a SyncFailed event
func (ep *EventPublisher) PublishSyncFailed(ctx context.Context, event *models.SyncFailedEvent) error {
	key := fmt.Sprintf("tenant-%d", event.TenantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWebhookReceived publishes a WebhookReceived event
func (ep *EventPublisher) PublishWebhookReceived(ctx context.Context, event *models.WebhookReceivedEvent) error {
	key := fmt.Sprintf("tenant-%d", event.TenantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSyncRequested enqueues a targeted re-sync request for a tenant
func (ep *EventPublisher) PublishSyncRequested(ctx context.Context, event *models.SyncRequestedEvent) error {
	key := fmt.Sprintf("tenant-%d", event.TenantID)
	return ep.producer.PublishEvent(ctx, key, event)
}
