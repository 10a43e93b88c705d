package models

import "time"

// Event types
const (
	EventTypeSyncCompleted   = "SYNC_COMPLETED"
	EventTypeSyncFailed      = "SYNC_FAILED"
	EventTypeSyncRequested   = "SYNC_REQUESTED"
	EventTypeWebhookReceived = "WEBHOOK_RECEIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncCompletedEvent published when an ingestion run finishes
type SyncCompletedEvent struct {
	BaseEvent
	TenantID   int64       `json:"tenant_id"`
	ShopDomain string      `json:"shop_domain"`
	Trigger    string      `json:"trigger"`
	Summary    SyncSummary `json:"summary"`
	DurationMs int64       `json:"duration_ms"`
}

// SyncFailedEvent published when a per-tenant run fails
type SyncFailedEvent struct {
	BaseEvent
	TenantID   int64  `json:"tenant_id"`
	ShopDomain string `json:"shop_domain"`
	Trigger    string `json:"trigger"`
	Reason     string `json:"reason"`
}

// SyncRequestedEvent consumed from the sync-request topic to trigger a
// targeted re-sync for one tenant
type SyncRequestedEvent struct {
	BaseEvent
	TenantID int64  `json:"tenant_id"`
	Entity   string `json:"entity"`
}

// WebhookReceivedEvent published after a verified webhook is processed
type WebhookReceivedEvent struct {
	BaseEvent
	TenantID   int64  `json:"tenant_id"`
	ShopDomain string `json:"shop_domain"`
	Topic      string `json:"topic"`
}
