package store

import (
	"context"

	"catalog-sync/internal/models"
)

// InsertSyncEvent appends one row to the fact log. The log is write-only from
// the engine's side; rows are never updated or deleted here.
func (s *Store) InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error {
	query := `
		INSERT INTO sync_events (tenant_id, event_type, customer_id, order_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, event, query,
		event.TenantID, event.EventType, event.CustomerID, event.OrderID, event.Metadata)
}
