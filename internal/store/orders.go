package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-sync/internal/models"
)

// UpsertOrder writes an order by its (tenant_id, remote_id) natural key.
// Returns true when a new row was created.
func (s *Store) UpsertOrder(ctx context.Context, order *models.Order) (bool, error) {
	query := `
		INSERT INTO orders (
			tenant_id, remote_id, customer_id, order_number,
			financial_status, fulfillment_status,
			total_price, subtotal_price, total_tax, total_discounts, currency,
			remote_created_at, remote_updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, remote_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			order_number = EXCLUDED.order_number,
			financial_status = EXCLUDED.financial_status,
			fulfillment_status = EXCLUDED.fulfillment_status,
			total_price = EXCLUDED.total_price,
			subtotal_price = EXCLUDED.subtotal_price,
			total_tax = EXCLUDED.total_tax,
			total_discounts = EXCLUDED.total_discounts,
			currency = EXCLUDED.currency,
			remote_created_at = EXCLUDED.remote_created_at,
			remote_updated_at = EXCLUDED.remote_updated_at,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS created`

	var result upsertResult
	err := s.db.GetContext(ctx, &result, query,
		order.TenantID, order.RemoteID, order.CustomerID, order.OrderNumber,
		order.FinancialStatus, order.FulfillmentStatus,
		order.TotalPrice, order.SubtotalPrice, order.TotalTax, order.TotalDiscounts,
		order.Currency, order.RemoteCreatedAt, order.RemoteUpdatedAt)
	if err != nil {
		return false, err
	}

	order.ID = result.ID
	return result.Created, nil
}

// FindOrderByRemoteID looks up an order by natural key.
// Returns (nil, nil) when no row exists.
func (s *Store) FindOrderByRemoteID(ctx context.Context, tenantID, remoteID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE tenant_id = $1 AND remote_id = $2",
		tenantID, remoteID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ReplaceOrderItems swaps an order's item set for the given one inside a single
// transaction, so no reader observes a partially replaced set. Stale items from
// removed remote line items are dropped rather than accumulated.
func (s *Store) ReplaceOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete stale order items: %w", err)
	}

	insert := `
		INSERT INTO order_items (
			order_id, product_id, title, quantity, price,
			total_discount, sku, variant_title
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i := range items {
		item := &items[i]
		if _, err := tx.ExecContext(ctx, insert,
			orderID, item.ProductID, item.Title, item.Quantity, item.Price,
			item.TotalDiscount, item.SKU, item.VariantTitle); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CountOrders returns the number of orders stored for a tenant
func (s *Store) CountOrders(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE tenant_id = $1", tenantID)
	return count, err
}
