package store

import (
	"context"
	"database/sql"

	"catalog-sync/internal/models"
)

// UpsertProduct writes a product by its (tenant_id, remote_id) natural key.
// Returns true when a new row was created.
func (s *Store) UpsertProduct(ctx context.Context, product *models.Product) (bool, error) {
	query := `
		INSERT INTO products (
			tenant_id, remote_id, title, vendor, product_type,
			price, compare_at_price, inventory_quantity,
			remote_created_at, remote_updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, remote_id) DO UPDATE SET
			title = EXCLUDED.title,
			vendor = EXCLUDED.vendor,
			product_type = EXCLUDED.product_type,
			price = EXCLUDED.price,
			compare_at_price = EXCLUDED.compare_at_price,
			inventory_quantity = EXCLUDED.inventory_quantity,
			remote_created_at = EXCLUDED.remote_created_at,
			remote_updated_at = EXCLUDED.remote_updated_at,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS created`

	var result upsertResult
	err := s.db.GetContext(ctx, &result, query,
		product.TenantID, product.RemoteID, product.Title, product.Vendor,
		product.ProductType, product.Price, product.CompareAtPrice,
		product.InventoryQuantity, product.RemoteCreatedAt, product.RemoteUpdatedAt)
	if err != nil {
		return false, err
	}

	product.ID = result.ID
	return result.Created, nil
}

// FindProductByRemoteID looks up a product by natural key.
// Returns (nil, nil) when no row exists.
func (s *Store) FindProductByRemoteID(ctx context.Context, tenantID, remoteID int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE tenant_id = $1 AND remote_id = $2",
		tenantID, remoteID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CountProducts returns the number of products stored for a tenant
func (s *Store) CountProducts(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM products WHERE tenant_id = $1", tenantID)
	return count, err
}
