package store

import (
	"context"
	"database/sql"

	"catalog-sync/internal/models"
)

// UpsertCustomer writes a customer by its (tenant_id, remote_id) natural key.
// The unique constraint makes concurrent upserts of the same key safe: the
// second writer's insert turns into the update arm. All mapped fields are
// replaced in full, never merged. Returns true when a new row was created.
func (s *Store) UpsertCustomer(ctx context.Context, customer *models.Customer) (bool, error) {
	query := `
		INSERT INTO customers (
			tenant_id, remote_id, email, first_name, last_name, phone,
			total_spent, orders_count, remote_created_at, remote_updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, remote_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			total_spent = EXCLUDED.total_spent,
			orders_count = EXCLUDED.orders_count,
			remote_created_at = EXCLUDED.remote_created_at,
			remote_updated_at = EXCLUDED.remote_updated_at,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS created`

	var result upsertResult
	err := s.db.GetContext(ctx, &result, query,
		customer.TenantID, customer.RemoteID, customer.Email, customer.FirstName,
		customer.LastName, customer.Phone, customer.TotalSpent, customer.OrdersCount,
		customer.RemoteCreatedAt, customer.RemoteUpdatedAt)
	if err != nil {
		return false, err
	}

	customer.ID = result.ID
	return result.Created, nil
}

// FindCustomerByRemoteID looks up a customer by natural key.
// Returns (nil, nil) when no row exists; absence is not an error.
func (s *Store) FindCustomerByRemoteID(ctx context.Context, tenantID, remoteID int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE tenant_id = $1 AND remote_id = $2",
		tenantID, remoteID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CountCustomers returns the number of customers stored for a tenant
func (s *Store) CountCustomers(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM customers WHERE tenant_id = $1", tenantID)
	return count, err
}
