package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catalog-sync/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateTenant registers a new tenant
func (s *Store) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (shop_domain, access_token)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, tenant, query, tenant.ShopDomain, tenant.AccessToken)
}

// GetTenantByID retrieves a tenant by internal ID
func (s *Store) GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenantByShopDomain retrieves a tenant by its remote shop domain.
// Returns (nil, nil) when the domain is unknown.
func (s *Store) GetTenantByShopDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE shop_domain = $1", domain)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListTenants retrieves all registered tenants
func (s *Store) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.SelectContext(ctx, &tenants, "SELECT * FROM tenants ORDER BY id")
	return tenants, err
}

// RotateTenantToken replaces a tenant's remote access credential
func (s *Store) RotateTenantToken(ctx context.Context, tenantID int64, accessToken string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tenants SET access_token = $1, updated_at = NOW() WHERE id = $2",
		accessToken, tenantID)
	return err
}

// upsertResult carries the outcome of an ON CONFLICT upsert. The created flag
// comes from (xmax = 0), true only for freshly inserted rows.
type upsertResult struct {
	ID      int64 `db:"id"`
	Created bool  `db:"created"`
}
