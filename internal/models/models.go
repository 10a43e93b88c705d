package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant represents one merchant account whose catalog is ingested
type Tenant struct {
	ID          int64     `db:"id" json:"id"`
	ShopDomain  string    `db:"shop_domain" json:"shop_domain"`
	AccessToken string    `db:"access_token" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Customer represents a remote customer record, keyed by (tenant_id, remote_id)
type Customer struct {
	ID              int64           `db:"id" json:"id"`
	TenantID        int64           `db:"tenant_id" json:"tenant_id"`
	RemoteID        int64           `db:"remote_id" json:"remote_id"`
	Email           *string         `db:"email" json:"email,omitempty"`
	FirstName       *string         `db:"first_name" json:"first_name,omitempty"`
	LastName        *string         `db:"last_name" json:"last_name,omitempty"`
	Phone           *string         `db:"phone" json:"phone,omitempty"`
	TotalSpent      decimal.Decimal `db:"total_spent" json:"total_spent"`
	OrdersCount     int             `db:"orders_count" json:"orders_count"`
	RemoteCreatedAt *time.Time      `db:"remote_created_at" json:"remote_created_at,omitempty"`
	RemoteUpdatedAt *time.Time      `db:"remote_updated_at" json:"remote_updated_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Product represents a remote product, keyed by (tenant_id, remote_id).
// Price and compare-at price come from the first variant observed.
type Product struct {
	ID                int64               `db:"id" json:"id"`
	TenantID          int64               `db:"tenant_id" json:"tenant_id"`
	RemoteID          int64               `db:"remote_id" json:"remote_id"`
	Title             string              `db:"title" json:"title"`
	Vendor            *string             `db:"vendor" json:"vendor,omitempty"`
	ProductType       *string             `db:"product_type" json:"product_type,omitempty"`
	Price             decimal.Decimal     `db:"price" json:"price"`
	CompareAtPrice    decimal.NullDecimal `db:"compare_at_price" json:"compare_at_price,omitempty"`
	InventoryQuantity int                 `db:"inventory_quantity" json:"inventory_quantity"`
	RemoteCreatedAt   *time.Time          `db:"remote_created_at" json:"remote_created_at,omitempty"`
	RemoteUpdatedAt   *time.Time          `db:"remote_updated_at" json:"remote_updated_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// Order represents a remote order, keyed by (tenant_id, remote_id).
// CustomerID is a weak reference: nil when the remote customer is unknown locally.
type Order struct {
	ID                int64               `db:"id" json:"id"`
	TenantID          int64               `db:"tenant_id" json:"tenant_id"`
	RemoteID          int64               `db:"remote_id" json:"remote_id"`
	CustomerID        *int64              `db:"customer_id" json:"customer_id,omitempty"`
	OrderNumber       *int64              `db:"order_number" json:"order_number,omitempty"`
	FinancialStatus   *string             `db:"financial_status" json:"financial_status,omitempty"`
	FulfillmentStatus *string             `db:"fulfillment_status" json:"fulfillment_status,omitempty"`
	TotalPrice        decimal.Decimal     `db:"total_price" json:"total_price"`
	SubtotalPrice     decimal.NullDecimal `db:"subtotal_price" json:"subtotal_price,omitempty"`
	TotalTax          decimal.NullDecimal `db:"total_tax" json:"total_tax,omitempty"`
	TotalDiscounts    decimal.NullDecimal `db:"total_discounts" json:"total_discounts,omitempty"`
	Currency          string              `db:"currency" json:"currency"`
	RemoteCreatedAt   *time.Time          `db:"remote_created_at" json:"remote_created_at,omitempty"`
	RemoteUpdatedAt   *time.Time          `db:"remote_updated_at" json:"remote_updated_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// OrderItem belongs to exactly one order and is replaced wholesale on every
// reconciliation of that order. ProductID is a weak reference to Product.
type OrderItem struct {
	ID            int64               `db:"id" json:"id"`
	OrderID       int64               `db:"order_id" json:"order_id"`
	ProductID     *int64              `db:"product_id" json:"product_id,omitempty"`
	Title         string              `db:"title" json:"title"`
	Quantity      int                 `db:"quantity" json:"quantity"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	TotalDiscount decimal.NullDecimal `db:"total_discount" json:"total_discount,omitempty"`
	SKU           *string             `db:"sku" json:"sku,omitempty"`
	VariantTitle  *string             `db:"variant_title" json:"variant_title,omitempty"`
}

// SyncEvent is an append-only fact log row. The engine only ever inserts these.
type SyncEvent struct {
	ID         int64     `db:"id" json:"id"`
	TenantID   int64     `db:"tenant_id" json:"tenant_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	CustomerID *int64    `db:"customer_id" json:"customer_id,omitempty"`
	OrderID    *int64    `db:"order_id" json:"order_id,omitempty"`
	Metadata   []byte    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Entity kinds used for targeted re-sync
const (
	EntityCustomers = "customers"
	EntityProducts  = "products"
	EntityOrders    = "orders"
)

// SyncCounts aggregates per-entity reconciliation outcomes for one run
type SyncCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Add folds another outcome set into c
func (c *SyncCounts) Add(other SyncCounts) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
}

// SyncSummary is the aggregate result of a full ingestion run for one tenant
type SyncSummary struct {
	Customers SyncCounts `json:"customers"`
	Products  SyncCounts `json:"products"`
	Orders    SyncCounts `json:"orders"`
}
