package service

import (
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/shopify"

	"github.com/shopspring/decimal"
)

// Mapping from raw remote records to internal entities. These are total, pure
// functions: a malformed or missing field degrades to its documented default
// and never aborts the record, let alone the run.
//
// Defaults: required money parses to zero, optional money to null, absent
// currency to "USD", absent inventory to 0, absent quantity to 1, absent
// timestamps stay unset (never "now").

const defaultCurrency = "USD"

// MapCustomer translates a raw customer into entity fields for one tenant
func MapCustomer(tenantID int64, raw shopify.Customer) models.Customer {
	customer := models.Customer{
		TenantID:        tenantID,
		RemoteID:        raw.ID,
		Email:           raw.Email,
		FirstName:       raw.FirstName,
		LastName:        raw.LastName,
		Phone:           raw.Phone,
		TotalSpent:      parseMoney(raw.TotalSpent),
		RemoteCreatedAt: parseTime(raw.CreatedAt),
		RemoteUpdatedAt: parseTime(raw.UpdatedAt),
	}
	if raw.OrdersCount != nil && *raw.OrdersCount > 0 {
		customer.OrdersCount = *raw.OrdersCount
	}
	return customer
}

// MapProduct translates a raw product into entity fields for one tenant.
// The representative price and compare-at price come from the first variant.
func MapProduct(tenantID int64, raw shopify.Product) models.Product {
	product := models.Product{
		TenantID:        tenantID,
		RemoteID:        raw.ID,
		Title:           stringOrEmpty(raw.Title),
		Vendor:          raw.Vendor,
		ProductType:     raw.ProductType,
		RemoteCreatedAt: parseTime(raw.CreatedAt),
		RemoteUpdatedAt: parseTime(raw.UpdatedAt),
	}

	if len(raw.Variants) > 0 {
		first := raw.Variants[0]
		product.Price = parseMoney(first.Price)
		product.CompareAtPrice = parseNullMoney(first.CompareAtPrice)
		if first.InventoryQuantity != nil {
			product.InventoryQuantity = *first.InventoryQuantity
		}
	}

	return product
}

// MapOrder translates a raw order into entity fields for one tenant.
// CustomerID stays nil here; the reconciler resolves the weak reference
// against already-reconciled customers.
func MapOrder(tenantID int64, raw shopify.Order) models.Order {
	order := models.Order{
		TenantID:          tenantID,
		RemoteID:          raw.ID,
		OrderNumber:       raw.OrderNumber,
		FinancialStatus:   raw.FinancialStatus,
		FulfillmentStatus: raw.FulfillmentStatus,
		TotalPrice:        parseMoney(raw.TotalPrice),
		SubtotalPrice:     parseNullMoney(raw.SubtotalPrice),
		TotalTax:          parseNullMoney(raw.TotalTax),
		TotalDiscounts:    parseNullMoney(raw.TotalDiscounts),
		Currency:          defaultCurrency,
		RemoteCreatedAt:   parseTime(raw.CreatedAt),
		RemoteUpdatedAt:   parseTime(raw.UpdatedAt),
	}
	if raw.Currency != nil && *raw.Currency != "" {
		order.Currency = *raw.Currency
	}
	return order
}

// MapOrderItem translates a raw line item. ProductID stays nil here; the
// reconciler resolves the weak reference against already-reconciled products.
func MapOrderItem(raw shopify.LineItem) models.OrderItem {
	item := models.OrderItem{
		Title:         stringOrEmpty(raw.Title),
		Quantity:      1,
		Price:         parseMoney(raw.Price),
		TotalDiscount: parseNullMoney(raw.TotalDiscount),
		SKU:           raw.SKU,
		VariantTitle:  raw.VariantTitle,
	}
	if raw.Quantity != nil && *raw.Quantity > 0 {
		item.Quantity = *raw.Quantity
	}
	return item
}

// parseMoney parses a remote money string, defaulting to zero on absence or
// parse failure
func parseMoney(raw *string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(*raw)
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}

// parseNullMoney parses an optional money string, defaulting to null
func parseNullMoney(raw *string) decimal.NullDecimal {
	if raw == nil {
		return decimal.NullDecimal{}
	}
	value, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: value, Valid: true}
}

// parseTime parses a remote RFC3339 timestamp; absent or malformed stays unset
func parseTime(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func stringOrEmpty(raw *string) string {
	if raw == nil {
		return ""
	}
	return *raw
}
