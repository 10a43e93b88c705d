package shopify

// Wire shapes for the subset of the Shopify Admin REST API the engine consumes.
// Remote data is untrusted: every field that may be absent or malformed is a
// pointer, and monetary amounts arrive as strings.

// Customer is the raw remote customer record
type Customer struct {
	ID          int64   `json:"id"`
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Phone       *string `json:"phone"`
	TotalSpent  *string `json:"total_spent"`
	OrdersCount *int    `json:"orders_count"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

// Variant is one product variant; the first variant observed supplies the
// product's representative price
type Variant struct {
	ID                *int64  `json:"id"`
	Title             *string `json:"title"`
	Price             *string `json:"price"`
	CompareAtPrice    *string `json:"compare_at_price"`
	SKU               *string `json:"sku"`
	InventoryQuantity *int    `json:"inventory_quantity"`
}

// Product is the raw remote product record
type Product struct {
	ID          int64     `json:"id"`
	Title       *string   `json:"title"`
	Vendor      *string   `json:"vendor"`
	ProductType *string   `json:"product_type"`
	Variants    []Variant `json:"variants"`
	CreatedAt   *string   `json:"created_at"`
	UpdatedAt   *string   `json:"updated_at"`
}

// CustomerRef is the embedded customer reference carried on an order
type CustomerRef struct {
	ID int64 `json:"id"`
}

// LineItem is one raw order line item
type LineItem struct {
	ID            *int64  `json:"id"`
	ProductID     *int64  `json:"product_id"`
	Title         *string `json:"title"`
	Quantity      *int    `json:"quantity"`
	Price         *string `json:"price"`
	TotalDiscount *string `json:"total_discount"`
	SKU           *string `json:"sku"`
	VariantTitle  *string `json:"variant_title"`
}

// Order is the raw remote order record
type Order struct {
	ID                int64        `json:"id"`
	OrderNumber       *int64       `json:"order_number"`
	Customer          *CustomerRef `json:"customer"`
	FinancialStatus   *string      `json:"financial_status"`
	FulfillmentStatus *string      `json:"fulfillment_status"`
	TotalPrice        *string      `json:"total_price"`
	SubtotalPrice     *string      `json:"subtotal_price"`
	TotalTax          *string      `json:"total_tax"`
	TotalDiscounts    *string      `json:"total_discounts"`
	Currency          *string      `json:"currency"`
	LineItems         []LineItem   `json:"line_items"`
	CreatedAt         *string      `json:"created_at"`
	UpdatedAt         *string      `json:"updated_at"`
}

type customersEnvelope struct {
	Customers []Customer `json:"customers"`
}

type customerEnvelope struct {
	Customer *Customer `json:"customer"`
}

type productsEnvelope struct {
	Products []Product `json:"products"`
}

type productEnvelope struct {
	Product *Product `json:"product"`
}

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

type orderEnvelope struct {
	Order *Order `json:"order"`
}
