package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-sync/internal/util"
)

const (
	// MaxPageSize is the remote API's pagination limit; callers may not exceed it
	MaxPageSize = 250

	apiVersion = "2023-10"

	// maxResponseSize caps the response body read to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024

	accessTokenHeader = "X-Shopify-Access-Token"
)

// Credentials identifies one tenant's remote shop and access token
type Credentials struct {
	ShopDomain  string
	AccessToken string
}

// Client fetches paginated collections from one tenant's shop. It follows
// rel="next" cursor links until none remains and returns the materialized
// collection. Page failures propagate unretried: re-invoking the whole fetch
// is the recovery mechanism, retrying mid-cursor risks inconsistent pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
}

// NewClient creates a client for one tenant credential pair. pageSize is
// clamped to MaxPageSize.
func NewClient(creds Credentials, pageSize int) *Client {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("https://%s/admin/api/%s", creds.ShopDomain, apiVersion),
		token:      creds.AccessToken,
		pageSize:   pageSize,
	}
}

// FetchCustomers retrieves the full customer collection
func (c *Client) FetchCustomers(ctx context.Context) ([]Customer, error) {
	defer observeFetch("customers", time.Now())

	var customers []Customer
	err := c.fetchAll(ctx, c.collectionURL("customers", nil), func(body []byte) error {
		var envelope customersEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to parse customers page: %w", err)
		}
		customers = append(customers, envelope.Customers...)
		return nil
	})
	if err != nil {
		util.RemoteFetchFailures.WithLabelValues("customers").Inc()
		return nil, err
	}
	return customers, nil
}

// FetchProducts retrieves the full product collection
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	defer observeFetch("products", time.Now())

	var products []Product
	err := c.fetchAll(ctx, c.collectionURL("products", nil), func(body []byte) error {
		var envelope productsEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to parse products page: %w", err)
		}
		products = append(products, envelope.Products...)
		return nil
	})
	if err != nil {
		util.RemoteFetchFailures.WithLabelValues("products").Inc()
		return nil, err
	}
	return products, nil
}

// FetchOrders retrieves the full order collection, any status
func (c *Client) FetchOrders(ctx context.Context) ([]Order, error) {
	defer observeFetch("orders", time.Now())

	var orders []Order
	err := c.fetchAll(ctx, c.collectionURL("orders", url.Values{"status": {"any"}}), func(body []byte) error {
		var envelope ordersEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to parse orders page: %w", err)
		}
		orders = append(orders, envelope.Orders...)
		return nil
	})
	if err != nil {
		util.RemoteFetchFailures.WithLabelValues("orders").Inc()
		return nil, err
	}
	return orders, nil
}

// FetchCustomer retrieves a single customer by remote ID.
// Returns (nil, nil) when the record is gone or inaccessible upstream.
func (c *Client) FetchCustomer(ctx context.Context, remoteID int64) (*Customer, error) {
	body, found, err := c.getOne(ctx, fmt.Sprintf("%s/customers/%d.json", c.baseURL, remoteID))
	if err != nil || !found {
		return nil, err
	}

	var envelope customerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse customer: %w", err)
	}
	return envelope.Customer, nil
}

// FetchProduct retrieves a single product by remote ID.
// Returns (nil, nil) when the record is gone or inaccessible upstream.
func (c *Client) FetchProduct(ctx context.Context, remoteID int64) (*Product, error) {
	body, found, err := c.getOne(ctx, fmt.Sprintf("%s/products/%d.json", c.baseURL, remoteID))
	if err != nil || !found {
		return nil, err
	}

	var envelope productEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	return envelope.Product, nil
}

// FetchOrder retrieves a single order by remote ID.
// Returns (nil, nil) when the record is gone or inaccessible upstream.
func (c *Client) FetchOrder(ctx context.Context, remoteID int64) (*Order, error) {
	body, found, err := c.getOne(ctx, fmt.Sprintf("%s/orders/%d.json", c.baseURL, remoteID))
	if err != nil || !found {
		return nil, err
	}

	var envelope orderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	return envelope.Order, nil
}

// collectionURL builds the first-page URL for a resource collection
func (c *Client) collectionURL(resource string, extra url.Values) string {
	query := url.Values{"limit": {fmt.Sprintf("%d", c.pageSize)}}
	for key, vals := range extra {
		query[key] = vals
	}
	return fmt.Sprintf("%s/%s.json?%s", c.baseURL, resource, query.Encode())
}

// fetchAll follows cursor links from pageURL until none remains, feeding each
// page body to collect
func (c *Client) fetchAll(ctx context.Context, pageURL string, collect func(body []byte) error) error {
	for pageURL != "" {
		body, next, err := c.getPage(ctx, pageURL)
		if err != nil {
			return err
		}
		if err := collect(body); err != nil {
			return err
		}
		pageURL = next
	}
	return nil
}

// getPage issues one page request and extracts the next cursor link
func (c *Client) getPage(ctx context.Context, pageURL string) (body []byte, next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set(accessTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("remote returned status %d for %s", resp.StatusCode, pageURL)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read page body: %w", err)
	}

	return body, ParseNextLink(resp.Header.Get("Link")), nil
}

// getOne issues a single-record request; a 404 is a valid absent outcome
func (c *Client) getOne(ctx context.Context, recordURL string) (body []byte, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set(accessTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("record request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("remote returned status %d for %s", resp.StatusCode, recordURL)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read record body: %w", err)
	}

	return body, true, nil
}

// ParseNextLink extracts the rel="next" cursor URL from a Link header.
// Returns "" when no next page remains.
func ParseNextLink(header string) string {
	const nextRelSuffix = `; rel="next"`
	for _, part := range strings.Split(header, ", ") {
		link := strings.TrimSuffix(part, nextRelSuffix)
		if len(link) != len(part) && len(link) > 2 && link[0] == '<' && link[len(link)-1] == '>' {
			return link[1 : len(link)-1]
		}
	}
	return ""
}

func observeFetch(resource string, start time.Time) {
	util.RemoteFetchLatency.WithLabelValues(resource).Observe(time.Since(start).Seconds())
}
