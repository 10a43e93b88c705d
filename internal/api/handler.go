package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"catalog-sync/internal/models"
	"catalog-sync/internal/service"
	"catalog-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SyncService is the ingestion surface exposed over HTTP
type SyncService interface {
	service.TargetedIngestor
	IngestAll(ctx context.Context, tenant *models.Tenant, trigger string) (models.SyncSummary, error)
}

// TenantStore is the tenant registry surface exposed over HTTP
type TenantStore interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error)
	RotateTenantToken(ctx context.Context, tenantID int64, accessToken string) error
}

// Handler contains HTTP handlers
type Handler struct {
	tenants  TenantStore
	sync     SyncService
	webhooks *service.WebhookService
}

// NewHandler creates a new HTTP handler
func NewHandler(tenants TenantStore, sync SyncService, webhooks *service.WebhookService) *Handler {
	return &Handler{
		tenants:  tenants,
		sync:     sync,
		webhooks: webhooks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/shopify", h.handleWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/tenants", h.createTenant)
		v1.PUT("/tenants/:id/token", h.rotateToken)
		v1.POST("/tenants/:id/sync", h.syncAll)
		v1.POST("/tenants/:id/sync/customers", h.syncEntity(models.EntityCustomers))
		v1.POST("/tenants/:id/sync/products", h.syncEntity(models.EntityProducts))
		v1.POST("/tenants/:id/sync/orders", h.syncEntity(models.EntityOrders))
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// CreateTenantRequest registers a merchant shop
type CreateTenantRequest struct {
	ShopDomain  string `json:"shop_domain" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

// createTenant handles tenant registration
func (h *Handler) createTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	tenant := &models.Tenant{
		ShopDomain:  req.ShopDomain,
		AccessToken: req.AccessToken,
	}
	if err := h.tenants.CreateTenant(c.Request.Context(), tenant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create tenant",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

// RotateTokenRequest replaces a tenant's access credential
type RotateTokenRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// rotateToken handles credential rotation
func (h *Handler) rotateToken(c *gin.Context) {
	tenant, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	var req RotateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.tenants.RotateTenantToken(c.Request.Context(), tenant.ID, req.AccessToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to rotate token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rotated"})
}

// syncAll triggers a full ingestion run for one tenant
func (h *Handler) syncAll(c *gin.Context) {
	tenant, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	summary, err := h.sync.IngestAll(c.Request.Context(), tenant, service.TriggerAPI)
	if errors.Is(err, service.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Sync failed",
			"details": err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// syncEntity triggers a targeted re-sync of one entity type
func (h *Handler) syncEntity(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := h.lookupTenant(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		var counts models.SyncCounts
		var err error

		switch entity {
		case models.EntityCustomers:
			counts, err = h.sync.IngestCustomers(ctx, tenant)
		case models.EntityProducts:
			counts, err = h.sync.IngestProducts(ctx, tenant)
		case models.EntityOrders:
			counts, err = h.sync.IngestOrders(ctx, tenant)
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Sync failed",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, counts)
	}
}

// handleWebhook authenticates and processes one inbound notification.
// The raw body must be read unmodified, the signature covers it byte for byte.
func (h *Handler) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	topic := c.GetHeader("X-Shopify-Topic")
	signature := c.GetHeader("X-Shopify-Hmac-Sha256")

	counts, err := h.webhooks.HandleWebhook(c.Request.Context(), shopDomain, topic, signature, body)
	switch {
	case errors.Is(err, service.ErrUnknownShop):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown shop domain"})
	case errors.Is(err, service.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Webhook processing failed",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusOK, counts)
	}
}

// lookupTenant resolves the :id path param; responds and returns false on
// bad input or unknown tenant
func (h *Handler) lookupTenant(c *gin.Context) (*models.Tenant, bool) {
	tenantID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant ID"})
		return nil, false
	}

	tenant, err := h.tenants.GetTenantByID(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to look up tenant",
			"details": err.Error(),
		})
		return nil, false
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return nil, false
	}

	return tenant, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
