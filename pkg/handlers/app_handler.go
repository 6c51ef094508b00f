package handlers

import (
	"net/http"

	"opencat/pkg/external/storeadapter"
	"opencat/pkg/services"

	"github.com/gin-gonic/gin"
)

// AppHandler covers app bootstrap, credentials, entitlements, products,
// offerings, catalog sync, and API-key lifecycle.
type AppHandler struct {
	catalog *services.CatalogService
	apiKeys *services.APIKeyService
}

func NewAppHandler(catalog *services.CatalogService, apiKeys *services.APIKeyService) *AppHandler {
	return &AppHandler{catalog: catalog, apiKeys: apiKeys}
}

type createAppRequest struct {
	Name     string `json:"name" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	BundleID string `json:"bundle_id" binding:"required"`
}

func (h *AppHandler) CreateApp(c *gin.Context) {
	var req createAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.catalog.CreateApp(c.Request.Context(), req.Name, req.Platform, req.BundleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *AppHandler) ListApps(c *gin.Context) {
	apps, err := h.catalog.ListApps(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *AppHandler) SetCredentials(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	var blob storeadapter.CredentialsBlob
	if err := c.ShouldBindJSON(&blob); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.catalog.SetCredentials(c.Request.Context(), appID, blob); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AppHandler) GetCredentials(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	blob, err := h.catalog.GetCredentials(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blob)
}

type createEntitlementRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

func (h *AppHandler) CreateEntitlement(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	var req createEntitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entitlement, err := h.catalog.CreateEntitlement(c.Request.Context(), appID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entitlement)
}

func (h *AppHandler) ListEntitlements(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	entitlements, err := h.catalog.ListEntitlements(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entitlements)
}

type createProductRequest struct {
	StoreProductID string `json:"store_product_id" binding:"required"`
	ProductType    string `json:"product_type" binding:"required"`
	EntitlementIDs []uint `json:"entitlement_ids"`
}

func (h *AppHandler) CreateProduct(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), appID, req.StoreProductID, req.ProductType, req.EntitlementIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *AppHandler) ListProducts(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *AppHandler) GetOfferings(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	offerings, err := h.catalog.GetOfferings(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerings)
}

func (h *AppHandler) SyncProducts(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	count, ids, err := h.catalog.SyncProducts(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced_count": count, "product_ids": ids})
}

type issueAPIKeyRequest struct {
	Permission string `json:"permission"`
}

func (h *AppHandler) IssueAPIKey(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}

	var req issueAPIKeyRequest
	_ = c.ShouldBindJSON(&req)

	issued, err := h.apiKeys.Issue(c.Request.Context(), appID, req.Permission)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":     issued.Key.PublicID,
		"prefix": issued.Key.Prefix,
		"key":    issued.Secret,
	})
}

func (h *AppHandler) RevokeAPIKey(c *gin.Context) {
	appID, ok := parseUintParam(c, "id")
	if !ok || !requireAppScope(c, appID) {
		return
	}
	keyID := c.Param("key_id")
	if keyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key_id"})
		return
	}

	if err := h.apiKeys.Revoke(c.Request.Context(), appID, keyID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
