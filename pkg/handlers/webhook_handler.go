package handlers

import (
	"net/http"
	"strconv"

	"opencat/pkg/services"
	"opencat/pkg/utils"

	"github.com/gin-gonic/gin"
)

// WebhookHandler covers endpoint registration, listing, event polling, and
// manual redelivery.
type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

type registerWebhookRequest struct {
	AppID  uint     `json:"app_id" binding:"required"`
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events"`
}

func (h *WebhookHandler) RegisterEndpoint(c *gin.Context) {
	var req registerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireAppScope(c, req.AppID) {
		return
	}

	endpoint, err := h.webhooks.RegisterEndpoint(c.Request.Context(), req.AppID, req.URL, req.Events)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, endpoint)
}

func (h *WebhookHandler) ListEndpoints(c *gin.Context) {
	appID, ok := utils.GetAuthenticatedAppID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	views, err := h.webhooks.ListEndpoints(c.Request.Context(), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *WebhookHandler) ListEvents(c *gin.Context) {
	appID, ok := utils.GetAuthenticatedAppID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	since, _ := strconv.ParseUint(c.Query("since"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.webhooks.ListEvents(c.Request.Context(), appID, uint(since), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *WebhookHandler) Redeliver(c *gin.Context) {
	appID, ok := utils.GetAuthenticatedAppID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	deliveryID, ok := parseUintParam(c, "delivery_id")
	if !ok {
		return
	}

	if err := h.webhooks.Redeliver(c.Request.Context(), appID, deliveryID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
