package handlers

import (
	"net/http"

	"opencat/pkg/services"
	"opencat/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SubscriberHandler covers receipt submission and subscriber lookup.
type SubscriberHandler struct {
	subscribers *services.SubscriberService
}

func NewSubscriberHandler(subscribers *services.SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{subscribers: subscribers}
}

type submitReceiptRequest struct {
	AppID       uint   `json:"app_id" binding:"required"`
	AppUserID   string `json:"app_user_id" binding:"required"`
	Store       string `json:"store" binding:"required"`
	ReceiptData string `json:"receipt_data" binding:"required"`
	ProductID   string `json:"product_id" binding:"required"`
}

func (h *SubscriberHandler) SubmitReceipt(c *gin.Context) {
	var req submitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireAppScope(c, req.AppID) {
		return
	}

	txn, err := h.subscribers.SubmitReceipt(c.Request.Context(), req.AppID, req.AppUserID, req.Store, req.ReceiptData, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *SubscriberHandler) GetSubscriber(c *gin.Context) {
	appID, ok := utils.GetAuthenticatedAppID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	detail, err := h.subscribers.GetSubscriber(c.Request.Context(), appID, c.Param("app_user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *SubscriberHandler) ListTransactions(c *gin.Context) {
	appID, ok := utils.GetAuthenticatedAppID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txns, err := h.subscribers.ListTransactions(c.Request.Context(), appID, c.Param("app_user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}
