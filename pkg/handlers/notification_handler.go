package handlers

import (
	"io"
	"net/http"

	"opencat/pkg/services"

	"github.com/gin-gonic/gin"
)

// NotificationHandler receives unauthenticated store server-to-server
// push notifications. Requests are never rejected for
// auth; the adapter's own signature verification is the trust boundary.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) Apple(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.notifications.ProcessAppleNotification(c.Request.Context(), body); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *NotificationHandler) Google(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.notifications.ProcessGoogleNotification(c.Request.Context(), body); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
