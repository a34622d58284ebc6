package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the key browsers need to subscribe to reminders.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push Unavailable", "message": "Reminder notifications are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"publicKey": h.webpush.VAPIDPublicKey})
}
