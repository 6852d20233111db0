package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boarding-house-backend/internal/response"
)

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		response.Error(c, http.StatusServiceUnavailable, "PUSH_DISABLED", "vapid keys are not configured")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
