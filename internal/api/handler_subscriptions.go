package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/response"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers the caller's browser for push notifications.
// Re-registering an endpoint moves it to the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		TenantRef: actor(c).ID,
	}
	if err := h.store.Subscriptions().Upsert(c.Request.Context(), &subscription); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"endpoint": subscription.Endpoint})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.store.Subscriptions().Delete(c.Request.Context(), actor(c).ID, req.Endpoint); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription lists the caller's subscribed endpoints, or checks one
// given as ?endpoint=.
func (h *Handler) GetSubscription(c *gin.Context) {
	subs, err := h.store.Subscriptions().ListByTenant(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	endpoints := make([]string, len(subs))
	for i, sub := range subs {
		endpoints[i] = sub.Endpoint
	}

	if want := c.Query("endpoint"); want != "" {
		for _, e := range endpoints {
			if e == want {
				response.Success(c, http.StatusOK, gin.H{"endpoints": []string{e}})
				return
			}
		}
		response.Error(c, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "subscription not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"endpoints": endpoints})
}
