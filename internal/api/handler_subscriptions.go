package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"

	"gupio-parking-backend/internal/model"
	"gupio-parking-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers a browser for the caller's reminders.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint:   req.Endpoint,
		EmployeeID: mw.EmployeeID(c),
		P256DH:     req.P256DH,
		Auth:       req.Auth,
	}

	err := h.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"employee_id", "p256dh", "auth"}),
	}).Create(&subscription).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("endpoint = ? AND employee_id = ?", req.Endpoint, mw.EmployeeID(c)).
		Delete(&model.PushSubscription{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscriptions lists the caller's subscribed endpoints.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	var subscriptions []model.PushSubscription
	err := h.db.WithContext(c.Request.Context()).
		Where("employee_id = ?", mw.EmployeeID(c)).
		Order("created_at").
		Find(&subscriptions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	endpoints := make([]string, len(subscriptions))
	for i, s := range subscriptions {
		endpoints[i] = s.Endpoint
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}
