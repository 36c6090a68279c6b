// internal/handlers/owner.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/utils"
)

type OwnerHandler struct {
	accessService       *services.AccessService
	subscriptionService *services.SubscriptionService
}

func NewOwnerHandler(accessService *services.AccessService, subscriptionService *services.SubscriptionService) *OwnerHandler {
	return &OwnerHandler{
		accessService:       accessService,
		subscriptionService: subscriptionService,
	}
}

// GET /owner/settings
func (h *OwnerHandler) GetSettings(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	settings, err := h.accessService.GetOwnerSettings(userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"settings": settings})
}

// PUT /owner/settings
func (h *OwnerHandler) UpdateSettings(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req services.OwnerSettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	settings, err := h.accessService.UpdateOwnerSettings(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"settings": settings})
}

// POST /owner/delegates/:userId
func (h *OwnerHandler) AddDelegate(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	delegateID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delegate user ID", nil)
		return
	}

	if err := h.accessService.DelegatePermissions(userID, delegateID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"delegated": delegateID})
}

// DELETE /owner/delegates/:userId
func (h *OwnerHandler) RemoveDelegate(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	delegateID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delegate user ID", nil)
		return
	}

	if err := h.accessService.RevokeDelegation(userID, delegateID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"revoked": delegateID})
}

// POST /licenses/:id/subscription
func (h *OwnerHandler) AttachSubscription(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		SubscriptionID string `json:"subscription_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	license, err := h.subscriptionService.AttachSubscription(licenseID, req.SubscriptionID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// DELETE /licenses/:id/subscription
func (h *OwnerHandler) DetachSubscription(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	cancel := c.Query("cancel") == "true"

	license, err := h.subscriptionService.DetachSubscription(licenseID, cancel, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// GET /licenses/:id/subscription
func (h *OwnerHandler) GetSubscriptionStatus(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	status, err := h.subscriptionService.GetSubscriptionStatus(licenseID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": status})
}
