// internal/handlers/validation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/utils"
)

type ValidationHandler struct {
	validationService *services.ValidationService
}

func NewValidationHandler(validationService *services.ValidationService) *ValidationHandler {
	return &ValidationHandler{validationService: validationService}
}

// POST /validate
//
// Invalid licenses still answer 200; the validity verdict lives in the
// body. Only unknown keys and server faults surface as HTTP errors.
func (h *ValidationHandler) ValidateKey(c *gin.Context) {
	var req struct {
		Key      string   `json:"key" binding:"required"`
		Features []string `json:"features,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	result, license, err := h.validationService.ValidateLicenseKey(req.Key)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if result.IsValid && len(req.Features) > 0 {
		result, err = h.validationService.ValidateLicenseFeatures(license.ID, req.Features)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
	}

	utils.SuccessResponse(c, gin.H{"validation": result})
}

// POST /validate/usage
func (h *ValidationHandler) ValidateUsage(c *gin.Context) {
	var req struct {
		Key   string             `json:"key" binding:"required"`
		Usage map[string]float64 `json:"usage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	result, license, err := h.validationService.ValidateLicenseKey(req.Key)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if result.IsValid {
		result, err = h.validationService.ValidateLicenseLimits(license.ID, req.Usage)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
	}

	utils.SuccessResponse(c, gin.H{"validation": result})
}

// GET /validate/active
func (h *ValidationHandler) GetActiveLicense(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	license, err := h.validationService.GetActiveLicenseForUser(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	if license == nil {
		utils.AppErrorResponse(c, apperrors.NotFound("no active license for user"))
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}
