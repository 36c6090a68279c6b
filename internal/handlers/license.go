// internal/handlers/license.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
	auditService   *services.AuditService
	storageService *services.StorageService
}

func NewLicenseHandler(
	licenseService *services.LicenseService,
	auditService *services.AuditService,
	storageService *services.StorageService,
) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		auditService:   auditService,
		storageService: storageService,
	}
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}

// POST /licenses
func (h *LicenseHandler) CreateLicense(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req services.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	license, err := h.licenseService.CreateLicense(&req, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"license": license})
}

// GET /licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	license, err := h.licenseService.GetLicense(licenseID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// GET /licenses/mine
func (h *LicenseHandler) GetMyLicenses(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	licenses, err := h.licenseService.GetUserLicenses(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"licenses": licenses})
}

// POST /licenses/activate
func (h *LicenseHandler) ActivateLicense(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	license, err := h.licenseService.ActivateLicense(req.Key, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// PUT /licenses/:id/renew
func (h *LicenseHandler) RenewLicense(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	license, err := h.licenseService.RenewLicense(licenseID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// PUT /licenses/:id/suspend
func (h *LicenseHandler) SuspendLicense(c *gin.Context) {
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
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	license, err := h.licenseService.SuspendLicense(licenseID, userID, req.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// PUT /licenses/:id/reactivate
func (h *LicenseHandler) ReactivateLicense(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	license, err := h.licenseService.ReactivateLicense(licenseID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// PUT /licenses/:id/revoke
func (h *LicenseHandler) RevokeLicense(c *gin.Context) {
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
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Revocation reason is required", err.Error())
		return
	}

	license, err := h.licenseService.RevokeLicense(licenseID, userID, req.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"license": license})
}

// GET /licenses/:id/audit
func (h *LicenseHandler) GetLicenseAudit(c *gin.Context) {
	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	// Access check through the normal read path.
	if _, err := h.licenseService.GetLicense(licenseID, userID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	history, err := h.auditService.History(licenseID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"audit_log": history})
}

// GET /licenses/report
func (h *LicenseHandler) GetLicenseReport(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	report, err := h.licenseService.GenerateLicenseReport(userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if c.Query("export") == "true" {
		result, err := h.storageService.ExportReport(report)
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}

		var url string
		if result.Exported {
			url, _ = h.storageService.PresignReport(result.Key, 15*time.Minute)
		}

		utils.SuccessResponse(c, gin.H{
			"report": report,
			"export": result,
			"url":    url,
		})
		return
	}

	utils.SuccessResponse(c, gin.H{"report": report})
}
