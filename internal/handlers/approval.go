// internal/handlers/approval.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/utils"
)

type ApprovalHandler struct {
	licenseService  *services.LicenseService
	approvalService *services.ApprovalService
}

func NewApprovalHandler(licenseService *services.LicenseService, approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		licenseService:  licenseService,
		approvalService: approvalService,
	}
}

// POST /licenses/:id/requests
func (h *ApprovalHandler) SubmitRequest(c *gin.Context) {
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
		ApprovalType models.ApprovalType     `json:"approval_type" binding:"required"`
		RequestData  models.JSONB            `json:"request_data"`
		Priority     models.ApprovalPriority `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	approval, err := h.licenseService.SubmitLicenseRequest(licenseID, userID, req.ApprovalType, req.RequestData, req.Priority)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"approval": approval})
}

// GET /approvals/queue
func (h *ApprovalHandler) GetQueue(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	approvals, total, err := h.approvalService.GetApprovalQueue(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(approvals, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /approvals/:id
func (h *ApprovalHandler) GetApproval(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid approval ID", nil)
		return
	}

	approval, err := h.approvalService.GetApproval(approvalID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"approval": approval})
}

// PUT /approvals/:id/decision
func (h *ApprovalHandler) ProcessApproval(c *gin.Context) {
	approvalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid approval ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		Decision services.ApprovalDecision `json:"decision" binding:"required"`
		Reason   string                    `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if req.Decision != services.DecisionApprove && req.Decision != services.DecisionReject {
		utils.BadRequestResponse(c, "Decision must be approve or reject", nil)
		return
	}

	approval, err := h.licenseService.ProcessApproval(approvalID, req.Decision, req.Reason, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"approval": approval})
}
