// internal/handlers/template.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/utils"
)

type TemplateHandler struct {
	templateService *services.TemplateService
}

func NewTemplateHandler(templateService *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// GET /templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.ListActiveTemplates()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"templates": templates})
}

// GET /templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid template ID", nil)
		return
	}

	template, err := h.templateService.GetTemplate(templateID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"template": template})
}

// POST /templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req services.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	template, err := h.templateService.CreateTemplate(&req, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"template": template})
}

// PUT /templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid template ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req services.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	template, err := h.templateService.UpdateTemplate(templateID, &req, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"template": template})
}

// DELETE /templates/:id
func (h *TemplateHandler) DeactivateTemplate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid template ID", nil)
		return
	}

	userID, ok := actorID(c)
	if !ok {
		return
	}

	template, err := h.templateService.DeactivateTemplate(templateID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"template": template})
}
