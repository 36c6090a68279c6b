// internal/services/template_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
	"github.com/licensehub/license-backend/internal/utils"
)

// TemplateService manages the reusable license templates new licenses are
// minted from.
type TemplateService struct {
	templateStore *store.TemplateStore
	accessService *AccessService
}

type TemplateRequest struct {
	Name                string             `json:"name" validate:"required,min=3,max=100"`
	Description         string             `json:"description,omitempty"`
	LicenseType         models.LicenseType `json:"license_type" validate:"required,license_type"`
	Features            models.JSONB       `json:"features,omitempty"`
	Limits              models.JSONB       `json:"limits,omitempty"`
	DefaultValidityDays int                `json:"default_validity_days,omitempty"`
	RequiresApproval    *bool              `json:"requires_approval,omitempty"`
}

func NewTemplateService(templateStore *store.TemplateStore, accessService *AccessService) *TemplateService {
	return &TemplateService{
		templateStore: templateStore,
		accessService: accessService,
	}
}

func (s *TemplateService) CreateTemplate(req *TemplateRequest, createdBy uuid.UUID) (*models.LicenseTemplate, error) {
	if _, err := s.accessService.ValidateOwnerPermission(createdBy, models.PermissionManageTemplates); err != nil {
		return nil, err
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	template := &models.LicenseTemplate{
		Name:                req.Name,
		Description:         req.Description,
		Type:                req.LicenseType,
		Features:            req.Features,
		Limits:              req.Limits,
		DefaultValidityDays: req.DefaultValidityDays,
		RequiresApproval:    true,
		IsActive:            true,
		CreatedBy:           createdBy,
	}
	if template.DefaultValidityDays <= 0 {
		template.DefaultValidityDays = 365
	}
	if req.RequiresApproval != nil {
		template.RequiresApproval = *req.RequiresApproval
	}

	if err := s.templateStore.Create(template); err != nil {
		return nil, err
	}

	return template, nil
}

func (s *TemplateService) UpdateTemplate(templateID uuid.UUID, req *TemplateRequest, updatedBy uuid.UUID) (*models.LicenseTemplate, error) {
	if _, err := s.accessService.ValidateOwnerPermission(updatedBy, models.PermissionManageTemplates); err != nil {
		return nil, err
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	template, err := s.templateStore.FindByID(templateID)
	if err != nil {
		return nil, err
	}

	template.Name = req.Name
	template.Description = req.Description
	template.Type = req.LicenseType
	template.Features = req.Features
	template.Limits = req.Limits
	if req.DefaultValidityDays > 0 {
		template.DefaultValidityDays = req.DefaultValidityDays
	}
	if req.RequiresApproval != nil {
		template.RequiresApproval = *req.RequiresApproval
	}

	if err := s.templateStore.Save(template); err != nil {
		return nil, err
	}

	return template, nil
}

// DeactivateTemplate soft-disables a template so no further licenses can be
// minted from it. Existing licenses are unaffected.
func (s *TemplateService) DeactivateTemplate(templateID, actorID uuid.UUID) (*models.LicenseTemplate, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionManageTemplates); err != nil {
		return nil, err
	}

	template, err := s.templateStore.FindByID(templateID)
	if err != nil {
		return nil, err
	}

	template.IsActive = false
	if err := s.templateStore.Save(template); err != nil {
		return nil, err
	}

	return template, nil
}

func (s *TemplateService) GetTemplate(templateID uuid.UUID) (*models.LicenseTemplate, error) {
	return s.templateStore.FindByID(templateID)
}

func (s *TemplateService) ListActiveTemplates() ([]models.LicenseTemplate, error) {
	return s.templateStore.FindActive()
}
