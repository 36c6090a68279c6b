// internal/store/template_store.go
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) Create(template *models.LicenseTemplate) error {
	if err := s.db.Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *TemplateStore) Save(template *models.LicenseTemplate) error {
	if err := s.db.Save(template).Error; err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *TemplateStore) FindByID(id uuid.UUID) (*models.LicenseTemplate, error) {
	var template models.LicenseTemplate
	if err := s.db.First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("license template %s not found", id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &template, nil
}

func (s *TemplateStore) FindActive() ([]models.LicenseTemplate, error) {
	var templates []models.LicenseTemplate
	if err := s.db.Where("is_active = ?", true).
		Order("name ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}
	return templates, nil
}
