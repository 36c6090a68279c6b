// internal/store/approval_store.go
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/utils"
)

type ApprovalStore struct {
	db *gorm.DB
}

func NewApprovalStore(db *gorm.DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func (s *ApprovalStore) Create(approval *models.LicenseApproval) error {
	if err := s.db.Create(approval).Error; err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

func (s *ApprovalStore) Save(approval *models.LicenseApproval) error {
	if err := s.db.Save(approval).Error; err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

func (s *ApprovalStore) FindByID(id uuid.UUID) (*models.LicenseApproval, error) {
	var approval models.LicenseApproval
	if err := s.db.Preload("Requester").First(&approval, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("approval %s not found", id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &approval, nil
}

func (s *ApprovalStore) FindByLicense(licenseID uuid.UUID) ([]models.LicenseApproval, error) {
	var approvals []models.LicenseApproval
	if err := s.db.Where("license_id = ?", licenseID).
		Order("created_at DESC").
		Find(&approvals).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch license approvals: %w", err)
	}
	return approvals, nil
}

func (s *ApprovalStore) FindPending() ([]models.LicenseApproval, error) {
	var approvals []models.LicenseApproval
	if err := s.db.Where("status = ?", models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&approvals).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pending approvals: %w", err)
	}
	return approvals, nil
}

// FindPendingPage returns the pending approval queue ordered by priority
// (critical first) then submission time.
func (s *ApprovalStore) FindPendingPage(params utils.PaginationParams) ([]models.LicenseApproval, int64, error) {
	query := s.db.Model(&models.LicenseApproval{}).
		Where("status = ?", models.ApprovalStatusPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}

	var approvals []models.LicenseApproval
	if err := utils.ApplyPagination(query, params).
		Order("CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at ASC").
		Preload("Requester").
		Find(&approvals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approval queue: %w", err)
	}

	return approvals, total, nil
}

// ExpirePending bulk-moves pending approvals whose deadline elapsed to the
// expired status and reports how many rows changed. The transition is
// monotonic so re-running the sweep is safe.
func (s *ApprovalStore) ExpirePending(now time.Time) (int64, error) {
	result := s.db.Model(&models.LicenseApproval{}).
		Where("status = ? AND expires_at < ?", models.ApprovalStatusPending, now).
		Update("status", models.ApprovalStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire approvals: %w", result.Error)
	}
	return result.RowsAffected, nil
}
