// internal/store/license_store.go
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

// LicenseStore owns License rows and their relations. There is no version
// column; concurrent status updates on the same license race last-write-wins
// and callers needing stronger ordering must serialize externally.
type LicenseStore struct {
	db *gorm.DB
}

func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

func (s *LicenseStore) Create(license *models.License) error {
	if err := s.db.Create(license).Error; err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}
	return nil
}

func (s *LicenseStore) Save(license *models.License) error {
	if err := s.db.Save(license).Error; err != nil {
		return fmt.Errorf("failed to save license: %w", err)
	}
	return nil
}

func (s *LicenseStore) FindByID(id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Holder").First(&license, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("license %s not found", id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

func (s *LicenseStore) FindByKey(key string) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Holder").Where("key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("license key not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

func (s *LicenseStore) FindByUser(userID uuid.UUID) ([]models.License, error) {
	var licenses []models.License
	if err := s.db.Where("issued_to = ?", userID).
		Order("created_at DESC").
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user licenses: %w", err)
	}
	return licenses, nil
}

// FindActive returns licenses that are active, approved and inside their
// validity window at the given instant.
func (s *LicenseStore) FindActive(now time.Time) ([]models.License, error) {
	var licenses []models.License
	if err := s.db.
		Where("status = ? AND approval_status = ? AND valid_from <= ? AND valid_until >= ?",
			models.LicenseStatusActive, models.ApprovalStatusApproved, now, now).
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch active licenses: %w", err)
	}
	return licenses, nil
}

// FindExpired returns active or pending licenses whose validity window has
// already elapsed. The expiry sweep marks these as expired.
func (s *LicenseStore) FindExpired(now time.Time) ([]models.License, error) {
	var licenses []models.License
	if err := s.db.
		Where("status IN (?, ?) AND valid_until < ?",
			models.LicenseStatusActive, models.LicenseStatusPending, now).
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch expired licenses: %w", err)
	}
	return licenses, nil
}

func (s *LicenseStore) FindPendingApproval() ([]models.License, error) {
	var licenses []models.License
	if err := s.db.
		Where("approval_status = ?", models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pending licenses: %w", err)
	}
	return licenses, nil
}

func (s *LicenseStore) UpdateStatus(id uuid.UUID, status models.LicenseStatus) error {
	result := s.db.Model(&models.License{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update license status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("license %s not found", id)
	}
	return nil
}

func (s *LicenseStore) UpdateApprovalStatus(id uuid.UUID, status models.ApprovalStatus, approvedBy *uuid.UUID, approvedAt *time.Time, rejectionReason string) error {
	updates := map[string]interface{}{
		"approval_status":  status,
		"approved_by":      approvedBy,
		"approved_at":      approvedAt,
		"rejection_reason": rejectionReason,
	}
	result := s.db.Model(&models.License{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update license approval status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("license %s not found", id)
	}
	return nil
}

// Delete removes a license and cascades to its approvals and audit rows.
// Approvals and audit entries only back-reference a license, never the other
// way around, so the cascade runs one direction.
func (s *LicenseStore) Delete(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("license_id = ?", id).Delete(&models.LicenseApproval{}).Error; err != nil {
			return fmt.Errorf("failed to delete license approvals: %w", err)
		}
		if err := tx.Where("license_id = ?", id).Delete(&models.LicenseAuditLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete license audit logs: %w", err)
		}
		result := tx.Delete(&models.License{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete license: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("license %s not found", id)
		}
		return nil
	})
}

func (s *LicenseStore) CountByStatus() (map[models.LicenseStatus]int64, error) {
	type row struct {
		Status models.LicenseStatus
		Count  int64
	}
	var rows []row
	if err := s.db.Model(&models.License{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count licenses by status: %w", err)
	}
	counts := make(map[models.LicenseStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *LicenseStore) CountByType() (map[models.LicenseType]int64, error) {
	type row struct {
		Type  models.LicenseType
		Count int64
	}
	var rows []row
	if err := s.db.Model(&models.License{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count licenses by type: %w", err)
	}
	counts := make(map[models.LicenseType]int64, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
