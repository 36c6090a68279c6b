// internal/store/audit_store.go
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/models"
)

// AuditStore appends license transition history. Rows are never updated;
// the only delete path is the retention purge.
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(entry *models.LicenseAuditLog) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) ListByLicense(licenseID uuid.UUID) ([]models.LicenseAuditLog, error) {
	var entries []models.LicenseAuditLog
	if err := s.db.Where("license_id = ?", licenseID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch audit entries: %w", err)
	}
	return entries, nil
}

func (s *AuditStore) Recent(limit int) ([]models.LicenseAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.LicenseAuditLog
	if err := s.db.Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent audit entries: %w", err)
	}
	return entries, nil
}

// PurgeOlderThan hard-deletes audit rows past the retention horizon and
// returns the number removed.
func (s *AuditStore) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.LicenseAuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
