// internal/store/owner_store.go
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

type OwnerStore struct {
	db *gorm.DB
}

func NewOwnerStore(db *gorm.DB) *OwnerStore {
	return &OwnerStore{db: db}
}

func (s *OwnerStore) FindByUserID(userID uuid.UUID) (*models.OwnerManagement, error) {
	var management models.OwnerManagement
	if err := s.db.Where("user_id = ?", userID).First(&management).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("owner management for user %s not found", userID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &management, nil
}

// EnsureDefaults lazily bootstraps an OwnerManagement row with permissive
// defaults. The insert is an upsert on user_id so two concurrent first
// permission checks cannot double-insert; the loser of the race reads the
// winner's row.
func (s *OwnerStore) EnsureDefaults(userID uuid.UUID) (*models.OwnerManagement, error) {
	management := models.OwnerManagement{
		UserID:                 userID,
		CanCreateLicenses:      true,
		CanApproveLicenses:     true,
		CanRevokeLicenses:      true,
		CanManageTemplates:     true,
		CanDelegatePermissions: true,
		CanViewAuditLogs:       true,
		CanManageSubscriptions: true,
		ApprovalTimeoutDays:    7,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&management).Error; err != nil {
		return nil, fmt.Errorf("failed to bootstrap owner management: %w", err)
	}

	return s.FindByUserID(userID)
}

func (s *OwnerStore) Save(management *models.OwnerManagement) error {
	if err := s.db.Save(management).Error; err != nil {
		return fmt.Errorf("failed to save owner management: %w", err)
	}
	return nil
}

// FindAutoApprovers returns all owner records with auto-approval switched on,
// oldest first, so first-match-wins is deterministic.
func (s *OwnerStore) FindAutoApprovers() ([]models.OwnerManagement, error) {
	var managements []models.OwnerManagement
	if err := s.db.Where("auto_approval_enabled = ?", true).
		Order("created_at ASC").
		Find(&managements).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch auto-approval owners: %w", err)
	}
	return managements, nil
}

func (s *OwnerStore) FindAllOwners() ([]models.User, error) {
	var owners []models.User
	if err := s.db.Where("role = ? AND status = ?", models.RoleOwner, models.UserStatusActive).
		Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch owners: %w", err)
	}
	return owners, nil
}
