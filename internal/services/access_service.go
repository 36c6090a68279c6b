// internal/services/access_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
)

// AccessService authorizes privileged license operations. The single
// elevated role is the global "owner"; finer-grained permission flags and
// delegations live on OwnerManagement.
type AccessService struct {
	db         *gorm.DB
	ownerStore *store.OwnerStore
}

// AccessContext is the resolved capability set for one actor performing one
// operation. It is computed once per call and threaded downstream instead of
// re-fetching user and management rows per check.
type AccessContext struct {
	User       *models.User
	Management *models.OwnerManagement
}

func NewAccessService(db *gorm.DB, ownerStore *store.OwnerStore) *AccessService {
	return &AccessService{
		db:         db,
		ownerStore: ownerStore,
	}
}

// FindUser is the user directory lookup consumed by this core.
func (s *AccessService) FindUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user %s not found", userID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// ValidateOwnerPermission authorizes one privileged operation. It fails
// NotFound for a missing user, Forbidden for a non-owner role, lazily
// bootstraps a default-permissive OwnerManagement row (upsert, so two racing
// first checks converge on one row), and fails Forbidden when the stored
// flag is off.
func (s *AccessService) ValidateOwnerPermission(userID uuid.UUID, permission models.OwnerPermission) (*AccessContext, error) {
	user, err := s.FindUser(userID)
	if err != nil {
		return nil, err
	}

	if !user.IsOwner() {
		return nil, apperrors.Forbidden("user %s does not have the owner role", userID)
	}

	management, err := s.ownerStore.FindByUserID(userID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		management, err = s.ownerStore.EnsureDefaults(userID)
		if err != nil {
			return nil, err
		}
	}

	if !management.HasPermission(permission) {
		return nil, apperrors.Forbidden("owner %s lacks permission %s", userID, permission)
	}

	return &AccessContext{User: user, Management: management}, nil
}

// IsDelegatedUser reports whether ownerID has delegated their permission set
// to userID.
func (s *AccessService) IsDelegatedUser(ownerID, userID uuid.UUID) (bool, error) {
	management, err := s.ownerStore.FindByUserID(ownerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return management.HasDelegated(userID), nil
}

// CanUserAccessLicense is true for the license holder, any global owner, or
// a user the holder has delegated to.
func (s *AccessService) CanUserAccessLicense(userID, licenseOwnerID uuid.UUID) (bool, error) {
	if userID == licenseOwnerID {
		return true, nil
	}

	user, err := s.FindUser(userID)
	if err != nil {
		return false, err
	}
	if user.IsOwner() {
		return true, nil
	}

	return s.IsDelegatedUser(licenseOwnerID, userID)
}

// ValidateLicenseAccess is CanUserAccessLicense raised to an error.
func (s *AccessService) ValidateLicenseAccess(userID, licenseOwnerID uuid.UUID) error {
	allowed, err := s.CanUserAccessLicense(userID, licenseOwnerID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Forbidden("user %s cannot access licenses of user %s", userID, licenseOwnerID)
	}
	return nil
}

// DelegatePermissions adds a delegate to the owner's delegation list.
func (s *AccessService) DelegatePermissions(ownerID, delegateID uuid.UUID) error {
	ctx, err := s.ValidateOwnerPermission(ownerID, models.PermissionDelegatePermissions)
	if err != nil {
		return err
	}

	if _, err := s.FindUser(delegateID); err != nil {
		return err
	}

	if ctx.Management.HasDelegated(delegateID) {
		return nil
	}

	ctx.Management.DelegatedUsers = append(ctx.Management.DelegatedUsers, delegateID.String())
	return s.ownerStore.Save(ctx.Management)
}

// RevokeDelegation removes a delegate from the owner's delegation list.
func (s *AccessService) RevokeDelegation(ownerID, delegateID uuid.UUID) error {
	ctx, err := s.ValidateOwnerPermission(ownerID, models.PermissionDelegatePermissions)
	if err != nil {
		return err
	}

	id := delegateID.String()
	kept := ctx.Management.DelegatedUsers[:0]
	for _, delegated := range ctx.Management.DelegatedUsers {
		if delegated != id {
			kept = append(kept, delegated)
		}
	}
	ctx.Management.DelegatedUsers = kept
	return s.ownerStore.Save(ctx.Management)
}

// OwnerSettingsUpdate carries the mutable owner-management fields. Nil
// pointers leave the stored value untouched.
type OwnerSettingsUpdate struct {
	AutoApprovalEnabled     *bool         `json:"auto_approval_enabled,omitempty"`
	AutoApprovalCriteria    *models.JSONB `json:"auto_approval_criteria,omitempty"`
	NotificationPreferences *models.JSONB `json:"notification_preferences,omitempty"`
	ApprovalTimeoutDays     *int          `json:"approval_timeout_days,omitempty"`
}

// UpdateOwnerSettings applies a partial update to the caller's own
// management record. Owners cannot edit each other's settings here.
func (s *AccessService) UpdateOwnerSettings(ownerID uuid.UUID, update *OwnerSettingsUpdate) (*models.OwnerManagement, error) {
	ctx, err := s.ValidateOwnerPermission(ownerID, models.PermissionDelegatePermissions)
	if err != nil {
		return nil, err
	}

	management := ctx.Management
	if update.AutoApprovalEnabled != nil {
		management.AutoApprovalEnabled = *update.AutoApprovalEnabled
	}
	if update.AutoApprovalCriteria != nil {
		management.AutoApprovalCriteria = *update.AutoApprovalCriteria
	}
	if update.NotificationPreferences != nil {
		management.NotificationPreferences = *update.NotificationPreferences
	}
	if update.ApprovalTimeoutDays != nil && *update.ApprovalTimeoutDays > 0 {
		management.ApprovalTimeoutDays = *update.ApprovalTimeoutDays
	}

	if err := s.ownerStore.Save(management); err != nil {
		return nil, err
	}

	return management, nil
}

// GetOwnerSettings returns the caller's management record, bootstrapping
// defaults on first access.
func (s *AccessService) GetOwnerSettings(ownerID uuid.UUID) (*models.OwnerManagement, error) {
	user, err := s.FindUser(ownerID)
	if err != nil {
		return nil, err
	}
	if !user.IsOwner() {
		return nil, apperrors.Forbidden("user %s is not an owner", ownerID)
	}
	return s.ownerStore.EnsureDefaults(ownerID)
}
