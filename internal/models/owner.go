// internal/models/owner.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AutoApprovalCriteria keys recognized inside OwnerManagement settings.
// Absent keys impose no constraint.
const (
	CriteriaMaxValidityDays     = "max_validity_days"
	CriteriaAllowedLicenseTypes = "allowed_license_types"
	CriteriaMaxPriority         = "max_priority"
)

// OwnerManagement holds one owner's permission flags, approval settings and
// delegations. Created lazily with permissive defaults on first permission
// check, via upsert so concurrent bootstraps cannot double-insert.
type OwnerManagement struct {
	BaseModel
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`

	// Permission flags
	CanCreateLicenses      bool `json:"can_create_licenses" gorm:"default:true"`
	CanApproveLicenses     bool `json:"can_approve_licenses" gorm:"default:true"`
	CanRevokeLicenses      bool `json:"can_revoke_licenses" gorm:"default:true"`
	CanManageTemplates     bool `json:"can_manage_templates" gorm:"default:true"`
	CanDelegatePermissions bool `json:"can_delegate_permissions" gorm:"default:true"`
	CanViewAuditLogs       bool `json:"can_view_audit_logs" gorm:"default:true"`
	CanManageSubscriptions bool `json:"can_manage_subscriptions" gorm:"default:true"`

	// Settings
	AutoApprovalEnabled     bool  `json:"auto_approval_enabled" gorm:"default:false"`
	AutoApprovalCriteria    JSONB `json:"auto_approval_criteria" gorm:"type:jsonb"`
	NotificationPreferences JSONB `json:"notification_preferences" gorm:"type:jsonb"`
	ApprovalTimeoutDays     int   `json:"approval_timeout_days" gorm:"default:7"`

	// Users the owner has delegated their permission set to. Non-owning
	// reference list; deleting a delegated user does not touch this row.
	DelegatedUsers pq.StringArray `json:"delegated_users" gorm:"type:text[]"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// OwnerPermission names a single permission flag for runtime checks.
type OwnerPermission string

const (
	PermissionCreateLicenses      OwnerPermission = "canCreateLicenses"
	PermissionApproveLicenses     OwnerPermission = "canApproveLicenses"
	PermissionRevokeLicenses      OwnerPermission = "canRevokeLicenses"
	PermissionManageTemplates     OwnerPermission = "canManageTemplates"
	PermissionDelegatePermissions OwnerPermission = "canDelegatePermissions"
	PermissionViewAuditLogs       OwnerPermission = "canViewAuditLogs"
	PermissionManageSubscriptions OwnerPermission = "canManageSubscriptions"
)

// HasPermission resolves a named flag. Unknown permission names are denied.
func (m *OwnerManagement) HasPermission(permission OwnerPermission) bool {
	switch permission {
	case PermissionCreateLicenses:
		return m.CanCreateLicenses
	case PermissionApproveLicenses:
		return m.CanApproveLicenses
	case PermissionRevokeLicenses:
		return m.CanRevokeLicenses
	case PermissionManageTemplates:
		return m.CanManageTemplates
	case PermissionDelegatePermissions:
		return m.CanDelegatePermissions
	case PermissionViewAuditLogs:
		return m.CanViewAuditLogs
	case PermissionManageSubscriptions:
		return m.CanManageSubscriptions
	}
	return false
}

// HasDelegated reports whether the owner delegated their permission set to
// the given user.
func (m *OwnerManagement) HasDelegated(userID uuid.UUID) bool {
	id := userID.String()
	for _, delegated := range m.DelegatedUsers {
		if delegated == id {
			return true
		}
	}
	return false
}

// CriteriaMaxValidity returns the max validity days criterion, if set.
func (m *OwnerManagement) CriteriaMaxValidity() (int, bool) {
	if m.AutoApprovalCriteria == nil {
		return 0, false
	}
	switch v := m.AutoApprovalCriteria[CriteriaMaxValidityDays].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// CriteriaAllowedTypes returns the allowed license types criterion, if set.
func (m *OwnerManagement) CriteriaAllowedTypes() ([]LicenseType, bool) {
	if m.AutoApprovalCriteria == nil {
		return nil, false
	}
	raw, ok := m.AutoApprovalCriteria[CriteriaAllowedLicenseTypes].([]interface{})
	if !ok {
		return nil, false
	}
	types := make([]LicenseType, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			types = append(types, LicenseType(s))
		}
	}
	return types, true
}

// CriteriaMaxPriorityRank returns the rank of the max priority criterion, if set.
func (m *OwnerManagement) CriteriaMaxPriorityRank() (int, bool) {
	if m.AutoApprovalCriteria == nil {
		return 0, false
	}
	s, ok := m.AutoApprovalCriteria[CriteriaMaxPriority].(string)
	if !ok {
		return 0, false
	}
	return ApprovalPriority(s).Rank(), true
}
