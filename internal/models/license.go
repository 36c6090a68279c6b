// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// License is a time-bounded grant of named features and limits to a user.
// Invariants maintained by the services layer: ValidFrom <= ValidUntil, and
// Status may only be active while ApprovalStatus is approved.
type License struct {
	BaseModel
	Key             string         `json:"key" gorm:"uniqueIndex;size:128;not null"`
	Type            LicenseType    `json:"type" gorm:"type:varchar(20);not null;index"`
	Status          LicenseStatus  `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	IssuedTo        uuid.UUID      `json:"issued_to" gorm:"type:uuid;not null;index"`
	IssuedBy        uuid.UUID      `json:"issued_by" gorm:"type:uuid;not null"`
	ValidFrom       time.Time      `json:"valid_from" gorm:"not null"`
	ValidUntil      time.Time      `json:"valid_until" gorm:"not null;index"`
	Features        JSONB          `json:"features" gorm:"type:jsonb"`
	Limits          JSONB          `json:"limits" gorm:"type:jsonb"`
	ApprovalStatus  ApprovalStatus `json:"approval_status" gorm:"type:varchar(20);default:'pending';index"`
	ApprovedBy      *uuid.UUID     `json:"approved_by" gorm:"type:uuid"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	SubscriptionID  *string        `json:"subscription_id,omitempty" gorm:"size:255"`
	ParentLicenseID *uuid.UUID     `json:"parent_license_id,omitempty" gorm:"type:uuid"`
	Metadata        JSONB          `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Holder    User              `json:"holder,omitempty" gorm:"foreignKey:IssuedTo"`
	Issuer    User              `json:"issuer,omitempty" gorm:"foreignKey:IssuedBy"`
	Approvals []LicenseApproval `json:"approvals,omitempty" gorm:"foreignKey:LicenseID;constraint:OnDelete:CASCADE"`
	AuditLogs []LicenseAuditLog `json:"audit_logs,omitempty" gorm:"foreignKey:LicenseID;constraint:OnDelete:CASCADE"`
}

// HasFeature reports whether the license grants the named capability. A true
// boolean, a positive number, or any other non-nil value counts as granted.
func (l *License) HasFeature(name string) bool {
	if l.Features == nil {
		return false
	}
	value, ok := l.Features[name]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v > 0
	case int:
		return v > 0
	case int64:
		return v > 0
	}
	return true
}

// LimitFor returns the numeric quota for the named limit. The second return
// is false when the limit is unset or not a number; -1 means unlimited.
func (l *License) LimitFor(name string) (float64, bool) {
	if l.Limits == nil {
		return 0, false
	}
	value, ok := l.Limits[name]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// LicenseTemplate carries reusable defaults for new licenses. Templates are
// read-only at use time; editing one never touches licenses minted from it.
type LicenseTemplate struct {
	BaseModel
	Name                string      `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Type                LicenseType `json:"type" gorm:"type:varchar(20);not null"`
	Description         string      `json:"description" gorm:"type:text"`
	Features            JSONB       `json:"features" gorm:"type:jsonb"`
	Limits              JSONB       `json:"limits" gorm:"type:jsonb"`
	DefaultValidityDays int         `json:"default_validity_days"`
	RequiresApproval    bool        `json:"requires_approval"`
	IsActive            bool        `json:"is_active"`
	CreatedBy           uuid.UUID   `json:"created_by" gorm:"type:uuid"`
}
