// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate fills the primary key when the database does not (sqlite in tests).
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums

type RoleSlug string

const (
	RoleOwner  RoleSlug = "owner"
	RoleMember RoleSlug = "member"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type LicenseType string

const (
	LicenseTypeCommunity  LicenseType = "community"
	LicenseTypeTrial      LicenseType = "trial"
	LicenseTypeEnterprise LicenseType = "enterprise"
	LicenseTypeCustom     LicenseType = "custom"
)

func (t LicenseType) Valid() bool {
	switch t {
	case LicenseTypeCommunity, LicenseTypeTrial, LicenseTypeEnterprise, LicenseTypeCustom:
		return true
	}
	return false
}

type LicenseStatus string

const (
	LicenseStatusPending   LicenseStatus = "pending"
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusSuspended LicenseStatus = "suspended"
	LicenseStatusExpired   LicenseStatus = "expired"
	LicenseStatusRevoked   LicenseStatus = "revoked"
)

// Terminal reports whether no further transition may leave this status.
func (s LicenseStatus) Terminal() bool {
	return s == LicenseStatusRevoked || s == LicenseStatusExpired
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

type ApprovalType string

const (
	ApprovalTypeCreation     ApprovalType = "creation"
	ApprovalTypeRenewal      ApprovalType = "renewal"
	ApprovalTypeModification ApprovalType = "modification"
)

type ApprovalPriority string

const (
	PriorityLow      ApprovalPriority = "low"
	PriorityMedium   ApprovalPriority = "medium"
	PriorityHigh     ApprovalPriority = "high"
	PriorityCritical ApprovalPriority = "critical"
)

// Rank orders priorities low < medium < high < critical. Unknown values
// rank above critical so they never satisfy a maxPriority criterion.
func (p ApprovalPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return 4
}
