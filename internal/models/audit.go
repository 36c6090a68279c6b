// internal/models/audit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseAuditLog is an append-only record of a license state transition.
// Rows are never updated or deleted except by the retention purge. State
// snapshots hold only the changed fields plus a fixed identity envelope, so
// unrelated mutable fields never leak into history.
type LicenseAuditLog struct {
	BaseModel
	LicenseID     uuid.UUID  `json:"license_id" gorm:"type:uuid;not null;index"`
	Action        string     `json:"action" gorm:"size:50;not null;index"`
	PerformedBy   *uuid.UUID `json:"performed_by" gorm:"type:uuid;index"`
	PreviousState JSONB      `json:"previous_state" gorm:"type:jsonb"`
	NewState      JSONB      `json:"new_state" gorm:"type:jsonb"`
	Reason        string     `json:"reason,omitempty" gorm:"type:text"`
	IPAddress     string     `json:"ip_address,omitempty" gorm:"size:45"`

	// Relationships
	Performer *User `json:"performer,omitempty" gorm:"foreignKey:PerformedBy"`
}

// Audit actions recorded by the lifecycle orchestrator.
const (
	AuditActionCreated   = "created"
	AuditActionApproved  = "approved"
	AuditActionRejected  = "rejected"
	AuditActionActivated = "activated"
	AuditActionRenewed   = "renewed"
	AuditActionSuspended = "suspended"
	AuditActionRevoked   = "revoked"
	AuditActionExpired   = "expired"
)

// OwnerNotification is a best-effort in-app notification row for owners.
type OwnerNotification struct {
	BaseModel
	OwnerID             uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Type                string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string     `json:"title" gorm:"size:255;not null"`
	Message             string     `json:"message" gorm:"type:text;not null"`
	Priority            string     `json:"priority" gorm:"type:varchar(20);default:'medium';index"`
	Status              string     `json:"status" gorm:"type:varchar(20);default:'unread';index"`
	RelatedResourceType string     `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID `json:"related_resource_id" gorm:"type:uuid"`
	ReadAt              *time.Time `json:"read_at"`
}
