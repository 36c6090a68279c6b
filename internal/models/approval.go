// internal/models/approval.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseApproval is a pending decision record gating a license state change.
// LicenseID may reference a license that does not exist yet (creation flow).
// Once status leaves pending the row is immutable apart from soft deletion.
type LicenseApproval struct {
	BaseModel
	LicenseID      uuid.UUID        `json:"license_id" gorm:"type:uuid;not null;index"`
	RequestedBy    uuid.UUID        `json:"requested_by" gorm:"type:uuid;not null;index"`
	ApprovalType   ApprovalType     `json:"approval_type" gorm:"type:varchar(20);not null"`
	RequestData    JSONB            `json:"request_data" gorm:"type:jsonb"`
	Status         ApprovalStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Priority       ApprovalPriority `json:"priority" gorm:"type:varchar(20);default:'medium';index"`
	ExpiresAt      time.Time        `json:"expires_at" gorm:"not null;index"`
	ProcessedBy    *uuid.UUID       `json:"processed_by" gorm:"type:uuid"`
	ProcessedAt    *time.Time       `json:"processed_at"`
	DecisionReason string           `json:"decision_reason,omitempty" gorm:"type:text"`

	// Relationships
	Requester User  `json:"requester,omitempty" gorm:"foreignKey:RequestedBy"`
	Processor *User `json:"processor,omitempty" gorm:"foreignKey:ProcessedBy"`
}

func (a *LicenseApproval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

// RequestValidityDays extracts the requested validity window from the
// request data echo, if the submitter supplied one.
func (a *LicenseApproval) RequestValidityDays() (int, bool) {
	if a.RequestData == nil {
		return 0, false
	}
	value, ok := a.RequestData["validity_days"]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// RequestLicenseType extracts the requested license type from the request
// data echo.
func (a *LicenseApproval) RequestLicenseType() (LicenseType, bool) {
	if a.RequestData == nil {
		return "", false
	}
	value, ok := a.RequestData["license_type"].(string)
	if !ok {
		return "", false
	}
	return LicenseType(value), true
}
