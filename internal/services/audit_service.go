// internal/services/audit_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
)

// Clock supplies the current time. Injectable so tests can pin "now".
type Clock func() time.Time

// AuditService appends license transition history. Writes are best-effort:
// a failed append is logged and never rolls back the state change that
// triggered it.
type AuditService struct {
	auditStore *store.AuditStore
	now        Clock
}

func NewAuditService(auditStore *store.AuditStore) *AuditService {
	return &AuditService{
		auditStore: auditStore,
		now:        time.Now,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *AuditService) WithClock(clock Clock) *AuditService {
	s.now = clock
	return s
}

// Record appends an audit entry for a license transition. previous and next
// should hold only the fields the transition changed; Record wraps them in a
// fixed identity envelope so unrelated mutable fields never leak into history.
func (s *AuditService) Record(license *models.License, action string, performedBy *uuid.UUID, previous, next models.JSONB, reason string) {
	entry := &models.LicenseAuditLog{
		LicenseID:     license.ID,
		Action:        action,
		PerformedBy:   performedBy,
		PreviousState: s.envelope(license, previous),
		NewState:      s.envelope(license, next),
		Reason:        reason,
	}

	if err := s.auditStore.Append(entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"license_id": license.ID,
			"action":     action,
		}).Error("Failed to append license audit entry")
		return
	}

	logrus.WithFields(logrus.Fields{
		"license_id": license.ID,
		"action":     action,
	}).Info("License transition recorded")
}

func (s *AuditService) envelope(license *models.License, changed models.JSONB) models.JSONB {
	snapshot := models.JSONB{
		"license_id":  license.ID.String(),
		"license_key": license.Key,
		"captured_at": s.now().UTC().Format(time.RFC3339),
	}
	for field, value := range changed {
		snapshot[field] = value
	}
	return snapshot
}

func (s *AuditService) History(licenseID uuid.UUID) ([]models.LicenseAuditLog, error) {
	return s.auditStore.ListByLicense(licenseID)
}

func (s *AuditService) Recent(limit int) ([]models.LicenseAuditLog, error) {
	return s.auditStore.Recent(limit)
}

// PurgeExpired removes audit rows older than the retention window.
func (s *AuditService) PurgeExpired(retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.auditStore.PurgeOlderThan(cutoff)
}
