// internal/services/license_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
	"github.com/licensehub/license-backend/internal/utils"
)

// LicenseService orchestrates the license lifecycle:
//
//	pending --(approve + activate)--> active --(suspend)--> suspended
//	suspended --(reactivate)--> active
//	active --(revoke)--> revoked (terminal)
//
// A license whose validity window elapsed is observed as expired by the
// validation engine; the scheduler sweep also writes the status down.
// Every permission check runs before any side effect.
type LicenseService struct {
	licenseStore    *store.LicenseStore
	templateStore   *store.TemplateStore
	approvalService *ApprovalService
	accessService   *AccessService
	auditService    *AuditService
	licensing       config.LicensingConfig
	now             Clock
}

type CreateLicenseRequest struct {
	LicenseType     models.LicenseType `json:"license_type" validate:"required,license_type"`
	IssuedTo        uuid.UUID          `json:"issued_to" validate:"required"`
	TemplateID      *uuid.UUID         `json:"template_id,omitempty"`
	Features        models.JSONB       `json:"features,omitempty"`
	Limits          models.JSONB       `json:"limits,omitempty"`
	ValidityDays    *int               `json:"validity_days,omitempty"`
	CustomPrefix    string             `json:"custom_prefix,omitempty"`
	SkipApproval    bool               `json:"skip_approval,omitempty"`
	ParentLicenseID *uuid.UUID         `json:"parent_license_id,omitempty"`
	Metadata        models.JSONB       `json:"metadata,omitempty"`
}

// LicenseReport is the read-only aggregation returned to owners.
type LicenseReport struct {
	GeneratedAt    time.Time                      `json:"generated_at"`
	GeneratedBy    uuid.UUID                      `json:"generated_by"`
	TotalLicenses  int64                          `json:"total_licenses"`
	CountsByStatus map[models.LicenseStatus]int64 `json:"counts_by_status"`
	CountsByType   map[models.LicenseType]int64   `json:"counts_by_type"`
	RecentActivity []models.LicenseAuditLog       `json:"recent_activity"`
}

func NewLicenseService(
	licenseStore *store.LicenseStore,
	templateStore *store.TemplateStore,
	approvalService *ApprovalService,
	accessService *AccessService,
	auditService *AuditService,
	licensing config.LicensingConfig,
) *LicenseService {
	return &LicenseService{
		licenseStore:    licenseStore,
		templateStore:   templateStore,
		approvalService: approvalService,
		accessService:   accessService,
		auditService:    auditService,
		licensing:       licensing,
		now:             time.Now,
	}
}

func (s *LicenseService) WithClock(clock Clock) *LicenseService {
	s.now = clock
	return s
}

// CreateLicense mints a new license in pending/pending state. When the
// request skips approval, or the resolved template does not require one, the
// license is approved on the spot; otherwise a creation approval is
// submitted and the license stays pending. Activation is always a separate
// step.
func (s *LicenseService) CreateLicense(req *CreateLicenseRequest, createdBy uuid.UUID) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(createdBy, models.PermissionCreateLicenses); err != nil {
		return nil, err
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.accessService.FindUser(req.IssuedTo); err != nil {
		return nil, err
	}

	var template *models.LicenseTemplate
	if req.TemplateID != nil {
		var err error
		template, err = s.templateStore.FindByID(*req.TemplateID)
		if err != nil {
			return nil, err
		}
	}

	features := mergeBags(templateFeatures(template), req.Features)
	limits := mergeBags(templateLimits(template), req.Limits)

	validityDays := s.licensing.DefaultValidityDays
	if template != nil && template.DefaultValidityDays > 0 {
		validityDays = template.DefaultValidityDays
	}
	if req.ValidityDays != nil && *req.ValidityDays > 0 {
		validityDays = *req.ValidityDays
	}

	key, err := utils.GenerateLicenseKey(req.LicenseType, req.CustomPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	now := s.now()
	license := &models.License{
		Key:             key,
		Type:            req.LicenseType,
		Status:          models.LicenseStatusPending,
		IssuedTo:        req.IssuedTo,
		IssuedBy:        createdBy,
		ValidFrom:       now,
		ValidUntil:      now.AddDate(0, 0, validityDays),
		Features:        features,
		Limits:          limits,
		ApprovalStatus:  models.ApprovalStatusPending,
		ParentLicenseID: req.ParentLicenseID,
		Metadata:        req.Metadata,
	}

	if err := s.licenseStore.Create(license); err != nil {
		return nil, err
	}

	s.auditService.Record(license, models.AuditActionCreated, &createdBy, nil, models.JSONB{
		"status":          string(license.Status),
		"approval_status": string(license.ApprovalStatus),
		"type":            string(license.Type),
		"valid_until":     license.ValidUntil,
	}, "")

	requiresApproval := !req.SkipApproval && (template == nil || template.RequiresApproval)

	if !requiresApproval {
		if err := s.approveLicense(license, createdBy, "Auto-approved"); err != nil {
			return nil, err
		}
		return license, nil
	}

	approval, err := s.approvalService.SubmitApproval(license.ID, createdBy, models.ApprovalTypeCreation, models.JSONB{
		"license_type":  string(req.LicenseType),
		"issued_to":     req.IssuedTo.String(),
		"validity_days": validityDays,
	}, models.PriorityMedium)
	if err != nil {
		return nil, err
	}

	// The submit step may have auto-approved against owner criteria.
	if err := s.applyApprovalOutcome(approval); err != nil {
		return nil, err
	}

	return s.licenseStore.FindByID(license.ID)
}

// ActivateLicense turns an approved license active. The key is re-checked
// structurally before the store lookup; approval is a hard precondition.
func (s *LicenseService) ActivateLicense(key string, userID uuid.UUID) (*models.License, error) {
	if format := utils.ValidateLicenseKeyFormat(key); !format.Valid {
		return nil, apperrors.InvalidState("malformed license key: %s", format.Reason)
	}

	license, err := s.licenseStore.FindByKey(key)
	if err != nil {
		return nil, err
	}

	if license.ApprovalStatus != models.ApprovalStatusApproved {
		return nil, apperrors.InvalidState("license cannot be activated before it is approved (approval status: %s)", license.ApprovalStatus)
	}

	if license.Status.Terminal() {
		return nil, apperrors.InvalidState("license is %s and cannot be activated", license.Status)
	}

	now := s.now()
	if now.After(license.ValidUntil) {
		return nil, apperrors.Expired("license validity ended at %s", license.ValidUntil.Format(time.RFC3339))
	}

	previous := license.Status
	if err := s.licenseStore.UpdateStatus(license.ID, models.LicenseStatusActive); err != nil {
		return nil, err
	}
	license.Status = models.LicenseStatusActive

	s.auditService.Record(license, models.AuditActionActivated, &userID,
		models.JSONB{"status": string(previous)},
		models.JSONB{"status": string(models.LicenseStatusActive)},
		"")

	return license, nil
}

// RenewLicense resets the validity window and forces the license active.
// The window length comes from configuration rather than the original term.
// A revoked license stays revoked; an unapproved one cannot be forced active
// without breaking the active-implies-approved invariant.
func (s *LicenseService) RenewLicense(licenseID, renewedBy uuid.UUID) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(renewedBy, models.PermissionCreateLicenses); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.Status == models.LicenseStatusRevoked {
		return nil, apperrors.InvalidState("revoked licenses cannot be renewed")
	}
	if license.ApprovalStatus != models.ApprovalStatusApproved {
		return nil, apperrors.InvalidState("license cannot be renewed before it is approved")
	}

	now := s.now()
	previous := models.JSONB{
		"status":      string(license.Status),
		"valid_from":  license.ValidFrom,
		"valid_until": license.ValidUntil,
	}

	license.ValidFrom = now
	license.ValidUntil = now.AddDate(0, 0, s.licensing.RenewalDays)
	license.Status = models.LicenseStatusActive

	if err := s.licenseStore.Save(license); err != nil {
		return nil, err
	}

	s.auditService.Record(license, models.AuditActionRenewed, &renewedBy, previous, models.JSONB{
		"status":      string(license.Status),
		"valid_from":  license.ValidFrom,
		"valid_until": license.ValidUntil,
	}, "")

	return license, nil
}

// SuspendLicense pauses an active license.
func (s *LicenseService) SuspendLicense(licenseID, actorID uuid.UUID, reason string) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionRevokeLicenses); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusActive {
		return nil, apperrors.InvalidState("only active licenses can be suspended (status: %s)", license.Status)
	}

	if err := s.licenseStore.UpdateStatus(license.ID, models.LicenseStatusSuspended); err != nil {
		return nil, err
	}
	license.Status = models.LicenseStatusSuspended

	s.auditService.Record(license, models.AuditActionSuspended, &actorID,
		models.JSONB{"status": string(models.LicenseStatusActive)},
		models.JSONB{"status": string(models.LicenseStatusSuspended)},
		reason)

	return license, nil
}

// ReactivateLicense is the direct status write back from suspended.
func (s *LicenseService) ReactivateLicense(licenseID, actorID uuid.UUID) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionRevokeLicenses); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusSuspended {
		return nil, apperrors.InvalidState("only suspended licenses can be reactivated (status: %s)", license.Status)
	}

	if err := s.licenseStore.UpdateStatus(license.ID, models.LicenseStatusActive); err != nil {
		return nil, err
	}
	license.Status = models.LicenseStatusActive

	s.auditService.Record(license, models.AuditActionActivated, &actorID,
		models.JSONB{"status": string(models.LicenseStatusSuspended)},
		models.JSONB{"status": string(models.LicenseStatusActive)},
		"Reactivated after suspension")

	return license, nil
}

// RevokeLicense terminally revokes a license. Revocation is not
// re-enterable.
func (s *LicenseService) RevokeLicense(licenseID, actorID uuid.UUID, reason string) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionRevokeLicenses); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.Status.Terminal() {
		return nil, apperrors.InvalidState("license is already %s", license.Status)
	}

	previous := license.Status
	if err := s.licenseStore.UpdateStatus(license.ID, models.LicenseStatusRevoked); err != nil {
		return nil, err
	}
	license.Status = models.LicenseStatusRevoked

	s.auditService.Record(license, models.AuditActionRevoked, &actorID,
		models.JSONB{"status": string(previous)},
		models.JSONB{"status": string(models.LicenseStatusRevoked)},
		reason)

	return license, nil
}

// SubmitLicenseRequest files a renewal or modification approval against an
// existing license. The license itself is untouched until the approval is
// processed.
func (s *LicenseService) SubmitLicenseRequest(licenseID, requestedBy uuid.UUID, approvalType models.ApprovalType, requestData models.JSONB, priority models.ApprovalPriority) (*models.LicenseApproval, error) {
	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if err := s.accessService.ValidateLicenseAccess(requestedBy, license.IssuedTo); err != nil {
		return nil, err
	}

	return s.approvalService.SubmitApproval(licenseID, requestedBy, approvalType, requestData, priority)
}

// ProcessApproval applies a manual approval decision and then, as a
// separate idempotent step, mirrors the outcome onto the license record.
// The license status itself is untouched: an approved creation still needs
// an explicit activation.
func (s *LicenseService) ProcessApproval(approvalID uuid.UUID, decision ApprovalDecision, reason string, processedBy uuid.UUID) (*models.LicenseApproval, error) {
	if _, err := s.accessService.ValidateOwnerPermission(processedBy, models.PermissionApproveLicenses); err != nil {
		return nil, err
	}

	approval, err := s.approvalService.ProcessApproval(approvalID, decision, reason, processedBy)
	if err != nil {
		return nil, err
	}

	if err := s.applyApprovalOutcome(approval); err != nil {
		return nil, err
	}

	return approval, nil
}

// applyApprovalOutcome mirrors a decided approval onto its license. Only a
// license still awaiting approval is touched, so re-applying the same
// outcome is a no-op.
func (s *LicenseService) applyApprovalOutcome(approval *models.LicenseApproval) error {
	if approval.IsPending() || approval.Status == models.ApprovalStatusExpired {
		return nil
	}

	license, err := s.licenseStore.FindByID(approval.LicenseID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// Approval may pre-reference a license that was never created.
			return nil
		}
		return err
	}

	if license.ApprovalStatus != models.ApprovalStatusPending {
		return nil
	}

	switch approval.Status {
	case models.ApprovalStatusApproved:
		if err := s.licenseStore.UpdateApprovalStatus(license.ID, models.ApprovalStatusApproved, approval.ProcessedBy, approval.ProcessedAt, ""); err != nil {
			return err
		}
		license.ApprovalStatus = models.ApprovalStatusApproved
		s.auditService.Record(license, models.AuditActionApproved, approval.ProcessedBy,
			models.JSONB{"approval_status": string(models.ApprovalStatusPending)},
			models.JSONB{"approval_status": string(models.ApprovalStatusApproved)},
			approval.DecisionReason)

	case models.ApprovalStatusRejected:
		if err := s.licenseStore.UpdateApprovalStatus(license.ID, models.ApprovalStatusRejected, approval.ProcessedBy, approval.ProcessedAt, approval.DecisionReason); err != nil {
			return err
		}
		license.ApprovalStatus = models.ApprovalStatusRejected
		s.auditService.Record(license, models.AuditActionRejected, approval.ProcessedBy,
			models.JSONB{"approval_status": string(models.ApprovalStatusPending)},
			models.JSONB{"approval_status": string(models.ApprovalStatusRejected)},
			approval.DecisionReason)
	}

	return nil
}

// approveLicense immediately approves a freshly created license (skip-approval
// path).
func (s *LicenseService) approveLicense(license *models.License, approvedBy uuid.UUID, reason string) error {
	now := s.now()
	if err := s.licenseStore.UpdateApprovalStatus(license.ID, models.ApprovalStatusApproved, &approvedBy, &now, ""); err != nil {
		return err
	}
	license.ApprovalStatus = models.ApprovalStatusApproved
	license.ApprovedBy = &approvedBy
	license.ApprovedAt = &now

	s.auditService.Record(license, models.AuditActionApproved, &approvedBy,
		models.JSONB{"approval_status": string(models.ApprovalStatusPending)},
		models.JSONB{"approval_status": string(models.ApprovalStatusApproved)},
		reason)

	return nil
}

// AutoProcessApprovals runs the batch auto-approval sweep and mirrors each
// outcome onto its license.
func (s *LicenseService) AutoProcessApprovals() (int, error) {
	approved, err := s.approvalService.AutoProcessApprovals()
	if err != nil {
		return 0, err
	}

	for i := range approved {
		if err := s.applyApprovalOutcome(&approved[i]); err != nil {
			logrus.WithError(err).WithField("approval_id", approved[i].ID).
				Warn("Failed to mirror auto-approval onto license")
		}
	}

	return len(approved), nil
}

// ExpireLicenses writes the expired status onto licenses whose validity
// window elapsed. Validation already treats them as invalid; this sweep just
// persists the observation. Idempotent.
func (s *LicenseService) ExpireLicenses() (int, error) {
	stale, err := s.licenseStore.FindExpired(s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		license := &stale[i]
		previous := license.Status
		if err := s.licenseStore.UpdateStatus(license.ID, models.LicenseStatusExpired); err != nil {
			logrus.WithError(err).WithField("license_id", license.ID).
				Warn("Failed to mark license expired")
			continue
		}
		license.Status = models.LicenseStatusExpired
		s.auditService.Record(license, models.AuditActionExpired, nil,
			models.JSONB{"status": string(previous)},
			models.JSONB{"status": string(models.LicenseStatusExpired)},
			"Validity window elapsed")
		expired++
	}

	return expired, nil
}

// GetLicense returns a license after an access check against its holder.
func (s *LicenseService) GetLicense(licenseID, userID uuid.UUID) (*models.License, error) {
	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if err := s.accessService.ValidateLicenseAccess(userID, license.IssuedTo); err != nil {
		return nil, err
	}

	return license, nil
}

func (s *LicenseService) GetUserLicenses(userID uuid.UUID) ([]models.License, error) {
	return s.licenseStore.FindByUser(userID)
}

// GenerateLicenseReport aggregates license counts and recent audit activity.
// Read-only; gated on the audit-log permission.
func (s *LicenseService) GenerateLicenseReport(ownerID uuid.UUID) (*LicenseReport, error) {
	if _, err := s.accessService.ValidateOwnerPermission(ownerID, models.PermissionViewAuditLogs); err != nil {
		return nil, err
	}

	countsByStatus, err := s.licenseStore.CountByStatus()
	if err != nil {
		return nil, err
	}

	countsByType, err := s.licenseStore.CountByType()
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range countsByStatus {
		total += count
	}

	recent, err := s.auditService.Recent(20)
	if err != nil {
		return nil, err
	}

	return &LicenseReport{
		GeneratedAt:    s.now(),
		GeneratedBy:    ownerID,
		TotalLicenses:  total,
		CountsByStatus: countsByStatus,
		CountsByType:   countsByType,
		RecentActivity: recent,
	}, nil
}

func templateFeatures(template *models.LicenseTemplate) models.JSONB {
	if template == nil {
		return nil
	}
	return template.Features
}

func templateLimits(template *models.LicenseTemplate) models.JSONB {
	if template == nil {
		return nil
	}
	return template.Limits
}

// mergeBags layers overrides on top of base without mutating either.
func mergeBags(base, overrides models.JSONB) models.JSONB {
	merged := models.JSONB{}
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
