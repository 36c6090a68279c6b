// internal/services/approval_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
	"github.com/licensehub/license-backend/internal/utils"
)

const autoApprovalReason = "Auto-approved based on criteria"

type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "approve"
	DecisionReject  ApprovalDecision = "reject"
)

// ApprovalService manages approval requests: submission, manual decisions,
// rule-based auto-approval and expiry. It never mutates licenses; the
// lifecycle orchestrator observes approval outcomes and applies license
// state changes separately.
type ApprovalService struct {
	approvalStore       *store.ApprovalStore
	ownerStore          *store.OwnerStore
	notificationService *NotificationService
	approvalTTLDays     int
	now                 Clock
}

func NewApprovalService(approvalStore *store.ApprovalStore, ownerStore *store.OwnerStore, notificationService *NotificationService, approvalTTLDays int) *ApprovalService {
	if approvalTTLDays < 1 {
		approvalTTLDays = 7
	}
	return &ApprovalService{
		approvalStore:       approvalStore,
		ownerStore:          ownerStore,
		notificationService: notificationService,
		approvalTTLDays:     approvalTTLDays,
		now:                 time.Now,
	}
}

func (s *ApprovalService) WithClock(clock Clock) *ApprovalService {
	s.now = clock
	return s
}

// SubmitApproval creates a pending approval, immediately attempts
// auto-approval against owner criteria, and then notifies owners on a
// best-effort basis. Notification failures are logged, never surfaced.
func (s *ApprovalService) SubmitApproval(licenseID, requestedBy uuid.UUID, approvalType models.ApprovalType, requestData models.JSONB, priority models.ApprovalPriority) (*models.LicenseApproval, error) {
	approval := &models.LicenseApproval{
		LicenseID:    licenseID,
		RequestedBy:  requestedBy,
		ApprovalType: approvalType,
		RequestData:  requestData,
		Status:       models.ApprovalStatusPending,
		Priority:     priority,
		ExpiresAt:    s.now().AddDate(0, 0, s.approvalTTLDays),
	}

	if err := s.approvalStore.Create(approval); err != nil {
		return nil, err
	}

	if _, err := s.CheckAutoApproval(approval); err != nil {
		logrus.WithError(err).WithField("approval_id", approval.ID).
			Warn("Auto-approval check failed")
	}

	if s.notificationService != nil {
		if err := s.notificationService.NotifyOwnersOfApproval(approval); err != nil {
			logrus.WithError(err).WithField("approval_id", approval.ID).
				Warn("Failed to notify owners of approval request")
		}
	}

	return approval, nil
}

// ProcessApproval applies a manual decision. It fails NotFound for a missing
// approval, InvalidState once the approval left pending, and Expired past
// the deadline (marking the row expired as a side effect, which the periodic
// sweep would do anyway).
func (s *ApprovalService) ProcessApproval(approvalID uuid.UUID, decision ApprovalDecision, reason string, processedBy uuid.UUID) (*models.LicenseApproval, error) {
	approval, err := s.approvalStore.FindByID(approvalID)
	if err != nil {
		return nil, err
	}

	if !approval.IsPending() {
		return nil, apperrors.InvalidState("approval %s has already been processed (status: %s)", approvalID, approval.Status)
	}

	now := s.now()
	if now.After(approval.ExpiresAt) {
		approval.Status = models.ApprovalStatusExpired
		if err := s.approvalStore.Save(approval); err != nil {
			logrus.WithError(err).WithField("approval_id", approvalID).
				Warn("Failed to mark approval expired")
		}
		return nil, apperrors.Expired("approval %s expired at %s", approvalID, approval.ExpiresAt.Format(time.RFC3339))
	}

	switch decision {
	case DecisionApprove:
		approval.Status = models.ApprovalStatusApproved
	case DecisionReject:
		approval.Status = models.ApprovalStatusRejected
	default:
		return nil, apperrors.InvalidState("unknown approval decision %q", decision)
	}

	approval.ProcessedBy = &processedBy
	approval.ProcessedAt = &now
	approval.DecisionReason = reason

	if err := s.approvalStore.Save(approval); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"approval_id":  approvalID,
		"decision":     decision,
		"processed_by": processedBy,
	}).Info("Approval processed")

	return approval, nil
}

// ExpireOldApprovals bulk-expires pending approvals past their deadline and
// returns the number affected. Meant for periodic invocation; the transition
// is monotonic so overlapping runs are harmless.
func (s *ApprovalService) ExpireOldApprovals() (int64, error) {
	count, err := s.approvalStore.ExpirePending(s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logrus.WithField("count", count).Info("Expired stale approval requests")
	}
	return count, nil
}

// CheckAutoApproval evaluates the approval against every owner with
// auto-approval enabled and approves it on behalf of the first owner whose
// criteria all pass. Re-running on an already-processed approval is a no-op,
// so decision metadata is never overwritten.
func (s *ApprovalService) CheckAutoApproval(approval *models.LicenseApproval) (bool, error) {
	if !approval.IsPending() {
		return false, nil
	}

	managements, err := s.ownerStore.FindAutoApprovers()
	if err != nil {
		return false, err
	}

	for i := range managements {
		management := &managements[i]
		if !s.criteriaSatisfied(management, approval) {
			continue
		}

		now := s.now()
		approval.Status = models.ApprovalStatusApproved
		approval.ProcessedBy = &management.UserID
		approval.ProcessedAt = &now
		approval.DecisionReason = autoApprovalReason

		if err := s.approvalStore.Save(approval); err != nil {
			return false, err
		}

		logrus.WithFields(logrus.Fields{
			"approval_id": approval.ID,
			"owner_id":    management.UserID,
		}).Info("Approval auto-approved")

		return true, nil
	}

	return false, nil
}

// criteriaSatisfied checks the owner's auto-approval criteria against the
// request. Every criterion present must pass; absent criteria impose no
// constraint.
func (s *ApprovalService) criteriaSatisfied(management *models.OwnerManagement, approval *models.LicenseApproval) bool {
	if maxDays, ok := management.CriteriaMaxValidity(); ok {
		days, present := approval.RequestValidityDays()
		if present && days > maxDays {
			return false
		}
	}

	if allowed, ok := management.CriteriaAllowedTypes(); ok {
		licenseType, present := approval.RequestLicenseType()
		if present {
			permitted := false
			for _, t := range allowed {
				if t == licenseType {
					permitted = true
					break
				}
			}
			if !permitted {
				return false
			}
		}
	}

	if maxRank, ok := management.CriteriaMaxPriorityRank(); ok {
		if approval.Priority.Rank() > maxRank {
			return false
		}
	}

	return true
}

// AutoProcessApprovals runs the auto-approval check across every pending
// approval and returns those it approved.
func (s *ApprovalService) AutoProcessApprovals() ([]models.LicenseApproval, error) {
	pending, err := s.approvalStore.FindPending()
	if err != nil {
		return nil, err
	}

	var approved []models.LicenseApproval
	for i := range pending {
		ok, err := s.CheckAutoApproval(&pending[i])
		if err != nil {
			logrus.WithError(err).WithField("approval_id", pending[i].ID).
				Warn("Auto-approval check failed during batch run")
			continue
		}
		if ok {
			approved = append(approved, pending[i])
		}
	}

	return approved, nil
}

// GetApprovalQueue returns the pending approvals, highest priority first.
func (s *ApprovalService) GetApprovalQueue(params utils.PaginationParams) ([]models.LicenseApproval, int64, error) {
	return s.approvalStore.FindPendingPage(params)
}

func (s *ApprovalService) GetApproval(approvalID uuid.UUID) (*models.LicenseApproval, error) {
	return s.approvalStore.FindByID(approvalID)
}
