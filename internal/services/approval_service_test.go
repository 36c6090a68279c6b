// internal/services/approval_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

func seedAutoApprover(t *testing.T, db *gorm.DB, user *models.User, criteria models.JSONB, createdAt time.Time) *models.OwnerManagement {
	t.Helper()

	management := &models.OwnerManagement{
		UserID:                 user.ID,
		CanCreateLicenses:      true,
		CanApproveLicenses:     true,
		CanRevokeLicenses:      true,
		CanManageTemplates:     true,
		CanDelegatePermissions: true,
		CanViewAuditLogs:       true,
		CanManageSubscriptions: true,
		AutoApprovalEnabled:    true,
		AutoApprovalCriteria:   criteria,
		ApprovalTimeoutDays:    7,
	}
	management.CreatedAt = createdAt
	require.NoError(t, db.Create(management).Error)
	return management
}

func submitApproval(t *testing.T, h *testHarness, requestData models.JSONB, priority models.ApprovalPriority) *models.LicenseApproval {
	t.Helper()

	approval, err := h.approval.SubmitApproval(uuid.New(), uuid.New(), models.ApprovalTypeCreation, requestData, priority)
	require.NoError(t, err)
	return approval
}

func TestSubmitApprovalSetsDeadline(t *testing.T) {
	h := newTestHarness(t)

	approval := submitApproval(t, h, models.JSONB{"validity_days": float64(30)}, models.PriorityMedium)

	assert.Equal(t, models.ApprovalStatusPending, approval.Status)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), approval.ExpiresAt.UTC())
}

func TestProcessApprovalApprove(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	approval := submitApproval(t, h, nil, models.PriorityMedium)

	processed, err := h.approval.ProcessApproval(approval.ID, DecisionApprove, "looks fine", owner.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, processed.Status)
	require.NotNil(t, processed.ProcessedBy)
	assert.Equal(t, owner.ID, *processed.ProcessedBy)
	require.NotNil(t, processed.ProcessedAt)
	assert.Equal(t, "looks fine", processed.DecisionReason)
}

func TestProcessApprovalReject(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	approval := submitApproval(t, h, nil, models.PriorityMedium)

	processed, err := h.approval.ProcessApproval(approval.ID, DecisionReject, "too broad", owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, processed.Status)
	assert.Equal(t, "too broad", processed.DecisionReason)
}

// Processed approvals are immutable: a second decision fails and the first
// decision's metadata survives untouched.
func TestProcessApprovalImmutableOnceDecided(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	second := createOwner(t, h.db, "second")

	approval := submitApproval(t, h, nil, models.PriorityMedium)

	_, err := h.approval.ProcessApproval(approval.ID, DecisionApprove, "first", owner.ID)
	require.NoError(t, err)

	_, err = h.approval.ProcessApproval(approval.ID, DecisionReject, "second", second.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))

	stored, err := h.approval.GetApproval(approval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, stored.Status)
	assert.Equal(t, "first", stored.DecisionReason)
	assert.Equal(t, owner.ID, *stored.ProcessedBy)
}

func TestProcessApprovalUnknownID(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	_, err := h.approval.ProcessApproval(uuid.New(), DecisionApprove, "", owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProcessApprovalPastDeadline(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	approval := submitApproval(t, h, nil, models.PriorityMedium)

	// Move the clock past the deadline.
	h.approval.WithClock(func() time.Time { return fixedNow.AddDate(0, 0, 8) })

	_, err := h.approval.ProcessApproval(approval.ID, DecisionApprove, "", owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsExpired(err))

	// The row is marked expired as a side effect.
	stored, err := h.approval.GetApproval(approval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusExpired, stored.Status)
}

func TestExpireOldApprovals(t *testing.T) {
	h := newTestHarness(t)

	submitApproval(t, h, nil, models.PriorityMedium)
	submitApproval(t, h, nil, models.PriorityHigh)

	count, err := h.approval.ExpireOldApprovals()
	require.NoError(t, err)
	assert.Zero(t, count)

	h.approval.WithClock(func() time.Time { return fixedNow.AddDate(0, 0, 8) })

	count, err = h.approval.ExpireOldApprovals()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Idempotent: nothing left to expire.
	count, err = h.approval.ExpireOldApprovals()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAutoApprovalCriteriaMaxValidity(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, models.JSONB{
		models.CriteriaMaxValidityDays: float64(90),
	}, fixedNow)

	within := submitApproval(t, h, models.JSONB{"validity_days": float64(30)}, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusApproved, within.Status)
	assert.Equal(t, "Auto-approved based on criteria", within.DecisionReason)
	assert.Equal(t, owner.ID, *within.ProcessedBy)

	beyond := submitApproval(t, h, models.JSONB{"validity_days": float64(180)}, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusPending, beyond.Status)
}

func TestAutoApprovalCriteriaAllowedTypes(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, models.JSONB{
		models.CriteriaAllowedLicenseTypes: []interface{}{"community", "trial"},
	}, fixedNow)

	allowed := submitApproval(t, h, models.JSONB{"license_type": "trial"}, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusApproved, allowed.Status)

	disallowed := submitApproval(t, h, models.JSONB{"license_type": "enterprise"}, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusPending, disallowed.Status)
}

func TestAutoApprovalCriteriaMaxPriority(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, models.JSONB{
		models.CriteriaMaxPriority: "medium",
	}, fixedNow)

	medium := submitApproval(t, h, nil, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusApproved, medium.Status)

	high := submitApproval(t, h, nil, models.PriorityHigh)
	assert.Equal(t, models.ApprovalStatusPending, high.Status)
}

// Absent criteria impose no constraint: an owner with an empty criteria set
// auto-approves everything.
func TestAutoApprovalEmptyCriteria(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, nil, fixedNow)

	approval := submitApproval(t, h, models.JSONB{
		"validity_days": float64(9999),
		"license_type":  "enterprise",
	}, models.PriorityCritical)
	assert.Equal(t, models.ApprovalStatusApproved, approval.Status)
}

// The first matching owner in creation order wins; later owners never
// overwrite the decision.
func TestAutoApprovalFirstMatchWins(t *testing.T) {
	h := newTestHarness(t)
	strict := createOwner(t, h.db, "strict")
	lenient := createOwner(t, h.db, "lenient")

	seedAutoApprover(t, h.db, strict, models.JSONB{
		models.CriteriaMaxValidityDays: float64(10),
	}, fixedNow.Add(-2*time.Hour))
	seedAutoApprover(t, h.db, lenient, nil, fixedNow.Add(-1*time.Hour))

	// Fails strict's criteria, passes lenient's.
	approval := submitApproval(t, h, models.JSONB{"validity_days": float64(30)}, models.PriorityMedium)
	assert.Equal(t, models.ApprovalStatusApproved, approval.Status)
	assert.Equal(t, lenient.ID, *approval.ProcessedBy)

	// Passes both; the older record wins.
	both := submitApproval(t, h, models.JSONB{"validity_days": float64(5)}, models.PriorityMedium)
	assert.Equal(t, strict.ID, *both.ProcessedBy)
}

// Re-running the check on an already-processed approval is a no-op.
func TestCheckAutoApprovalIdempotent(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, nil, fixedNow)

	approval := submitApproval(t, h, nil, models.PriorityMedium)
	require.Equal(t, models.ApprovalStatusApproved, approval.Status)
	firstProcessedAt := *approval.ProcessedAt

	changed, err := h.approval.CheckAutoApproval(approval)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := h.approval.GetApproval(approval.ID)
	require.NoError(t, err)
	assert.Equal(t, firstProcessedAt.UTC(), stored.ProcessedAt.UTC())
	assert.Equal(t, owner.ID, *stored.ProcessedBy)
}

func TestAutoProcessApprovalsBatch(t *testing.T) {
	h := newTestHarness(t)

	// Submitted before any auto-approver exists, so they stay pending.
	a := submitApproval(t, h, models.JSONB{"validity_days": float64(30)}, models.PriorityMedium)
	b := submitApproval(t, h, models.JSONB{"validity_days": float64(400)}, models.PriorityMedium)

	owner := createOwner(t, h.db, "owner")
	seedAutoApprover(t, h.db, owner, models.JSONB{
		models.CriteriaMaxValidityDays: float64(90),
	}, fixedNow)

	approved, err := h.approval.AutoProcessApprovals()
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a.ID, approved[0].ID)

	stored, err := h.approval.GetApproval(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, stored.Status)
}
