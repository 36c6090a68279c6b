// internal/services/access_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

func TestValidateOwnerPermissionUnknownUser(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.access.ValidateOwnerPermission(uuid.New(), models.PermissionCreateLicenses)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestValidateOwnerPermissionNonOwner(t *testing.T) {
	h := newTestHarness(t)
	member := createMember(t, h.db, "member")

	_, err := h.access.ValidateOwnerPermission(member.ID, models.PermissionCreateLicenses)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

// First permission check bootstraps a default-permissive management row.
func TestValidateOwnerPermissionBootstrapsDefaults(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	ctx, err := h.access.ValidateOwnerPermission(owner.ID, models.PermissionCreateLicenses)
	require.NoError(t, err)
	require.NotNil(t, ctx.Management)
	assert.True(t, ctx.Management.CanCreateLicenses)
	assert.False(t, ctx.Management.AutoApprovalEnabled)
	assert.Equal(t, 7, ctx.Management.ApprovalTimeoutDays)

	// Bootstrapping is idempotent: the second check reads the same row.
	again, err := h.access.ValidateOwnerPermission(owner.ID, models.PermissionApproveLicenses)
	require.NoError(t, err)
	assert.Equal(t, ctx.Management.ID, again.Management.ID)
}

func TestValidateOwnerPermissionFlagOff(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	ctx, err := h.access.ValidateOwnerPermission(owner.ID, models.PermissionRevokeLicenses)
	require.NoError(t, err)

	ctx.Management.CanRevokeLicenses = false
	require.NoError(t, h.ownerStore.Save(ctx.Management))

	_, err = h.access.ValidateOwnerPermission(owner.ID, models.PermissionRevokeLicenses)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	// Other flags are unaffected.
	_, err = h.access.ValidateOwnerPermission(owner.ID, models.PermissionCreateLicenses)
	assert.NoError(t, err)
}

func TestCanUserAccessLicense(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")
	stranger := createMember(t, h.db, "stranger")
	owner := createOwner(t, h.db, "owner")

	ok, err := h.access.CanUserAccessLicense(holder.ID, holder.ID)
	require.NoError(t, err)
	assert.True(t, ok, "holders access their own licenses")

	ok, err = h.access.CanUserAccessLicense(owner.ID, holder.ID)
	require.NoError(t, err)
	assert.True(t, ok, "owners access any license")

	ok, err = h.access.CanUserAccessLicense(stranger.ID, holder.ID)
	require.NoError(t, err)
	assert.False(t, ok, "strangers are denied")
}

func TestDelegationGrantsAccess(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	delegate := createMember(t, h.db, "delegate")

	require.NoError(t, h.access.DelegatePermissions(owner.ID, delegate.ID))

	ok, err := h.access.IsDelegatedUser(owner.ID, delegate.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.access.CanUserAccessLicense(delegate.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Delegating twice does not duplicate the entry.
	require.NoError(t, h.access.DelegatePermissions(owner.ID, delegate.ID))
	management, err := h.ownerStore.FindByUserID(owner.ID)
	require.NoError(t, err)
	assert.Len(t, management.DelegatedUsers, 1)
}

func TestRevokeDelegation(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")
	delegate := createMember(t, h.db, "delegate")

	require.NoError(t, h.access.DelegatePermissions(owner.ID, delegate.ID))
	require.NoError(t, h.access.RevokeDelegation(owner.ID, delegate.ID))

	ok, err := h.access.IsDelegatedUser(owner.ID, delegate.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.access.CanUserAccessLicense(delegate.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelegateToUnknownUser(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	err := h.access.DelegatePermissions(owner.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateOwnerSettings(t *testing.T) {
	h := newTestHarness(t)
	owner := createOwner(t, h.db, "owner")

	enabled := true
	criteria := models.JSONB{models.CriteriaMaxValidityDays: float64(90)}
	timeout := 14

	settings, err := h.access.UpdateOwnerSettings(owner.ID, &OwnerSettingsUpdate{
		AutoApprovalEnabled:  &enabled,
		AutoApprovalCriteria: &criteria,
		ApprovalTimeoutDays:  &timeout,
	})
	require.NoError(t, err)
	assert.True(t, settings.AutoApprovalEnabled)
	assert.Equal(t, 14, settings.ApprovalTimeoutDays)

	// Partial update leaves untouched fields alone.
	disabled := false
	settings, err = h.access.UpdateOwnerSettings(owner.ID, &OwnerSettingsUpdate{
		AutoApprovalEnabled: &disabled,
	})
	require.NoError(t, err)
	assert.False(t, settings.AutoApprovalEnabled)
	assert.Equal(t, 14, settings.ApprovalTimeoutDays)

	maxDays, ok := settings.CriteriaMaxValidity()
	assert.True(t, ok)
	assert.Equal(t, 90, maxDays)
}
