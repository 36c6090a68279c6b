// internal/services/validation_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/models"
)

func activeLicense(t *testing.T, h *testHarness, holder uuid.UUID) *models.License {
	return seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder,
		IssuedBy:       holder,
	})
}

func TestValidateLicenseValid(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := activeLicense(t, h, holder.ID)

	result := h.validation.ValidateLicense(license)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Error)
}

func TestValidateLicenseUnapproved(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusPending,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
	})

	result := h.validation.ValidateLicense(license)
	assert.False(t, result.IsValid)
	assert.Equal(t, "License has not been approved", result.Error)
}

func TestValidateLicenseInactive(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	for _, status := range []models.LicenseStatus{
		models.LicenseStatusPending,
		models.LicenseStatusSuspended,
		models.LicenseStatusRevoked,
		models.LicenseStatusExpired,
	} {
		license := seedLicense(t, h.db, &models.License{
			Status:         status,
			ApprovalStatus: models.ApprovalStatusApproved,
			IssuedTo:       holder.ID,
			IssuedBy:       holder.ID,
		})

		result := h.validation.ValidateLicense(license)
		assert.False(t, result.IsValid, "status %s should be invalid", status)
		assert.Equal(t, "License is not active", result.Error)
	}
}

func TestValidateLicenseNotYetValid(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		ValidFrom:      fixedNow.AddDate(0, 0, 1),
		ValidUntil:     fixedNow.AddDate(0, 0, 30),
	})

	result := h.validation.ValidateLicense(license)
	assert.False(t, result.IsValid)
	assert.Equal(t, "License is not yet valid", result.Error)
}

func TestValidateLicenseExpiredWindow(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		ValidFrom:      fixedNow.AddDate(0, 0, -60),
		ValidUntil:     fixedNow.AddDate(0, 0, -1),
	})

	result := h.validation.ValidateLicense(license)
	assert.False(t, result.IsValid)
	assert.Equal(t, "License has expired", result.Error)
}

// The checks run in a fixed order and short-circuit: a license that is both
// unapproved and past its window reports the approval failure.
func TestValidateLicenseCheckOrdering(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusSuspended,
		ApprovalStatus: models.ApprovalStatusRejected,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		ValidFrom:      fixedNow.AddDate(0, 0, -60),
		ValidUntil:     fixedNow.AddDate(0, 0, -1),
	})

	result := h.validation.ValidateLicense(license)
	assert.Equal(t, "License has not been approved", result.Error)
}

func TestValidateLicenseKeyUnknown(t *testing.T) {
	h := newTestHarness(t)

	_, _, err := h.validation.ValidateLicenseKey("COMM-NOPE-NOTHERE123")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestValidateLicenseFeatures(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		Features: models.JSONB{
			"api_access": true,
			"sso":        false,
			"seats":      float64(5),
		},
	})

	result, err := h.validation.ValidateLicenseFeatures(license.ID, []string{"api_access", "seats"})
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	result, err = h.validation.ValidateLicenseFeatures(license.ID, []string{"api_access", "sso", "audit_export"})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	missing := result.Details["missing_features"].([]string)
	assert.ElementsMatch(t, []string{"sso", "audit_export"}, missing)
}

func TestValidateLicenseLimitsAccumulateViolations(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		Limits: models.JSONB{
			"max_users":    float64(10),
			"max_projects": float64(3),
			"max_storage":  float64(-1),
		},
	})

	result, err := h.validation.ValidateLicenseLimits(license.ID, map[string]float64{
		"total_users":    11,
		"total_projects": 5,
		"total_storage":  99999,
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "License limits exceeded", result.Error)

	violations := result.Details["violations"].([]string)
	// -1 is unlimited, so storage never violates.
	require.Len(t, violations, 2)
	assert.Contains(t, violations, "total_users usage 11 exceeds limit 10")
	assert.Contains(t, violations, "total_projects usage 5 exceeds limit 3")
}

func TestValidateLicenseLimitsWithinQuota(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")

	license := seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		Limits:         models.JSONB{"max_users": float64(10)},
	})

	result, err := h.validation.ValidateLicenseLimits(license.ID, map[string]float64{
		"total_users": 10, // at the limit is still within quota
		"unknown":     500,
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestGetActiveLicenseForUser(t *testing.T) {
	h := newTestHarness(t)
	holder := createMember(t, h.db, "holder")
	other := createMember(t, h.db, "other")

	// An expired license and a valid one; only the valid one is returned.
	seedLicense(t, h.db, &models.License{
		Status:         models.LicenseStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
		IssuedTo:       holder.ID,
		IssuedBy:       holder.ID,
		ValidFrom:      fixedNow.AddDate(0, 0, -60),
		ValidUntil:     fixedNow.AddDate(0, 0, -1),
	})
	valid := activeLicense(t, h, holder.ID)

	found, err := h.validation.GetActiveLicenseForUser(holder.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, valid.ID, found.ID)

	none, err := h.validation.GetActiveLicenseForUser(other.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}
