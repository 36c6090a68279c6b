// internal/services/validation_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
)

// ValidationResult is the structured outcome of a validity, feature or quota
// check. Checks never raise errors for an invalid license; callers branch on
// the result instead.
type ValidationResult struct {
	IsValid bool         `json:"is_valid"`
	Error   string       `json:"error,omitempty"`
	Details models.JSONB `json:"details,omitempty"`
}

// ValidationService answers point-in-time questions about whether a license
// currently grants a capability or is within quota. It is read-only.
type ValidationService struct {
	licenseStore *store.LicenseStore
	now          Clock
}

func NewValidationService(licenseStore *store.LicenseStore) *ValidationService {
	return &ValidationService{
		licenseStore: licenseStore,
		now:          time.Now,
	}
}

func (s *ValidationService) WithClock(clock Clock) *ValidationService {
	s.now = clock
	return s
}

// ValidateLicenseKey resolves a key and validates the license behind it.
// A missing key is a NotFound error; an invalid license is a result, not an
// error.
func (s *ValidationService) ValidateLicenseKey(key string) (*ValidationResult, *models.License, error) {
	license, err := s.licenseStore.FindByKey(key)
	if err != nil {
		return nil, nil, err
	}
	return s.ValidateLicense(license), license, nil
}

// ValidateLicense runs the ordered validity checks: approval status, then
// lifecycle status, then the validity window. Checks short-circuit, so when
// several are violated at once the earliest-listed one is reported.
func (s *ValidationService) ValidateLicense(license *models.License) *ValidationResult {
	now := s.now()

	if license.ApprovalStatus != models.ApprovalStatusApproved {
		return &ValidationResult{
			IsValid: false,
			Error:   "License has not been approved",
			Details: models.JSONB{"approval_status": string(license.ApprovalStatus)},
		}
	}

	if license.Status != models.LicenseStatusActive {
		return &ValidationResult{
			IsValid: false,
			Error:   "License is not active",
			Details: models.JSONB{"status": string(license.Status)},
		}
	}

	if now.Before(license.ValidFrom) {
		return &ValidationResult{
			IsValid: false,
			Error:   "License is not yet valid",
			Details: models.JSONB{"valid_from": license.ValidFrom},
		}
	}

	if now.After(license.ValidUntil) {
		return &ValidationResult{
			IsValid: false,
			Error:   "License has expired",
			Details: models.JSONB{"valid_until": license.ValidUntil},
		}
	}

	return &ValidationResult{IsValid: true}
}

// ValidateLicenseFeatures checks base validity and then every requested
// feature. A true boolean, positive number, or any other non-nil feature
// value counts as granted.
func (s *ValidationService) ValidateLicenseFeatures(licenseID uuid.UUID, features []string) (*ValidationResult, error) {
	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if result := s.ValidateLicense(license); !result.IsValid {
		return result, nil
	}

	var missing []string
	for _, feature := range features {
		if !license.HasFeature(feature) {
			missing = append(missing, feature)
		}
	}

	if len(missing) > 0 {
		return &ValidationResult{
			IsValid: false,
			Error:   "License does not grant all requested features",
			Details: models.JSONB{"missing_features": missing},
		}, nil
	}

	return &ValidationResult{IsValid: true}, nil
}

// ValidateLicenseLimits compares supplied usage counters against the
// license's quotas. Unlike the validity checks, limit checks do not
// short-circuit: every violation is accumulated into the details. A limit of
// -1, or one that is unset, is unlimited and never checked.
func (s *ValidationService) ValidateLicenseLimits(licenseID uuid.UUID, usage map[string]float64) (*ValidationResult, error) {
	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if result := s.ValidateLicense(license); !result.IsValid {
		return result, nil
	}

	var violations []string
	for counter, used := range usage {
		limit, ok := limitForCounter(license, counter)
		if !ok || limit < 0 {
			continue
		}
		if used > limit {
			violations = append(violations,
				fmt.Sprintf("%s usage %v exceeds limit %v", counter, used, limit))
		}
	}

	if len(violations) > 0 {
		return &ValidationResult{
			IsValid: false,
			Error:   "License limits exceeded",
			Details: models.JSONB{"violations": violations},
		}, nil
	}

	return &ValidationResult{IsValid: true}, nil
}

// limitForCounter resolves the quota governing a usage counter. Counters
// reported as "total_x" or "current_x" are governed by the "max_x" limit;
// otherwise the counter name is used as-is.
func limitForCounter(license *models.License, counter string) (float64, bool) {
	if limit, ok := license.LimitFor(counter); ok {
		return limit, true
	}
	for _, prefix := range []string{"total_", "current_"} {
		if strings.HasPrefix(counter, prefix) {
			return license.LimitFor("max_" + strings.TrimPrefix(counter, prefix))
		}
	}
	return 0, false
}

// GetActiveLicenseForUser returns the first of the user's licenses that
// passes validation, or nil when none do.
func (s *ValidationService) GetActiveLicenseForUser(userID uuid.UUID) (*models.License, error) {
	licenses, err := s.licenseStore.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	for i := range licenses {
		if result := s.ValidateLicense(&licenses[i]); result.IsValid {
			return &licenses[i], nil
		}
	}

	return nil, nil
}
