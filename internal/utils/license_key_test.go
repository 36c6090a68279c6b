// internal/utils/license_key_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensehub/license-backend/internal/models"
)

func TestGenerateLicenseKeyPrefixes(t *testing.T) {
	cases := []struct {
		licenseType models.LicenseType
		prefix      string
	}{
		{models.LicenseTypeCommunity, "COMM"},
		{models.LicenseTypeTrial, "TRIAL"},
		{models.LicenseTypeEnterprise, "ENT"},
	}

	for _, tc := range cases {
		key, err := GenerateLicenseKey(tc.licenseType, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, tc.prefix+"-"), "key %s should start with %s-", key, tc.prefix)
	}
}

func TestGenerateLicenseKeyStructure(t *testing.T) {
	key, err := GenerateLicenseKey(models.LicenseTypeCommunity, "")
	require.NoError(t, err)

	assert.Equal(t, strings.ToUpper(key), key)

	segments := strings.Split(key, "-")
	require.Len(t, segments, 3)
	assert.Len(t, segments[2], keyTokenLength)

	result := ValidateLicenseKeyFormat(key)
	assert.True(t, result.Valid, result.Reason)
}

func TestGenerateLicenseKeyEnterpriseHasExtraSegment(t *testing.T) {
	key, err := GenerateLicenseKey(models.LicenseTypeEnterprise, "")
	require.NoError(t, err)

	segments := strings.Split(key, "-")
	require.Len(t, segments, 4)
	assert.Len(t, segments[2], keyTokenLength)
	assert.Len(t, segments[3], keyTokenLength)
}

func TestGenerateLicenseKeyCustomPrefix(t *testing.T) {
	key, err := GenerateLicenseKey(models.LicenseTypeCustom, "acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "ACME-"))

	// No prefix supplied falls back to CUST.
	key, err = GenerateLicenseKey(models.LicenseTypeCustom, "  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "CUST-"))
}

func TestGenerateLicenseKeyUnknownType(t *testing.T) {
	_, err := GenerateLicenseKey(models.LicenseType("bogus"), "")
	assert.Error(t, err)
}

func TestGenerateLicenseKeyUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateLicenseKey(models.LicenseTypeCommunity, "")
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestValidateLicenseKeyFormat(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		valid bool
	}{
		{"valid three segments", "COMM-ABC123-XYZ789QW12", true},
		{"valid four segments", "ENT-ABC123-XYZ789QW12-MORE123456", true},
		{"empty", "", false},
		{"lowercase", "comm-abc123-xyz789", false},
		{"two segments", "COMM-ABC123", false},
		{"empty segment", "COMM--XYZ789", false},
		{"non alphanumeric", "COMM-ABC_23-XYZ789", false},
		{"prefix too short", "C-ABC123-XYZ789", false},
		{"prefix too long", "ABCDEFGHIJKLM-ABC123-XYZ789", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateLicenseKeyFormat(tc.key)
			assert.Equal(t, tc.valid, result.Valid, result.Reason)
			if !tc.valid {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}

func TestGeneratedKeysPassFormatValidation(t *testing.T) {
	for _, licenseType := range []models.LicenseType{
		models.LicenseTypeCommunity,
		models.LicenseTypeTrial,
		models.LicenseTypeEnterprise,
		models.LicenseTypeCustom,
	} {
		key, err := GenerateLicenseKey(licenseType, "ACME")
		require.NoError(t, err)
		result := ValidateLicenseKeyFormat(key)
		assert.True(t, result.Valid, "key %s: %s", key, result.Reason)
	}
}
