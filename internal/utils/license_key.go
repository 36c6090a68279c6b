// internal/utils/license_key.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/licensehub/license-backend/internal/models"
)

// License keys are opaque, uppercase, dash-delimited strings of the form
// {PREFIX}-{ENCODED-TIMESTAMP}-{RANDOM-TOKEN}. They carry no signature; the
// key is only a unique handle into the license store.

const keyTokenLength = 10 // ~51 bits of entropy per token

var keyPrefixes = map[models.LicenseType]string{
	models.LicenseTypeCommunity:  "COMM",
	models.LicenseTypeTrial:      "TRIAL",
	models.LicenseTypeEnterprise: "ENT",
}

type KeyFormatResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// GenerateLicenseKey mints a new key for the given license type. Custom
// licenses use the caller-supplied prefix; the other types use the fixed
// prefix table. Enterprise keys carry a second random segment.
func GenerateLicenseKey(licenseType models.LicenseType, customPrefix string) (string, error) {
	prefix, ok := keyPrefixes[licenseType]
	if !ok {
		if licenseType != models.LicenseTypeCustom {
			return "", fmt.Errorf("unknown license type %q", licenseType)
		}
		prefix = strings.ToUpper(strings.TrimSpace(customPrefix))
		if prefix == "" {
			prefix = "CUST"
		}
	}

	encodedTS := strings.ToUpper(strconv.FormatInt(time.Now().Unix(), 36))

	token, err := GenerateRandomToken(keyTokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate key token: %w", err)
	}

	segments := []string{prefix, encodedTS, token}

	if licenseType == models.LicenseTypeEnterprise {
		extra, err := GenerateRandomToken(keyTokenLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate key token: %w", err)
		}
		segments = append(segments, extra)
	}

	return strings.Join(segments, "-"), nil
}

// ValidateLicenseKeyFormat performs structural checks only: prefix shape and
// segment count. It never consults the license store.
func ValidateLicenseKeyFormat(key string) KeyFormatResult {
	if key == "" {
		return KeyFormatResult{Valid: false, Reason: "key is empty"}
	}
	if key != strings.ToUpper(key) {
		return KeyFormatResult{Valid: false, Reason: "key must be uppercase"}
	}

	segments := strings.Split(key, "-")
	if len(segments) < 3 {
		return KeyFormatResult{Valid: false, Reason: "key must have at least 3 segments"}
	}

	for _, segment := range segments {
		if segment == "" {
			return KeyFormatResult{Valid: false, Reason: "key contains an empty segment"}
		}
		for _, r := range segment {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return KeyFormatResult{Valid: false, Reason: "key segments must be alphanumeric"}
			}
		}
	}

	prefix := segments[0]
	if len(prefix) < 2 || len(prefix) > 12 {
		return KeyFormatResult{Valid: false, Reason: "key prefix must be 2-12 characters"}
	}

	return KeyFormatResult{Valid: true}
}
