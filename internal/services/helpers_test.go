// internal/services/helpers_test.go
package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
)

// fixedNow is the pinned instant used by clock-injected tests.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.License{},
		&models.LicenseTemplate{},
		&models.LicenseApproval{},
		&models.LicenseAuditLog{},
		&models.OwnerManagement{},
		&models.OwnerNotification{},
	))

	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.RoleSlug) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createOwner(t *testing.T, db *gorm.DB, username string) *models.User {
	return createUser(t, db, username, models.RoleOwner)
}

func createMember(t *testing.T, db *gorm.DB, username string) *models.User {
	return createUser(t, db, username, models.RoleMember)
}

// testHarness bundles the full service graph against one in-memory database,
// with every clock pinned to fixedNow.
type testHarness struct {
	db *gorm.DB

	licenseStore  *store.LicenseStore
	approvalStore *store.ApprovalStore
	ownerStore    *store.OwnerStore
	templateStore *store.TemplateStore
	auditStore    *store.AuditStore

	audit      *AuditService
	access     *AccessService
	validation *ValidationService
	approval   *ApprovalService
	license    *LicenseService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	db := setupTestDB(t)

	licenseStore := store.NewLicenseStore(db)
	approvalStore := store.NewApprovalStore(db)
	ownerStore := store.NewOwnerStore(db)
	templateStore := store.NewTemplateStore(db)
	auditStore := store.NewAuditStore(db)

	licensing := config.LicensingConfig{
		DefaultValidityDays: 365,
		RenewalDays:         365,
		ApprovalTTLDays:     7,
		AuditRetentionDays:  730,
	}

	audit := NewAuditService(auditStore).WithClock(fixedClock)
	access := NewAccessService(db, ownerStore)
	validation := NewValidationService(licenseStore).WithClock(fixedClock)
	approval := NewApprovalService(approvalStore, ownerStore, nil, licensing.ApprovalTTLDays).WithClock(fixedClock)
	license := NewLicenseService(licenseStore, templateStore, approval, access, audit, licensing).WithClock(fixedClock)

	return &testHarness{
		db:            db,
		licenseStore:  licenseStore,
		approvalStore: approvalStore,
		ownerStore:    ownerStore,
		templateStore: templateStore,
		auditStore:    auditStore,
		audit:         audit,
		access:        access,
		validation:    validation,
		approval:      approval,
		license:       license,
	}
}

// seedLicense inserts a license row directly, bypassing the orchestrator.
func seedLicense(t *testing.T, db *gorm.DB, license *models.License) *models.License {
	t.Helper()

	if license.Key == "" {
		license.Key = "COMM-TEST-" + strings.ToUpper(uuid.New().String()[:8])
	}
	if license.Type == "" {
		license.Type = models.LicenseTypeCommunity
	}
	if license.Status == "" {
		license.Status = models.LicenseStatusPending
	}
	if license.ApprovalStatus == "" {
		license.ApprovalStatus = models.ApprovalStatusPending
	}
	if license.ValidFrom.IsZero() {
		license.ValidFrom = fixedNow.AddDate(0, 0, -1)
	}
	if license.ValidUntil.IsZero() {
		license.ValidUntil = fixedNow.AddDate(0, 0, 364)
	}
	require.NoError(t, db.Create(license).Error)
	return license
}
