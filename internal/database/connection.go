// internal/database/connection.go
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established (%s)", cfg.RedactedDSN())
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.License{},
		&models.LicenseTemplate{},
		&models.LicenseApproval{},
		&models.LicenseAuditLog{},
		&models.OwnerManagement{},
		&models.OwnerNotification{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)",

		// License indexes
		"CREATE INDEX IF NOT EXISTS idx_licenses_issued_to ON licenses(issued_to)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_status_approval ON licenses(status, approval_status)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_valid_until ON licenses(valid_until)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_type_status ON licenses(type, status)",

		// Approval indexes
		"CREATE INDEX IF NOT EXISTS idx_license_approvals_status_expires ON license_approvals(status, expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_license_approvals_license ON license_approvals(license_id)",
		"CREATE INDEX IF NOT EXISTS idx_license_approvals_priority ON license_approvals(priority, created_at DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_license_audit_logs_license ON license_audit_logs(license_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_license_audit_logs_action ON license_audit_logs(action)",
		"CREATE INDEX IF NOT EXISTS idx_license_audit_logs_performer ON license_audit_logs(performed_by)",

		// Owner indexes
		"CREATE INDEX IF NOT EXISTS idx_owner_managements_auto_approval ON owner_managements(auto_approval_enabled)",
		"CREATE INDEX IF NOT EXISTS idx_owner_notifications_status ON owner_notifications(owner_id, status)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var ownerCount int64
	db.Model(&models.User{}).Where("role = ?", models.RoleOwner).Count(&ownerCount)

	if ownerCount == 0 {
		owner := &models.User{
			Username: "owner",
			Email:    "owner@licensehub.io",
			Role:     models.RoleOwner,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "Platform",
				"last_name":  "Owner",
			},
		}

		if err := owner.SetPassword("owner123!@#"); err != nil {
			return fmt.Errorf("failed to set owner password: %w", err)
		}

		if err := db.Create(owner).Error; err != nil {
			return fmt.Errorf("failed to create owner user: %w", err)
		}

		log.Println("Default owner user created successfully")
	}

	defaultTemplates := []models.LicenseTemplate{
		{
			Name:        "community-default",
			Type:        models.LicenseTypeCommunity,
			Description: "Community edition with basic features",
			Features: models.JSONB{
				"api_access": true,
				"dashboards": true,
				"sso":        false,
			},
			Limits: models.JSONB{
				"max_users":    5,
				"max_projects": 3,
			},
			DefaultValidityDays: 365,
			RequiresApproval:    false,
			IsActive:            true,
		},
		{
			Name:        "trial-default",
			Type:        models.LicenseTypeTrial,
			Description: "30-day trial with full features",
			Features: models.JSONB{
				"api_access": true,
				"dashboards": true,
				"sso":        true,
			},
			Limits: models.JSONB{
				"max_users":    25,
				"max_projects": 10,
			},
			DefaultValidityDays: 30,
			RequiresApproval:    true,
			IsActive:            true,
		},
		{
			Name:        "enterprise-default",
			Type:        models.LicenseTypeEnterprise,
			Description: "Enterprise edition, unlimited usage",
			Features: models.JSONB{
				"api_access": true,
				"dashboards": true,
				"sso":        true,
				"audit_api":  true,
			},
			Limits: models.JSONB{
				"max_users":    -1,
				"max_projects": -1,
			},
			DefaultValidityDays: 365,
			RequiresApproval:    true,
			IsActive:            true,
		},
	}

	for _, template := range defaultTemplates {
		var count int64
		db.Model(&models.LicenseTemplate{}).Where("name = ?", template.Name).Count(&count)

		if count == 0 {
			if err := db.Create(&template).Error; err != nil {
				log.Printf("Warning: Failed to create template %s: %v", template.Name, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
