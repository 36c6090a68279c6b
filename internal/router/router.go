// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/handlers"
	"github.com/licensehub/license-backend/internal/middleware"
	"github.com/licensehub/license-backend/internal/services"
	"github.com/licensehub/license-backend/internal/store"
	"github.com/licensehub/license-backend/internal/utils"
)

// Services bundles everything the router and the scheduler share.
type Services struct {
	License      *services.LicenseService
	Approval     *services.ApprovalService
	Validation   *services.ValidationService
	Access       *services.AccessService
	Audit        *services.AuditService
	Auth         *services.AuthService
	Template     *services.TemplateService
	Subscription *services.SubscriptionService
	Storage      *services.StorageService
}

// BuildServices wires stores and services against the given database.
func BuildServices(db *gorm.DB, cfg *config.Config) (*Services, error) {
	licenseStore := store.NewLicenseStore(db)
	approvalStore := store.NewApprovalStore(db)
	ownerStore := store.NewOwnerStore(db)
	templateStore := store.NewTemplateStore(db)
	auditStore := store.NewAuditStore(db)

	notificationService := services.NewNotificationService(db, cfg)
	auditService := services.NewAuditService(auditStore)
	accessService := services.NewAccessService(db, ownerStore)
	validationService := services.NewValidationService(licenseStore)
	approvalService := services.NewApprovalService(approvalStore, ownerStore, notificationService, cfg.Licensing.ApprovalTTLDays)
	licenseService := services.NewLicenseService(licenseStore, templateStore, approvalService, accessService, auditService, cfg.Licensing)
	templateService := services.NewTemplateService(templateStore, accessService)
	subscriptionService := services.NewSubscriptionService(licenseStore, accessService, auditService, cfg.Payment)

	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		return nil, err
	}

	return &Services{
		License:      licenseService,
		Approval:     approvalService,
		Validation:   validationService,
		Access:       accessService,
		Audit:        auditService,
		Auth:         services.NewAuthService(db, cfg.JWT),
		Template:     templateService,
		Subscription: subscriptionService,
		Storage:      storageService,
	}, nil
}

func Initialize(svc *Services, cfg *config.Config) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	licenseHandler := handlers.NewLicenseHandler(svc.License, svc.Audit, svc.Storage)
	approvalHandler := handlers.NewApprovalHandler(svc.License, svc.Approval)
	validationHandler := handlers.NewValidationHandler(svc.Validation)
	templateHandler := handlers.NewTemplateHandler(svc.Template)
	ownerHandler := handlers.NewOwnerHandler(svc.Access, svc.Subscription)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit(cfg.Server.GeneralRatePerSecond))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit(cfg.Server.AuthRatePerMinute))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Profile)
		}

		// Validation endpoints take unauthenticated traffic from deployed
		// installations checking their keys.
		validate := v1.Group("/validate")
		validate.Use(middleware.ValidationRateLimit(cfg.Server.ValidationRatePerSecond))
		{
			validate.POST("", validationHandler.ValidateKey)
			validate.POST("/usage", validationHandler.ValidateUsage)
			validate.GET("/active", middleware.AuthRequired(), validationHandler.GetActiveLicense)
		}

		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthRequired())
		{
			licenses.GET("/mine", licenseHandler.GetMyLicenses)
			licenses.POST("/activate", licenseHandler.ActivateLicense)
			licenses.GET("/:id", licenseHandler.GetLicense)
			licenses.GET("/:id/audit", licenseHandler.GetLicenseAudit)
			licenses.POST("/:id/requests", approvalHandler.SubmitRequest)

			// Owner lifecycle operations
			owner := licenses.Group("")
			owner.Use(middleware.OwnerRequired())
			{
				owner.POST("", licenseHandler.CreateLicense)
				owner.GET("/report", licenseHandler.GetLicenseReport)
				owner.PUT("/:id/renew", licenseHandler.RenewLicense)
				owner.PUT("/:id/suspend", licenseHandler.SuspendLicense)
				owner.PUT("/:id/reactivate", licenseHandler.ReactivateLicense)
				owner.PUT("/:id/revoke", licenseHandler.RevokeLicense)
				owner.POST("/:id/subscription", ownerHandler.AttachSubscription)
				owner.GET("/:id/subscription", ownerHandler.GetSubscriptionStatus)
				owner.DELETE("/:id/subscription", ownerHandler.DetachSubscription)
			}
		}

		approvals := v1.Group("/approvals")
		approvals.Use(middleware.AuthRequired(), middleware.OwnerRequired())
		{
			approvals.GET("/queue", approvalHandler.GetQueue)
			approvals.GET("/:id", approvalHandler.GetApproval)
			approvals.PUT("/:id/decision", approvalHandler.ProcessApproval)
		}

		templates := v1.Group("/templates")
		templates.Use(middleware.AuthRequired())
		{
			templates.GET("", templateHandler.ListTemplates)
			templates.GET("/:id", templateHandler.GetTemplate)

			protected := templates.Group("")
			protected.Use(middleware.OwnerRequired())
			{
				protected.POST("", templateHandler.CreateTemplate)
				protected.PUT("/:id", templateHandler.UpdateTemplate)
				protected.DELETE("/:id", templateHandler.DeactivateTemplate)
			}
		}

		ownerRoutes := v1.Group("/owner")
		ownerRoutes.Use(middleware.AuthRequired(), middleware.OwnerRequired())
		{
			ownerRoutes.GET("/settings", ownerHandler.GetSettings)
			ownerRoutes.PUT("/settings", ownerHandler.UpdateSettings)
			ownerRoutes.POST("/delegates/:userId", ownerHandler.AddDelegate)
			ownerRoutes.DELETE("/delegates/:userId", ownerHandler.RemoveDelegate)
		}
	}

	return r
}
