// internal/services/subscription_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/subscription"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/store"
)

// SubscriptionService links licenses to Stripe subscriptions so billing
// state can be reconciled with license state. Billing itself happens in
// Stripe; the only thing persisted here is the subscription reference.
type SubscriptionService struct {
	licenseStore  *store.LicenseStore
	accessService *AccessService
	auditService  *AuditService
	payment       config.PaymentConfig
}

type SubscriptionStatus struct {
	SubscriptionID   string `json:"subscription_id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	CancelAtEnd      bool   `json:"cancel_at_period_end"`
}

func NewSubscriptionService(
	licenseStore *store.LicenseStore,
	accessService *AccessService,
	auditService *AuditService,
	payment config.PaymentConfig,
) *SubscriptionService {
	stripe.Key = payment.StripeSecretKey

	return &SubscriptionService{
		licenseStore:  licenseStore,
		accessService: accessService,
		auditService:  auditService,
		payment:       payment,
	}
}

func (s *SubscriptionService) enabled() error {
	if s.payment.StripeSecretKey == "" {
		return errors.New("subscription management is not configured")
	}
	return nil
}

// AttachSubscription records a Stripe subscription against a license after
// verifying it exists on the Stripe side.
func (s *SubscriptionService) AttachSubscription(licenseID uuid.UUID, subscriptionID string, actorID uuid.UUID) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionManageSubscriptions); err != nil {
		return nil, err
	}
	if err := s.enabled(); err != nil {
		return nil, err
	}

	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.SubscriptionID != nil && *license.SubscriptionID != sub.ID {
		return nil, apperrors.InvalidState("license already linked to subscription %s", *license.SubscriptionID)
	}

	license.SubscriptionID = &sub.ID
	if err := s.licenseStore.Save(license); err != nil {
		return nil, err
	}

	s.auditService.Record(license, models.AuditActionCreated, &actorID, nil, models.JSONB{
		"subscription_id": sub.ID,
	}, "Subscription attached")

	return license, nil
}

// DetachSubscription unlinks a subscription, optionally cancelling it at
// period end on the Stripe side.
func (s *SubscriptionService) DetachSubscription(licenseID uuid.UUID, cancel bool, actorID uuid.UUID) (*models.License, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionManageSubscriptions); err != nil {
		return nil, err
	}
	if err := s.enabled(); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.SubscriptionID == nil {
		return nil, apperrors.InvalidState("license has no linked subscription")
	}

	if cancel {
		params := &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		if _, err := subscription.Update(*license.SubscriptionID, params); err != nil {
			return nil, fmt.Errorf("failed to cancel subscription: %w", err)
		}
	}

	detached := *license.SubscriptionID
	license.SubscriptionID = nil
	if err := s.licenseStore.Save(license); err != nil {
		return nil, err
	}

	s.auditService.Record(license, models.AuditActionRevoked, &actorID, models.JSONB{
		"subscription_id": detached,
	}, nil, "Subscription detached")

	return license, nil
}

// GetSubscriptionStatus reads the live state of the linked subscription.
func (s *SubscriptionService) GetSubscriptionStatus(licenseID, actorID uuid.UUID) (*SubscriptionStatus, error) {
	if _, err := s.accessService.ValidateOwnerPermission(actorID, models.PermissionManageSubscriptions); err != nil {
		return nil, err
	}
	if err := s.enabled(); err != nil {
		return nil, err
	}

	license, err := s.licenseStore.FindByID(licenseID)
	if err != nil {
		return nil, err
	}

	if license.SubscriptionID == nil {
		return nil, apperrors.NotFound("license %s has no linked subscription", licenseID)
	}

	sub, err := subscription.Get(*license.SubscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}

	return &SubscriptionStatus{
		SubscriptionID:   sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CancelAtEnd:      sub.CancelAtPeriodEnd,
	}, nil
}
