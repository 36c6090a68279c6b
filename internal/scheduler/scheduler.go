// internal/scheduler/scheduler.go
package scheduler

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/services"
)

// Scheduler drives the periodic maintenance sweeps: approval expiry,
// auto-approval, license expiry and audit retention. Each sweep is
// idempotent so overlapping or repeated runs are harmless.
type Scheduler struct {
	licenseService  *services.LicenseService
	approvalService *services.ApprovalService
	auditService    *services.AuditService
	licensing       config.LicensingConfig
	interval        time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(
	licenseService *services.LicenseService,
	approvalService *services.ApprovalService,
	auditService *services.AuditService,
	cfg *config.Config,
) *Scheduler {
	interval := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Scheduler{
		licenseService:  licenseService,
		approvalService: approvalService,
		auditService:    auditService,
		licensing:       cfg.Licensing,
		interval:        interval,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart does not delay overdue expirations by a full interval.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)

		s.RunOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stop:
				return
			}
		}
	}()

	logrus.WithField("interval", s.interval).Info("Scheduler started")
}

// Stop signals the loop and waits for the in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	logrus.Info("Scheduler stopped")
}

// RunOnce executes all maintenance sweeps. Failures are logged per sweep;
// one failing sweep does not block the others.
func (s *Scheduler) RunOnce() {
	if expired, err := s.approvalService.ExpireOldApprovals(); err != nil {
		logrus.WithError(err).Error("Approval expiry sweep failed")
	} else if expired > 0 {
		logrus.WithField("count", expired).Info("Expired stale approvals")
	}

	if approved, err := s.licenseService.AutoProcessApprovals(); err != nil {
		logrus.WithError(err).Error("Auto-approval sweep failed")
	} else if approved > 0 {
		logrus.WithField("count", approved).Info("Auto-approved pending requests")
	}

	if expired, err := s.licenseService.ExpireLicenses(); err != nil {
		logrus.WithError(err).Error("License expiry sweep failed")
	} else if expired > 0 {
		logrus.WithField("count", expired).Info("Marked licenses expired")
	}

	if purged, err := s.auditService.PurgeExpired(s.licensing.AuditRetentionDays); err != nil {
		logrus.WithError(err).Error("Audit retention sweep failed")
	} else if purged > 0 {
		logrus.WithField("count", purged).Info("Purged aged audit entries")
	}
}
