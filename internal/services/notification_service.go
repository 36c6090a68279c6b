// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
)

// NotificationService informs owners about approval activity. Everything
// here is best-effort: callers log returned errors and carry on.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// NotifyOwnersOfApproval writes an in-app notification row for every active
// owner and emails those who have not opted out. A failure for one owner
// does not stop delivery to the rest.
func (s *NotificationService) NotifyOwnersOfApproval(approval *models.LicenseApproval) error {
	var owners []models.User
	if err := s.db.Where("role = ? AND status = ?", models.RoleOwner, models.UserStatusActive).
		Find(&owners).Error; err != nil {
		return fmt.Errorf("failed to fetch owners: %w", err)
	}

	var firstErr error
	for i := range owners {
		if err := s.notifyOwner(&owners[i], approval); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"owner_id":    owners[i].ID,
				"approval_id": approval.ID,
			}).Warn("Failed to notify owner")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *NotificationService) notifyOwner(owner *models.User, approval *models.LicenseApproval) error {
	notification := &models.OwnerNotification{
		OwnerID:             owner.ID,
		Type:                "license_approval",
		Title:               "New License Approval Request",
		Message:             fmt.Sprintf("A %s approval request (priority %s) is awaiting review", approval.ApprovalType, approval.Priority),
		Priority:            string(approval.Priority),
		RelatedResourceType: "license_approval",
		RelatedResourceID:   &approval.ID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if !s.emailEnabled(owner) {
		return nil
	}

	data := map[string]interface{}{
		"OwnerName":    owner.Username,
		"ApprovalType": string(approval.ApprovalType),
		"Priority":     string(approval.Priority),
		"ExpiresAt":    approval.ExpiresAt.Format("2006-01-02"),
		"QueueURL":     fmt.Sprintf("%s/approvals/%s", s.config.Frontend.BaseURL, approval.ID),
	}

	subject := "License approval pending review"
	body, err := s.renderTemplate(approvalEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(owner.Email, subject, body)
}

// emailEnabled honors the owner's notification preferences; missing
// preferences default to email on.
func (s *NotificationService) emailEnabled(owner *models.User) bool {
	if s.config.Email.SMTPUsername == "" {
		return false
	}

	var management models.OwnerManagement
	if err := s.db.Where("user_id = ?", owner.ID).First(&management).Error; err != nil {
		return true
	}
	if management.NotificationPreferences == nil {
		return true
	}
	if enabled, ok := management.NotificationPreferences["email"].(bool); ok {
		return enabled
	}
	return true
}

const approvalEmailTemplate = `
<html>
<body>
	<p>Hi {{.OwnerName}},</p>
	<p>A <strong>{{.ApprovalType}}</strong> license approval request with
	priority <strong>{{.Priority}}</strong> is waiting for review.</p>
	<p>The request expires on {{.ExpiresAt}} if nobody processes it.</p>
	<p><a href="{{.QueueURL}}">Review the request</a></p>
</body>
</html>`

func (s *NotificationService) renderTemplate(tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	cfg := s.config.Email
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		cfg.FromName, cfg.FromEmail, to, subject, body,
	))

	addr := cfg.SMTPHost + ":" + cfg.SMTPPort
	if err := smtp.SendMail(addr, auth, cfg.FromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return nil
}
