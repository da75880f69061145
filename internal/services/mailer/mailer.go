// Package mailer sends transactional email for the feedback application.
package mailer

import (
	"context"
	"fmt"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	contextutils "feedbackapp/internal/utils"

	mail "gopkg.in/mail.v2"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendResponseNotification emails the feedback submitter the text an
	// administrator responded with.
	SendResponseNotification(ctx context.Context, fb models.Feedback, responseText string) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}

// SMTPMailer is the SMTP-backed Mailer.
type SMTPMailer struct {
	cfg    *config.EmailConfig
	logger *observability.Logger
}

// NewSMTPMailer creates an SMTP mailer from configuration.
func NewSMTPMailer(cfg *config.EmailConfig, logger *observability.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// IsEnabled reports whether email sending is configured and turned on.
func (m *SMTPMailer) IsEnabled() bool {
	return m.cfg != nil && m.cfg.Enabled && m.cfg.SMTP.Host != ""
}

// SendResponseNotification sends the response text to the submitter's
// denormalized email address.
func (m *SMTPMailer) SendResponseNotification(ctx context.Context, fb models.Feedback, responseText string) (err error) {
	ctx, span := observability.TraceFunction(ctx, "mailer", "send_response_notification")
	defer observability.FinishSpan(span, &err)

	if !m.IsEnabled() {
		return nil
	}
	if fb.Submitter.Email == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "feedback has no submitter email")
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.SMTP.FromAddress, m.cfg.SMTP.FromName)
	msg.SetHeader("To", fb.Submitter.Email)
	msg.SetHeader("Subject", "Your feedback received a response")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour feedback has been answered:\n\n%s\n",
		fb.Submitter.Name, responseText,
	))

	dialer := mail.NewDialer(m.cfg.SMTP.Host, m.cfg.SMTP.Port, m.cfg.SMTP.Username, m.cfg.SMTP.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Error(ctx, "Failed to send response notification", err, map[string]interface{}{
			"feedback_id": fb.ID,
		})
		return contextutils.WrapError(err, "failed to send response notification")
	}

	m.logger.Info(ctx, "Response notification sent", map[string]interface{}{
		"feedback_id": fb.ID,
	})
	return nil
}
