package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	applogger "FinGenius/pkg/logger"

	"github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

type MailgunConfig struct {
	Domain     string
	APIKey     string
	Sender     string
	SenderName string
}

func (c MailgunConfig) complete() bool {
	return c.Domain != "" && c.APIKey != "" && c.Sender != ""
}

// EmailSender delivers notifications through Mailgun.
type EmailSender struct {
	mg   mailgun.Mailgun
	from string
	l    *applogger.Logger
}

// NewEmailSender returns a Mailgun sender, or a LogSender for the email
// channel when the Mailgun configuration is incomplete.
func NewEmailSender(cfg MailgunConfig, l *applogger.Logger) Sender {
	if l == nil {
		l = applogger.NewNop()
	}
	if !cfg.complete() {
		l.Warn("mailgun configuration incomplete, emails will only be logged")
		return NewLogSender(models.ChannelEmail, l)
	}
	from := cfg.Sender
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.Sender)
	}
	return &EmailSender{mg: mailgun.NewMailgun(cfg.Domain, cfg.APIKey), from: from, l: l}
}

func (s *EmailSender) Channel() models.Channel { return models.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, u *models.User, ev models.NotificationEvent) error {
	if u.Email == "" {
		return errors.New("user has no email address")
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := s.mg.NewMessage(s.from, ev.Subject, ev.Message, u.Email)
	resp, id, err := s.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	s.l.Debug("email sent via mailgun", applogger.UserID(u.ID), applogger.String("mailgun_id", id))
	return nil
}

// LogSender only logs. It stands in for channels without a configured backend.
type LogSender struct {
	ch models.Channel
	l  *applogger.Logger
}

func NewLogSender(ch models.Channel, l *applogger.Logger) *LogSender {
	return &LogSender{ch: ch, l: l}
}

func (s *LogSender) Channel() models.Channel { return s.ch }

func (s *LogSender) Send(_ context.Context, u *models.User, ev models.NotificationEvent) error {
	s.l.Info("notification (log only)",
		applogger.UserID(u.ID),
		applogger.String("channel", string(s.ch)),
		applogger.String("subject", ev.Subject),
		applogger.String("message", ev.Message),
	)
	return nil
}
