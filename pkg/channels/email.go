package channels

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/email"
	"github.com/dmitrymomot/wealthcrm/pkg/email/templates"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// ContactResolver returns the email address of a user.
type ContactResolver interface {
	Email(ctx context.Context, userID string) (string, error)
}

// EmailSender renders a notification and sends it through the mailer.
type EmailSender struct {
	mailer   email.EmailSender
	contacts ContactResolver
	logger   *slog.Logger
	now      func() time.Time
}

type EmailOption func(*EmailSender)

func WithEmailLogger(l *slog.Logger) EmailOption {
	return func(s *EmailSender) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithEmailClock(now func() time.Time) EmailOption {
	return func(s *EmailSender) {
		if now != nil {
			s.now = now
		}
	}
}

func NewEmailSender(mailer email.EmailSender, contacts ContactResolver, opts ...EmailOption) *EmailSender {
	s := &EmailSender{
		mailer:   mailer,
		contacts: contacts,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EmailSender) Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error) {
	if ch != notifications.ChannelEmail {
		return Receipt{}, ErrUnsupportedChannel
	}

	addr, err := s.contacts.Email(ctx, n.RecipientID)
	if err != nil {
		return Receipt{}, errors.Join(ErrNoRecipientAddress, err)
	}
	if addr == "" {
		return Receipt{}, ErrNoRecipientAddress
	}

	body, err := templates.Render(ctx, templates.Notification(templates.NotificationData{
		Title:       n.Title,
		Message:     n.Message,
		Priority:    string(n.Priority),
		ActionURL:   n.ActionURL,
		ActionLabel: n.ActionLabel,
	}))
	if err != nil {
		return Receipt{}, errors.Join(ErrEnqueueFailed, err)
	}

	if err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  n.Title,
		BodyHTML: body,
		Tag:      string(n.Type),
	}); err != nil {
		return Receipt{}, errors.Join(ErrEnqueueFailed, err)
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification email sent",
		logger.NotificationID(n.ID),
		logger.UserID(n.RecipientID),
	)
	return Receipt{Channel: ch, MessageID: n.ID, QueuedAt: s.now()}, nil
}
