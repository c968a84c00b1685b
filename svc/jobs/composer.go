package jobs

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/wealthcrm/pkg/email"
	"github.com/dmitrymomot/wealthcrm/pkg/email/templates"
)

// ContactResolver returns the email address of a user.
type ContactResolver interface {
	Email(ctx context.Context, userID string) (string, error)
}

// EmailDigestComposer renders digests with the email templates and sends
// them through the mailer.
type EmailDigestComposer struct {
	mailer   email.EmailSender
	contacts ContactResolver
}

func NewEmailDigestComposer(mailer email.EmailSender, contacts ContactResolver) *EmailDigestComposer {
	return &EmailDigestComposer{mailer: mailer, contacts: contacts}
}

func (c *EmailDigestComposer) SendDigest(ctx context.Context, d Digest) error {
	addr, err := c.contacts.Email(ctx, d.UserID)
	if err != nil {
		return fmt.Errorf("resolve digest recipient: %w", err)
	}

	items := make([]templates.DigestItem, 0, len(d.Notifications))
	for _, n := range d.Notifications {
		items = append(items, templates.DigestItem{
			Title:     n.Title,
			Message:   n.Message,
			Type:      string(n.Type),
			Priority:  string(n.Priority),
			ActionURL: n.ActionURL,
			CreatedAt: n.CreatedAt,
		})
	}

	body, err := templates.Render(ctx, templates.Digest(templates.DigestData{
		Frequency: string(d.Frequency),
		Since:     d.Since,
		Items:     items,
	}))
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	return c.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  fmt.Sprintf("Your %s notification digest", d.Frequency),
		BodyHTML: body,
		Tag:      "digest",
	})
}
