// Package email sends transactional emails through Postmark, or writes them
// to disk with DevSender when Postmark tokens are not configured.
//
//	sender, err := email.New(cfg)
//	if err != nil {
//		return err
//	}
//	html, err := templates.Render(ctx, component)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "advisor@example.com",
//		Subject:  "Task overdue",
//		BodyHTML: html,
//		Tag:      "TASK_OVERDUE",
//	})
//
// Every sender validates SendEmailParams first; invalid params wrap
// ErrInvalidParams and provider failures wrap ErrFailedToSendEmail.
package email
