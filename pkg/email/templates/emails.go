package templates

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// NotificationData is the content of a single-notification email.
type NotificationData struct {
	Title       string
	Message     string
	Priority    string
	ActionURL   string
	ActionLabel string
}

// DigestItem is one row of a digest email.
type DigestItem struct {
	Title     string
	Message   string
	Type      string
	Priority  string
	ActionURL string
	CreatedAt time.Time
}

// DigestData is the content of a periodic summary email.
type DigestData struct {
	Frequency string
	Since     time.Time
	Items     []DigestItem
}

const (
	layoutOpen  = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#1f2933">`
	layoutClose = `</body></html>`
)

// Notification renders the email sent for a notification on the email channel.
func Notification(d NotificationData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(layoutOpen)
		if d.Priority == "urgent" || d.Priority == "high" {
			b.WriteString(`<p style="color:#b91c1c;font-weight:bold">`)
			b.WriteString(templ.EscapeString(strings.ToUpper(d.Priority)))
			b.WriteString(`</p>`)
		}
		b.WriteString(`<h2>`)
		b.WriteString(templ.EscapeString(d.Title))
		b.WriteString(`</h2><p>`)
		b.WriteString(templ.EscapeString(d.Message))
		b.WriteString(`</p>`)
		writeAction(&b, d.ActionURL, d.ActionLabel)
		b.WriteString(layoutClose)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Digest renders the daily or weekly summary email.
func Digest(d DigestData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(layoutOpen)
		b.WriteString(`<h2>Your `)
		b.WriteString(templ.EscapeString(d.Frequency))
		b.WriteString(` notification digest</h2><p>`)
		b.WriteString(templ.EscapeString(pluralize(len(d.Items), "notification")))
		b.WriteString(` since `)
		b.WriteString(templ.EscapeString(d.Since.UTC().Format("Jan 2, 2006 15:04 MST")))
		b.WriteString(`</p><ul>`)
		for _, it := range d.Items {
			b.WriteString(`<li><strong>`)
			b.WriteString(templ.EscapeString(it.Title))
			b.WriteString(`</strong> <small>`)
			b.WriteString(templ.EscapeString(it.Type))
			b.WriteString(`</small><br>`)
			b.WriteString(templ.EscapeString(it.Message))
			writeAction(&b, it.ActionURL, "")
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ul>`)
		b.WriteString(layoutClose)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeAction(b *strings.Builder, url, label string) {
	if url == "" {
		return
	}
	if label == "" {
		label = "Open"
	}
	b.WriteString(`<p><a href="`)
	b.WriteString(templ.EscapeString(string(templ.URL(url))))
	b.WriteString(`">`)
	b.WriteString(templ.EscapeString(label))
	b.WriteString(`</a></p>`)
}

func pluralize(n int, word string) string {
	s := word
	if n != 1 {
		s += "s"
	}
	return strconv.Itoa(n) + " " + s
}
