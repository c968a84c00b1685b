package templates_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/email/templates"
)

func TestRender(t *testing.T) {
	t.Run("renders component", func(t *testing.T) {
		c := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "<p>hello</p>")
			return err
		})
		html, err := templates.Render(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, "<p>hello</p>", html)
	})

	t.Run("propagates error", func(t *testing.T) {
		boom := errors.New("boom")
		c := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error { return boom })
		_, err := templates.Render(context.Background(), c)
		assert.ErrorIs(t, err, boom)
	})
}

func TestNotification(t *testing.T) {
	html, err := templates.Render(context.Background(), templates.Notification(templates.NotificationData{
		Title:       "KYC <review>",
		Message:     "Client & household",
		Priority:    "urgent",
		ActionURL:   "https://crm.example.com/clients/1",
		ActionLabel: "Open client",
	}))
	require.NoError(t, err)
	assert.Contains(t, html, "KYC &lt;review&gt;")
	assert.Contains(t, html, "Client &amp; household")
	assert.Contains(t, html, "URGENT")
	assert.Contains(t, html, `href="https://crm.example.com/clients/1"`)
	assert.Contains(t, html, "Open client")
}

func TestNotification_UnsafeURL(t *testing.T) {
	html, err := templates.Render(context.Background(), templates.Notification(templates.NotificationData{
		Title:     "x",
		Message:   "y",
		Priority:  "normal",
		ActionURL: "javascript:alert(1)",
	}))
	require.NoError(t, err)
	assert.NotContains(t, html, "javascript:")
	assert.NotContains(t, html, "NORMAL")
}

func TestDigest(t *testing.T) {
	since := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	html, err := templates.Render(context.Background(), templates.Digest(templates.DigestData{
		Frequency: "daily",
		Since:     since,
		Items: []templates.DigestItem{
			{Title: "Task due", Message: "Call client", Type: "TASK_DUE"},
			{Title: "Doc shared", Message: "Q1 report", Type: "DOCUMENT_SHARED", ActionURL: "/documents/9"},
		},
	}))
	require.NoError(t, err)
	assert.Contains(t, html, "Your daily notification digest")
	assert.Contains(t, html, "2 notifications since May 4, 2026 09:00 UTC")
	assert.Contains(t, html, "Task due")
	assert.Contains(t, html, `href="/documents/9"`)
}
