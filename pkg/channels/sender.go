package channels

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// Receipt acknowledges that a notification was handed to an external channel.
// It says nothing about final delivery.
type Receipt struct {
	Channel   notifications.Channel `json:"channel"`
	MessageID string                `json:"message_id,omitempty"`
	QueuedAt  time.Time             `json:"queued_at"`
}

// Sender enqueues a notification on an external channel.
type Sender interface {
	Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error)

func (f SenderFunc) Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error) {
	return f(ctx, n, ch)
}

// Router dispatches to the sender registered for each channel.
type Router struct {
	senders map[notifications.Channel]Sender
}

func NewRouter() *Router {
	return &Router{senders: make(map[notifications.Channel]Sender)}
}

// Handle registers the sender for a channel, replacing any previous one.
func (r *Router) Handle(ch notifications.Channel, s Sender) *Router {
	r.senders[ch] = s
	return r
}

func (r *Router) Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error) {
	s, ok := r.senders[ch]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnsupportedChannel, ch)
	}
	return s.Enqueue(ctx, n, ch)
}

// NoOpSender accepts everything and only logs. It stands in for channels
// without a configured backend.
type NoOpSender struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewNoOpSender(l *slog.Logger) *NoOpSender {
	if l == nil {
		l = slog.Default()
	}
	return &NoOpSender{logger: l, now: time.Now}
}

func (s *NoOpSender) Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error) {
	s.logger.LogAttrs(ctx, slog.LevelDebug, "channel not configured, notification skipped",
		logger.NotificationID(n.ID),
		logger.Channel(string(ch)),
	)
	return Receipt{Channel: ch, QueuedAt: s.now()}, nil
}
