package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/requestid"
)

// Publisher is the subset of *amqp.Channel used for publishing.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the body published for push and sms workers.
type Message struct {
	NotificationID string                 `json:"notification_id"`
	RecipientID    string                 `json:"recipient_id"`
	Channel        notifications.Channel  `json:"channel"`
	Type           notifications.Type     `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	ActionURL      string                 `json:"action_url,omitempty"`
	Priority       notifications.Priority `json:"priority"`
}

// RoutingKey is the topic key a channel's messages are published under.
func RoutingKey(ch notifications.Channel) string {
	return "channel." + string(ch)
}

// AMQPPublisher enqueues push and sms notifications on a topic exchange.
type AMQPPublisher struct {
	pub      Publisher
	exchange string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type AMQPOption func(*AMQPPublisher)

func WithAMQPLogger(l *slog.Logger) AMQPOption {
	return func(p *AMQPPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithExchange(name string) AMQPOption {
	return func(p *AMQPPublisher) {
		if name != "" {
			p.exchange = name
		}
	}
}

func WithPublishTimeout(d time.Duration) AMQPOption {
	return func(p *AMQPPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithAMQPClock(now func() time.Time) AMQPOption {
	return func(p *AMQPPublisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewAMQPPublisher(pub Publisher, opts ...AMQPOption) *AMQPPublisher {
	p := &AMQPPublisher{
		pub:      pub,
		exchange: "notifications",
		timeout:  5 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AMQPPublisher) Enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel) (Receipt, error) {
	if ch != notifications.ChannelPush && ch != notifications.ChannelSMS {
		return Receipt{}, ErrUnsupportedChannel
	}

	body, err := json.Marshal(Message{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Channel:        ch,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		ActionURL:      n.ActionURL,
		Priority:       n.Priority,
	})
	if err != nil {
		return Receipt{}, errors.Join(ErrEnqueueFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	now := p.now()
	msgID := n.ID + ":" + string(ch)
	err = p.pub.PublishWithContext(ctx, p.exchange, RoutingKey(ch), false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     msgID,
		CorrelationId: requestid.FromContext(ctx),
		Timestamp:     now,
		Type:          string(n.Type),
		Priority:      amqpPriority(n.Priority),
		Body:          body,
	})
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish notification",
			logger.NotificationID(n.ID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
		return Receipt{}, errors.Join(ErrEnqueueFailed, err)
	}

	return Receipt{Channel: ch, MessageID: msgID, QueuedAt: now}, nil
}

func amqpPriority(p notifications.Priority) uint8 {
	switch p {
	case notifications.PriorityUrgent:
		return 9
	case notifications.PriorityHigh:
		return 6
	case notifications.PriorityNormal:
		return 3
	default:
		return 0
	}
}

// DialAMQP connects to the broker, opens a channel and declares the durable
// topic exchange. Closing the returned connection closes the channel too.
func DialAMQP(cfg Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, errors.Join(ErrEnqueueFailed, fmt.Errorf("dial broker: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Join(ErrEnqueueFailed, fmt.Errorf("open channel: %w", err))
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, errors.Join(ErrEnqueueFailed, fmt.Errorf("declare exchange: %w", err))
	}

	return conn, ch, nil
}
