package dispatch

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/channels"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSender sets the external channel sender. Without it external channels
// are accepted and dropped by channels.NoOpSender.
func WithSender(s channels.Sender) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sender = s
		}
	}
}

// WithDirectory enables Broadcast.
func WithDirectory(dir Directory) Option {
	return func(d *Dispatcher) {
		d.directory = dir
	}
}

// WithTiers overrides the embedded severity tier table.
func WithTiers(t *preferences.TierTable) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tiers = t
		}
	}
}

// WithLocation sets the zone in which "today" starts for GetStats.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.location = loc
		}
	}
}

// WithSendTimeout bounds each external enqueue.
func WithSendTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.sendTimeout = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}
