package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/wealthcrm/pkg/channels"
	"github.com/dmitrymomot/wealthcrm/pkg/directory"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/realtime"
)

// Preferences returns a user's preference, creating defaults on first access.
type Preferences interface {
	GetOrCreate(ctx context.Context, userID string) (preferences.Preference, error)
}

// Pusher delivers realtime events to live connections.
type Pusher interface {
	SendToUser(userID, event string, data any) int
	SendToRoom(room, event string, data any) int
}

// Directory resolves broadcast filters to user ids.
type Directory interface {
	Resolve(ctx context.Context, f directory.Filter) ([]string, error)
}

// TypeActivity is pushed to a type room once per create call. It carries no
// recipient content.
type TypeActivity struct {
	Type     notifications.Type     `json:"type"`
	Priority notifications.Priority `json:"priority"`
	Count    int                    `json:"count"`
}

// EventTypeActivity is the room event carrying TypeActivity.
const EventTypeActivity = "notifications:type-activity"

// Dispatcher creates notifications and drives their lifecycle.
type Dispatcher struct {
	store       notifications.Storage
	prefs       Preferences
	pusher      Pusher
	sender      channels.Sender
	directory   Directory
	tiers       *preferences.TierTable
	logger      *slog.Logger
	location    *time.Location
	sendTimeout time.Duration
	now         func() time.Time
	newID       func() string

	wg sync.WaitGroup
}

// New creates a Dispatcher. Panics if store, prefs or pusher is nil.
func New(store notifications.Storage, prefs Preferences, pusher Pusher, opts ...Option) *Dispatcher {
	if store == nil {
		panic("dispatch: notification storage is required")
	}
	if prefs == nil {
		panic("dispatch: preferences are required")
	}
	if pusher == nil {
		panic("dispatch: pusher is required")
	}

	d := &Dispatcher{
		store:       store,
		prefs:       prefs,
		pusher:      pusher,
		tiers:       preferences.DefaultTiers(),
		logger:      slog.Default(),
		location:    time.UTC,
		sendTimeout: 10 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sender == nil {
		d.sender = channels.NewNoOpSender(d.logger)
	}
	return d
}

// Create validates the request and creates one notification per distinct
// recipient. Recipients who disabled the type are skipped silently. A
// failing recipient is logged and does not stop the others; an error is
// returned only when every attempted recipient failed.
func (d *Dispatcher) Create(ctx context.Context, req CreateRequest, createdBy string) ([]notifications.Notification, error) {
	now := d.now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	return d.create(ctx, req.Content, req.RecipientIDs, createdBy, now)
}

// Broadcast resolves the filter through the directory and creates the
// notification for every selected user. It returns how many were created.
func (d *Dispatcher) Broadcast(ctx context.Context, req BroadcastRequest, createdBy string) (int, error) {
	now := d.now()
	if err := req.Validate(now); err != nil {
		return 0, err
	}
	if d.directory == nil {
		return 0, ErrDirectoryUnavailable
	}

	ids, err := d.directory.Resolve(ctx, directory.Filter{
		Roles:   req.Roles,
		TeamIDs: req.TeamIDs,
		UserIDs: req.UserIDs,
	})
	if err != nil {
		return 0, errors.Join(ErrDirectoryUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	created, err := d.create(ctx, req.Content, ids, createdBy, now)
	return len(created), err
}

func (d *Dispatcher) create(ctx context.Context, c Content, recipients []string, createdBy string, now time.Time) ([]notifications.Notification, error) {
	var (
		created []notifications.Notification
		errs    []error
		seen    = make(map[string]struct{}, len(recipients))
	)

	for _, rid := range recipients {
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}

		n, ok, err := d.deliver(ctx, c, rid, createdBy, now)
		if err != nil {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "failed to create notification for recipient",
				logger.UserID(rid),
				logger.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			created = append(created, n)
		}
	}

	if len(created) > 0 {
		d.pusher.SendToRoom(realtime.TypeRoom(c.Type), EventTypeActivity, TypeActivity{
			Type:     c.Type,
			Priority: c.priority(),
			Count:    len(created),
		})
	}

	if len(created) == 0 && len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrCreateFailed}, errs...)...)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notifications created",
		slog.String("type", string(c.Type)),
		logger.Count(len(created)),
	)
	return created, nil
}

// deliver handles one recipient. ok is false when the recipient disabled the type.
func (d *Dispatcher) deliver(ctx context.Context, c Content, recipientID, createdBy string, now time.Time) (notifications.Notification, bool, error) {
	pref, err := d.prefs.GetOrCreate(ctx, recipientID)
	if err != nil {
		return notifications.Notification{}, false, err
	}

	resolved, suppressed := preferences.ResolveChannelsWith(d.tiers, pref, c.Type, c.Channels)
	if suppressed {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "notification type disabled by recipient",
			logger.UserID(recipientID),
			slog.String("type", string(c.Type)),
		)
		return notifications.Notification{}, false, nil
	}

	priority := c.priority()
	chs := preferences.ApplyQuietHours(resolved, priority, preferences.IsQuietHours(pref, now))
	if chs == nil {
		chs = []notifications.Channel{}
	}
	if len(chs) < len(resolved) {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "quiet hours: channels dropped",
			logger.UserID(recipientID),
			slog.Any("dropped", dropped(resolved, chs)),
		)
	}

	n := notifications.Notification{
		ID:             d.newID(),
		Type:           c.Type,
		Title:          c.Title,
		Message:        c.Message,
		Priority:       priority,
		RecipientID:    recipientID,
		EntityType:     c.EntityType,
		EntityID:       c.EntityID,
		EntityName:     c.EntityName,
		ActionURL:      c.ActionURL,
		ActionLabel:    c.ActionLabel,
		ChannelsSent:   chs,
		DeliveryStatus: make(notifications.DeliveryStatus, len(chs)),
		ExpiresAt:      c.ExpiresAt,
		Metadata:       c.Metadata,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, ch := range chs {
		n.DeliveryStatus[ch] = notifications.ChannelStatus{}
	}
	if n.HasChannel(notifications.ChannelInApp) {
		n.DeliveryStatus[notifications.ChannelInApp] = notifications.ChannelStatus{Sent: true, SentAt: &now}
	}

	if err := d.store.Create(ctx, n); err != nil {
		return notifications.Notification{}, false, err
	}

	if n.HasChannel(notifications.ChannelInApp) {
		if d.pusher.SendToUser(recipientID, realtime.EventNotification, n.View()) > 0 {
			st := notifications.ChannelStatus{Sent: true, SentAt: &now, Delivered: true, DeliveredAt: &now}
			if err := d.store.UpdateDeliveryStatus(ctx, n.ID, notifications.ChannelInApp, st); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record in-app delivery",
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
			} else {
				n.DeliveryStatus[notifications.ChannelInApp] = st
			}
		}
	}

	for _, ch := range chs {
		if ch.External() {
			d.enqueue(ctx, n, ch, pref.PushToken)
		}
	}

	return n, true, nil
}

// enqueue hands n to the external sender in the background and records the
// outcome. The caller's cancellation does not abort it.
func (d *Dispatcher) enqueue(ctx context.Context, n notifications.Notification, ch notifications.Channel, pushToken string) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()

		var st notifications.ChannelStatus
		switch {
		case ch == notifications.ChannelPush && pushToken == "":
			st.Error = ErrNoPushToken.Error()
		default:
			receipt, err := d.sender.Enqueue(ctx, n, ch)
			if err != nil {
				st.Error = err.Error()
				d.logger.LogAttrs(ctx, slog.LevelWarn, "external channel enqueue failed",
					logger.NotificationID(n.ID),
					logger.Channel(string(ch)),
					logger.Error(err),
				)
				break
			}
			at := receipt.QueuedAt
			if at.IsZero() {
				at = d.now()
			}
			st.Sent = true
			st.SentAt = &at
		}

		if err := d.store.UpdateDeliveryStatus(ctx, n.ID, ch, st); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelError, "failed to record delivery status",
				logger.NotificationID(n.ID),
				logger.Channel(string(ch)),
				logger.Error(err),
			)
		}
	}()
}

// Wait blocks until every background enqueue has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for background enqueues or gives up when ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarkAsRead marks the owner's notification read and notifies the owner.
func (d *Dispatcher) MarkAsRead(ctx context.Context, id, ownerID string) (notifications.Notification, error) {
	n, err := d.store.MarkRead(ctx, ownerID, id, d.now())
	if err != nil {
		return notifications.Notification{}, err
	}
	d.pusher.SendToUser(ownerID, realtime.EventNotificationRead, realtime.IDPayload{ID: n.ID})
	return n, nil
}

// MarkAllAsRead marks every unread, non-archived notification of the owner
// read and emits a single aggregate event.
func (d *Dispatcher) MarkAllAsRead(ctx context.Context, ownerID string) (int, error) {
	count, err := d.store.MarkAllRead(ctx, ownerID, d.now())
	if err != nil {
		return 0, err
	}
	d.pusher.SendToUser(ownerID, realtime.EventAllRead, struct{}{})
	return count, nil
}

func (d *Dispatcher) Archive(ctx context.Context, id, ownerID string) (notifications.Notification, error) {
	n, err := d.store.Archive(ctx, ownerID, id, d.now())
	if err != nil {
		return notifications.Notification{}, err
	}
	d.pusher.SendToUser(ownerID, realtime.EventNotificationArchived, realtime.IDPayload{ID: n.ID})
	return n, nil
}

func (d *Dispatcher) Delete(ctx context.Context, id, ownerID string) error {
	if err := d.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	d.pusher.SendToUser(ownerID, realtime.EventNotificationDeleted, realtime.IDPayload{ID: id})
	return nil
}

// GetForUser lists the owner's non-expired notifications, newest first.
func (d *Dispatcher) GetForUser(ctx context.Context, ownerID string, f notifications.Filter) ([]notifications.Notification, error) {
	f.Now = d.now()
	return d.store.List(ctx, ownerID, f.Normalize())
}

// GetStats counts the owner's notifications. "Today" starts at midnight in
// the dispatcher's location.
func (d *Dispatcher) GetStats(ctx context.Context, ownerID string) (notifications.Stats, error) {
	now := d.now()
	return d.store.Stats(ctx, ownerID, now, notifications.StartOfDay(now, d.location))
}

func dropped(before, after []notifications.Channel) []notifications.Channel {
	var out []notifications.Channel
	for _, ch := range before {
		if !slices.Contains(after, ch) {
			out = append(out, ch)
		}
	}
	return out
}
