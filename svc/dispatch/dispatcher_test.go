package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/channels"
	"github.com/dmitrymomot/wealthcrm/pkg/directory"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/realtime"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type sent struct {
	ID      string
	Channel notifications.Channel
}

type recordingSender struct {
	mu    sync.Mutex
	calls []sent
	fail  map[string]error // recipient id -> error
}

func (s *recordingSender) Enqueue(_ context.Context, n notifications.Notification, ch notifications.Channel) (channels.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sent{ID: n.ID, Channel: ch})
	if err := s.fail[n.RecipientID]; err != nil {
		return channels.Receipt{}, err
	}
	return channels.Receipt{Channel: ch, MessageID: n.ID}, nil
}

func (s *recordingSender) Calls() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.calls...)
}

type env struct {
	clock  *clock
	store  *notifications.MemoryStorage
	prefs  *preferences.Service
	reg    *realtime.Registry
	sender *recordingSender
	dir    *directory.Memory
	d      *dispatch.Dispatcher
}

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, opts ...dispatch.Option) *env {
	t.Helper()
	e := &env{
		clock:  &clock{t: noon},
		store:  notifications.NewMemoryStorage(),
		sender: &recordingSender{fail: map[string]error{}},
		dir:    directory.NewMemory(),
	}
	e.prefs = preferences.NewService(preferences.NewMemoryStorage(), preferences.WithServiceLogger(logger.Discard()))
	e.reg = realtime.NewRegistry(
		realtime.AuthenticatorFunc(func(_ context.Context, c string) (string, error) { return c, nil }),
		realtime.WithRegistryLogger(logger.Discard()),
	)
	opts = append([]dispatch.Option{
		dispatch.WithLogger(logger.Discard()),
		dispatch.WithClock(e.clock.Now),
		dispatch.WithSender(e.sender),
		dispatch.WithDirectory(e.dir),
	}, opts...)
	e.d = dispatch.New(e.store, e.prefs, e.reg, opts...)
	t.Cleanup(e.d.Wait)
	return e
}

func (e *env) connect(t *testing.T, userID string) *realtime.Connection {
	t.Helper()
	conn, _, err := e.reg.Connect(context.Background(), userID)
	require.NoError(t, err)
	return conn
}

func (e *env) update(t *testing.T, userID string, p preferences.Patch) {
	t.Helper()
	_, err := e.prefs.Update(context.Background(), userID, p)
	require.NoError(t, err)
}

func (e *env) stored(t *testing.T, owner, id string) notifications.Notification {
	t.Helper()
	n, err := e.store.Get(context.Background(), owner, id)
	require.NoError(t, err)
	return n
}

type frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func drain(t *testing.T, conn *realtime.Connection) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case raw := <-conn.Outbox():
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func request(typ notifications.Type, recipients ...string) dispatch.CreateRequest {
	return dispatch.CreateRequest{
		Content: dispatch.Content{
			Type:     typ,
			Title:    "x",
			Message:  "y",
			Priority: notifications.PriorityNormal,
		},
		RecipientIDs: recipients,
	}
}

func TestCreate_EndToEnd(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.update(t, "A", preferences.Patch{
		ChannelSettings: &preferences.ChannelSettingsPatch{Email: boolPtr(true)},
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeTaskDue: {Enabled: true, Channels: []notifications.Channel{notifications.ChannelInApp, notifications.ChannelEmail}},
		},
	})
	conn := e.connect(t, "A")

	created, err := e.d.Create(ctx, request(notifications.TypeTaskDue, "A"), "admin-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	n := created[0]
	assert.Equal(t, []notifications.Channel{notifications.ChannelInApp, notifications.ChannelEmail}, n.ChannelsSent)
	assert.Equal(t, "admin-1", n.CreatedBy)
	assert.Equal(t, noon, n.CreatedAt)

	frames := drain(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventNotification, frames[0].Event)
	assert.Equal(t, n.ID, frames[0].Data["id"])
	assert.Equal(t, "x", frames[0].Data["title"])
	for _, internal := range []string{"delivery_status", "channels_sent", "metadata", "created_by", "recipient_id"} {
		assert.NotContains(t, frames[0].Data, internal)
	}

	e.d.Wait()
	assert.Equal(t, []sent{{ID: n.ID, Channel: notifications.ChannelEmail}}, e.sender.Calls())

	got := e.stored(t, "A", n.ID)
	assert.True(t, got.DeliveryStatus[notifications.ChannelEmail].Sent)
	assert.Empty(t, got.DeliveryStatus[notifications.ChannelEmail].Error)
	assert.True(t, got.DeliveryStatus[notifications.ChannelInApp].Delivered)
	assert.Equal(t, n.ChannelsSent, got.ChannelsSent)
}

func TestCreate_SkipsDisabledType(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.update(t, "A", preferences.Patch{
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeTaskDue: {Enabled: false},
		},
	})

	created, err := e.d.Create(ctx, request(notifications.TypeTaskDue, "A", "B"), "")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "B", created[0].RecipientID)

	list, err := e.d.GetForUser(ctx, "A", notifications.Filter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err = e.d.Create(ctx, request(notifications.TypeTaskDue, "A"), "")
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestCreate_QuietHours(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.clock.Set(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))

	e.update(t, "A", preferences.Patch{
		ChannelSettings: &preferences.ChannelSettingsPatch{Push: boolPtr(true)},
		QuietHours:      &preferences.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Timezone: "UTC"},
		PushToken:       strPtr("device-token"),
	})

	req := request(notifications.TypeSecurityAlert, "A")
	created, err := e.d.Create(ctx, req, "")
	require.NoError(t, err)
	assert.Equal(t, []notifications.Channel{notifications.ChannelInApp}, created[0].ChannelsSent)

	req.Priority = notifications.PriorityUrgent
	created, err = e.d.Create(ctx, req, "")
	require.NoError(t, err)
	assert.Equal(t, []notifications.Channel{
		notifications.ChannelInApp, notifications.ChannelEmail, notifications.ChannelPush,
	}, created[0].ChannelsSent)

	e.d.Wait()
	assert.ElementsMatch(t, []sent{
		{ID: created[0].ID, Channel: notifications.ChannelEmail},
		{ID: created[0].ID, Channel: notifications.ChannelPush},
	}, e.sender.Calls())
}

func TestCreate_PushWithoutToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.update(t, "A", preferences.Patch{ChannelSettings: &preferences.ChannelSettingsPatch{Push: boolPtr(true)}})

	created, err := e.d.Create(ctx, request(notifications.TypeComplianceAlert, "A"), "")
	require.NoError(t, err)
	e.d.Wait()

	got := e.stored(t, "A", created[0].ID)
	push := got.DeliveryStatus[notifications.ChannelPush]
	assert.False(t, push.Sent)
	assert.Equal(t, "no push token", push.Error)
	assert.True(t, got.DeliveryStatus[notifications.ChannelEmail].Sent)
	assert.Equal(t, []sent{{ID: created[0].ID, Channel: notifications.ChannelEmail}}, e.sender.Calls())
}

func TestCreate_SenderFailureIsIsolated(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.sender.fail["A"] = errors.New("smtp down")

	created, err := e.d.Create(ctx, request(notifications.TypeTaskDue, "A", "B"), "")
	require.NoError(t, err)
	require.Len(t, created, 2)
	e.d.Wait()

	a := e.stored(t, "A", created[0].ID)
	assert.False(t, a.DeliveryStatus[notifications.ChannelEmail].Sent)
	assert.Equal(t, "smtp down", a.DeliveryStatus[notifications.ChannelEmail].Error)

	b := e.stored(t, "B", created[1].ID)
	assert.True(t, b.DeliveryStatus[notifications.ChannelEmail].Sent)
}

type brokenPrefs struct{ failFor string }

func (b brokenPrefs) GetOrCreate(_ context.Context, userID string) (preferences.Preference, error) {
	if b.failFor == "*" || userID == b.failFor {
		return preferences.Preference{}, preferences.ErrStorageFailure
	}
	return preferences.Default(userID), nil
}

func TestCreate_RecipientErrors(t *testing.T) {
	t.Parallel()
	store := notifications.NewMemoryStorage()
	reg := realtime.NewRegistry(nil, realtime.WithRegistryLogger(logger.Discard()))

	d := dispatch.New(store, brokenPrefs{failFor: "A"}, reg, dispatch.WithLogger(logger.Discard()))
	created, err := d.Create(context.Background(), request(notifications.TypeClientCreated, "A", "B"), "")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "B", created[0].RecipientID)

	d = dispatch.New(store, brokenPrefs{failFor: "*"}, reg, dispatch.WithLogger(logger.Discard()))
	_, err = d.Create(context.Background(), request(notifications.TypeClientCreated, "A", "B"), "")
	assert.ErrorIs(t, err, dispatch.ErrCreateFailed)
	assert.ErrorIs(t, err, preferences.ErrStorageFailure)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(r *dispatch.CreateRequest)
		field string
	}{
		{"missing title", func(r *dispatch.CreateRequest) { r.Title = " " }, "title"},
		{"missing message", func(r *dispatch.CreateRequest) { r.Message = "" }, "message"},
		{"no recipients", func(r *dispatch.CreateRequest) { r.RecipientIDs = nil }, "recipient_ids"},
		{"blank recipient", func(r *dispatch.CreateRequest) { r.RecipientIDs = []string{"A", ""} }, "recipient_ids"},
		{"unknown type", func(r *dispatch.CreateRequest) { r.Type = "NOPE" }, "type"},
		{"unknown priority", func(r *dispatch.CreateRequest) { r.Priority = "critical" }, "priority"},
		{"unknown channel", func(r *dispatch.CreateRequest) { r.Channels = []notifications.Channel{"fax"} }, "channels"},
		{"expiry in the past", func(r *dispatch.CreateRequest) { r.ExpiresAt = timePtr(noon.Add(-time.Minute)) }, "expires_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)

			req := request(notifications.TypeTaskDue, "A")
			tt.edit(&req)

			_, err := e.d.Create(context.Background(), req, "")
			require.Error(t, err)
			require.True(t, validator.IsValidationError(err))
			assert.True(t, validator.ExtractValidationErrors(err).Has(tt.field))
			assert.Equal(t, 0, e.store.Len())
		})
	}
}

func TestCreate_OverrideAndDuplicates(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	conn := e.connect(t, "A")

	req := request(notifications.TypeActivityLogged, "A", "A")
	req.Channels = []notifications.Channel{notifications.ChannelEmail, notifications.ChannelSMS}
	req.Priority = ""

	created, err := e.d.Create(context.Background(), req, "")
	require.NoError(t, err)
	require.Len(t, created, 1)
	// sms is off by default
	assert.Equal(t, []notifications.Channel{notifications.ChannelEmail}, created[0].ChannelsSent)
	assert.Equal(t, notifications.PriorityNormal, created[0].Priority)
	assert.Empty(t, drain(t, conn))
}

func TestCreate_TypeRoomActivity(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	watcher := e.connect(t, "supervisor")
	require.NoError(t, e.reg.Join(watcher, realtime.TypeRoom(notifications.TypeKYCExpiring)))

	_, err := e.d.Create(context.Background(), request(notifications.TypeKYCExpiring, "A", "B"), "")
	require.NoError(t, err)

	frames := drain(t, watcher)
	require.Len(t, frames, 1)
	assert.Equal(t, dispatch.EventTypeActivity, frames[0].Event)
	assert.Equal(t, "KYC_EXPIRING", frames[0].Data["type"])
	assert.EqualValues(t, 2, frames[0].Data["count"])
	assert.NotContains(t, frames[0].Data, "title")
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	for _, u := range []directory.User{
		{ID: "A", Role: "advisor", Active: true},
		{ID: "B", Role: "advisor", TeamIDs: []string{"east"}, Active: true},
		{ID: "C", Role: "compliance_officer", TeamIDs: []string{"east"}, Active: true},
	} {
		require.NoError(t, e.dir.Upsert(ctx, u))
	}
	e.update(t, "B", preferences.Patch{
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeSystemAnnouncement: {Enabled: false},
		},
	})

	req := dispatch.BroadcastRequest{
		Content: dispatch.Content{Type: notifications.TypeSystemAnnouncement, Title: "Maintenance", Message: "Tonight"},
		Roles:   []string{"advisor"},
	}
	count, err := e.d.Broadcast(ctx, req, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	req.Roles = nil
	req.TeamIDs = []string{"east"}
	count, err = e.d.Broadcast(ctx, req, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	req.TeamIDs = []string{"nowhere"}
	count, err = e.d.Broadcast(ctx, req, "admin")
	require.NoError(t, err)
	assert.Zero(t, count)

	req.Title = ""
	_, err = e.d.Broadcast(ctx, req, "admin")
	assert.True(t, validator.IsValidationError(err))

	noDir := dispatch.New(e.store, e.prefs, e.reg, dispatch.WithLogger(logger.Discard()))
	req.Title = "x"
	_, err = noDir.Broadcast(ctx, req, "admin")
	assert.ErrorIs(t, err, dispatch.ErrDirectoryUnavailable)
}

func TestMarkAllAsRead(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	for range 3 {
		_, err := e.d.Create(ctx, request(notifications.TypeClientUpdated, "A"), "")
		require.NoError(t, err)
	}
	conn := e.connect(t, "A")

	count, err := e.d.MarkAllAsRead(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	frames := drain(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventAllRead, frames[0].Event)
	assert.Empty(t, frames[0].Data)

	stats, err := e.d.GetStats(ctx, "A")
	require.NoError(t, err)
	assert.Zero(t, stats.UnreadCount)

	unread, err := e.d.GetForUser(ctx, "A", notifications.Filter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	count, err = e.d.MarkAllAsRead(ctx, "A")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, drain(t, conn), 1)
}

func TestOwnershipScopedMutations(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	created, err := e.d.Create(ctx, request(notifications.TypeDocumentShared, "A"), "")
	require.NoError(t, err)
	id := created[0].ID

	a := e.connect(t, "A")
	b := e.connect(t, "B")

	_, err = e.d.MarkAsRead(ctx, id, "B")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
	_, err = e.d.Archive(ctx, id, "B")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
	assert.ErrorIs(t, e.d.Delete(ctx, id, "B"), notifications.ErrNotFound)
	_, err = e.d.MarkAsRead(ctx, "missing", "A")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))

	n, err := e.d.MarkAsRead(ctx, id, "A")
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	n, err = e.d.Archive(ctx, id, "A")
	require.NoError(t, err)
	assert.True(t, n.IsArchived)
	assert.True(t, n.IsRead)

	require.NoError(t, e.d.Delete(ctx, id, "A"))

	frames := drain(t, a)
	require.Len(t, frames, 3)
	assert.Equal(t, realtime.EventNotificationRead, frames[0].Event)
	assert.Equal(t, realtime.EventNotificationArchived, frames[1].Event)
	assert.Equal(t, realtime.EventNotificationDeleted, frames[2].Event)
	for _, f := range frames {
		assert.Equal(t, id, f.Data["id"])
	}

	_, err = e.d.MarkAsRead(ctx, id, "A")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestGetForUserAndStats(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	e := newEnv(t, dispatch.WithLocation(ny))
	ctx := context.Background()

	// 2026-03-10 03:00 UTC is still March 9 in New York.
	e.clock.Set(time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))
	_, err = e.d.Create(ctx, request(notifications.TypeTaskDue, "A"), "")
	require.NoError(t, err)

	e.clock.Set(noon)
	urgent := request(notifications.TypeSecurityAlert, "A")
	urgent.Priority = notifications.PriorityUrgent
	_, err = e.d.Create(ctx, urgent, "")
	require.NoError(t, err)

	expiring := request(notifications.TypeDocumentExpiring, "A")
	expiring.ExpiresAt = timePtr(noon.Add(time.Hour))
	_, err = e.d.Create(ctx, expiring, "")
	require.NoError(t, err)

	list, err := e.d.GetForUser(ctx, "A", notifications.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	stats, err := e.d.GetStats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.UnreadCount)
	assert.Equal(t, 2, stats.TodayCount)
	assert.Equal(t, 1, stats.UrgentCount)

	e.clock.Set(noon.Add(2 * time.Hour))
	list, err = e.d.GetForUser(ctx, "A", notifications.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, notifications.TypeSecurityAlert, list[0].Type)
	assert.Equal(t, notifications.TypeTaskDue, list[1].Type)

	list, err = e.d.GetForUser(ctx, "A", notifications.Filter{Type: notifications.TypeTaskDue, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err = e.d.GetStats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.UnreadCount)
	assert.Equal(t, 1, stats.ByPriority[notifications.PriorityUrgent])
}
