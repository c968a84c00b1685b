package preferences_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
)

func TestDefault(t *testing.T) {
	p := preferences.Default("u1")
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, preferences.ChannelSettings{InApp: true, Email: true}, p.ChannelSettings)
	assert.Empty(t, p.TypeSettings)
	assert.False(t, p.QuietHours.Enabled)
	assert.Equal(t, "22:00", p.QuietHours.Start)
	assert.Equal(t, "07:00", p.QuietHours.End)
	assert.Equal(t, "UTC", p.QuietHours.Timezone)
	assert.Len(t, p.QuietHours.DaysOfWeek, 7)
	assert.False(t, p.DigestSettings.Enabled)
	assert.Equal(t, preferences.FrequencyDaily, p.DigestSettings.Frequency)
	assert.Equal(t, "09:00", p.DigestSettings.Time)
	assert.Equal(t, 1, p.DigestSettings.DayOfWeek)
}

func TestTypeSetting_UnmarshalDefaultsEnabled(t *testing.T) {
	var ts preferences.TypeSetting
	require.NoError(t, json.Unmarshal([]byte(`{"channels":["email"]}`), &ts))
	assert.True(t, ts.Enabled)
	assert.Equal(t, []notifications.Channel{notifications.ChannelEmail}, ts.Channels)

	require.NoError(t, json.Unmarshal([]byte(`{"enabled":false}`), &ts))
	assert.False(t, ts.Enabled)
	assert.Empty(t, ts.Channels)
}

func TestService_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := preferences.NewMemoryStorage()
	svc := preferences.NewService(store, preferences.WithServiceLogger(logger.Discard()))

	p, err := svc.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, preferences.Default("u1").ChannelSettings, p.ChannelSettings)
	assert.False(t, p.CreatedAt.IsZero())

	again, err := svc.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)
	assert.Equal(t, 1, store.Len())

	_, err = svc.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, preferences.ErrMissingUserID)
}

func TestService_GetOrCreateConcurrentFirstAccess(t *testing.T) {
	ctx := context.Background()
	store := preferences.NewMemoryStorage()
	// Every call sees a distinct clock, so two inserted rows could never
	// share a CreatedAt.
	var tick atomic.Int64
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := preferences.NewService(store,
		preferences.WithServiceLogger(logger.Discard()),
		preferences.WithServiceClock(func() time.Time {
			return base.Add(time.Duration(tick.Add(1)) * time.Second)
		}),
	)

	const callers = 64
	start := make(chan struct{})
	results := make([]preferences.Preference, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.GetOrCreate(ctx, "racer")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].CreatedAt, results[i].CreatedAt)
	}
	assert.Equal(t, 1, store.Len())
	stored, err := store.Get(ctx, "racer")
	require.NoError(t, err)
	assert.Equal(t, stored.CreatedAt, results[0].CreatedAt)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	store := preferences.NewMemoryStorage()
	svc := preferences.NewService(store,
		preferences.WithServiceLogger(logger.Discard()),
		preferences.WithServiceClock(func() time.Time { return now }),
	)

	on, off := true, false
	token := "device-token"
	updated, err := svc.Update(ctx, "u1", preferences.Patch{
		ChannelSettings: &preferences.ChannelSettingsPatch{Push: &on, Email: &off},
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeTaskDue: {Enabled: true, Channels: []notifications.Channel{notifications.ChannelPush}},
		},
		QuietHours: &preferences.QuietHours{Enabled: true, Start: "21:00", End: "06:30"},
		PushToken:  &token,
	})
	require.NoError(t, err)

	assert.Equal(t, preferences.ChannelSettings{InApp: true, Push: true}, updated.ChannelSettings)
	assert.Equal(t, "UTC", updated.QuietHours.Timezone, "blank timezone defaults to UTC")
	assert.Equal(t, "device-token", updated.PushToken)
	require.NotNil(t, updated.PushTokenUpdatedAt)
	assert.Equal(t, now, *updated.PushTokenUpdatedAt)
	assert.Equal(t, now, updated.UpdatedAt)

	stored, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, updated.ChannelSettings, stored.ChannelSettings)
	assert.Contains(t, stored.TypeSettings, notifications.TypeTaskDue)

	// A second patch merges type settings and keeps untouched fields.
	updated, err = svc.Update(ctx, "u1", preferences.Patch{
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeCommentAdded: {Enabled: false},
		},
	})
	require.NoError(t, err)
	assert.Len(t, updated.TypeSettings, 2)
	assert.True(t, updated.QuietHours.Enabled)
	assert.Equal(t, "device-token", updated.PushToken)
}

func TestService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	store := preferences.NewMemoryStorage()
	svc := preferences.NewService(store, preferences.WithServiceLogger(logger.Discard()))

	_, err := svc.Update(ctx, "u1", preferences.Patch{
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			"NOT_A_TYPE":              {Enabled: true},
			notifications.TypeTaskDue: {Enabled: true, Channels: []notifications.Channel{"fax"}},
		},
		QuietHours: &preferences.QuietHours{Start: "24:00", End: "07:00", Timezone: "Mars/Base", DaysOfWeek: []int{9}},
		DigestSettings: &preferences.DigestSettings{
			Frequency: "hourly",
			Time:      "9am",
			DayOfWeek: 8,
		},
	})
	require.Error(t, err)

	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	for _, field := range []string{
		"type_settings.NOT_A_TYPE",
		"type_settings.TASK_DUE.channels",
		"quiet_hours.start",
		"quiet_hours.timezone",
		"quiet_hours.days_of_week",
		"digest_settings.frequency",
		"digest_settings.time",
		"digest_settings.day_of_week",
	} {
		assert.True(t, errs.Has(field), field)
	}
	assert.Zero(t, store.Len(), "nothing is persisted when validation fails")
}
