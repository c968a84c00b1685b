package preferences

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// Frequency of digest emails.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) Valid() bool { return f == FrequencyDaily || f == FrequencyWeekly }

// ChannelSettings are the global per-channel switches.
type ChannelSettings struct {
	InApp bool `json:"in_app"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Allows reports whether ch is switched on.
func (c ChannelSettings) Allows(ch notifications.Channel) bool {
	switch ch {
	case notifications.ChannelInApp:
		return c.InApp
	case notifications.ChannelEmail:
		return c.Email
	case notifications.ChannelPush:
		return c.Push
	case notifications.ChannelSMS:
		return c.SMS
	}
	return false
}

// TypeSetting overrides delivery for one notification type.
// Enabled=false suppresses the type entirely for the user.
type TypeSetting struct {
	Enabled  bool                    `json:"enabled"`
	Channels []notifications.Channel `json:"channels,omitempty"`
}

// UnmarshalJSON treats a missing "enabled" key as true so that a client
// sending only channels does not silently mute the type.
func (t *TypeSetting) UnmarshalJSON(data []byte) error {
	type plain TypeSetting
	v := plain{Enabled: true}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = TypeSetting(v)
	return nil
}

// QuietHours is a daily window during which non-urgent notifications are
// limited to in-app delivery.
type QuietHours struct {
	Enabled    bool   `json:"enabled"`
	Start      string `json:"start"` // HH:MM
	End        string `json:"end"`   // HH:MM
	Timezone   string `json:"timezone"`
	DaysOfWeek []int  `json:"days_of_week"` // 0 = Sunday; empty means every day
}

// DigestSettings control the periodic summary email.
type DigestSettings struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
	DayOfWeek int       `json:"day_of_week"` // weekly only, 0 = Sunday
	Time      string    `json:"time"`        // HH:MM
	Timezone  string    `json:"timezone"`
}

// Preference holds one user's delivery settings. There is exactly one per user.
type Preference struct {
	UserID             string                             `json:"user_id"`
	ChannelSettings    ChannelSettings                    `json:"channel_settings"`
	TypeSettings       map[notifications.Type]TypeSetting `json:"type_settings"`
	QuietHours         QuietHours                         `json:"quiet_hours"`
	DigestSettings     DigestSettings                     `json:"digest_settings"`
	PushToken          string                             `json:"push_token,omitempty"`
	PushTokenUpdatedAt *time.Time                         `json:"push_token_updated_at,omitempty"`
	LastDigestAt       *time.Time                         `json:"last_digest_at,omitempty"` // written only by MarkDigestSent
	CreatedAt          time.Time                          `json:"created_at"`
	UpdatedAt          time.Time                          `json:"updated_at"`
}

const (
	DefaultTimezone        = "UTC"
	DefaultQuietHoursStart = "22:00"
	DefaultQuietHoursEnd   = "07:00"
	DefaultDigestTime      = "09:00"
	DefaultDigestDayOfWeek = 1 // Monday
)

// Default returns the settings a user gets on first access.
func Default(userID string) Preference {
	return Preference{
		UserID: userID,
		ChannelSettings: ChannelSettings{
			InApp: true,
			Email: true,
		},
		TypeSettings: map[notifications.Type]TypeSetting{},
		QuietHours: QuietHours{
			Start:      DefaultQuietHoursStart,
			End:        DefaultQuietHoursEnd,
			Timezone:   DefaultTimezone,
			DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
		},
		DigestSettings: DigestSettings{
			Frequency: FrequencyDaily,
			DayOfWeek: DefaultDigestDayOfWeek,
			Time:      DefaultDigestTime,
			Timezone:  DefaultTimezone,
		},
	}
}

// Clone returns a deep copy.
func (p Preference) Clone() Preference {
	if p.TypeSettings != nil {
		ts := make(map[notifications.Type]TypeSetting, len(p.TypeSettings))
		for k, v := range p.TypeSettings {
			v.Channels = slices.Clone(v.Channels)
			ts[k] = v
		}
		p.TypeSettings = ts
	}
	p.QuietHours.DaysOfWeek = slices.Clone(p.QuietHours.DaysOfWeek)
	if p.PushTokenUpdatedAt != nil {
		at := *p.PushTokenUpdatedAt
		p.PushTokenUpdatedAt = &at
	}
	if p.LastDigestAt != nil {
		at := *p.LastDigestAt
		p.LastDigestAt = &at
	}
	return p
}
