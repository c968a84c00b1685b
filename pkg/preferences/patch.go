package preferences

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
)

// ChannelSettingsPatch toggles individual channels; nil fields are kept.
type ChannelSettingsPatch struct {
	InApp *bool `json:"in_app,omitempty"`
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged. TypeSettings
// entries are merged per type; QuietHours and DigestSettings replace the
// stored value as a whole.
type Patch struct {
	ChannelSettings *ChannelSettingsPatch              `json:"channel_settings,omitempty"`
	TypeSettings    map[notifications.Type]TypeSetting `json:"type_settings,omitempty"`
	QuietHours      *QuietHours                        `json:"quiet_hours,omitempty"`
	DigestSettings  *DigestSettings                    `json:"digest_settings,omitempty"`
	PushToken       *string                            `json:"push_token,omitempty"`
}

// Validate checks the patch without touching storage.
func (p Patch) Validate() error {
	var rules []validator.Rule

	for _, typ := range slices.Sorted(maps.Keys(p.TypeSettings)) {
		field := fmt.Sprintf("type_settings.%s", typ)
		rules = append(rules,
			validator.InList(field, typ, notifications.Types()),
			validator.EachInList(field+".channels", p.TypeSettings[typ].Channels, notifications.Channels()),
		)
	}

	if q := p.QuietHours; q != nil {
		rules = append(rules,
			validator.TimeOfDay("quiet_hours.start", q.Start),
			validator.TimeOfDay("quiet_hours.end", q.End),
			validator.When(q.Timezone != "", validator.Timezone("quiet_hours.timezone", q.Timezone)),
			validator.Weekdays("quiet_hours.days_of_week", q.DaysOfWeek),
		)
	}

	if d := p.DigestSettings; d != nil {
		rules = append(rules,
			validator.InList("digest_settings.frequency", d.Frequency, []Frequency{FrequencyDaily, FrequencyWeekly}),
			validator.TimeOfDay("digest_settings.time", d.Time),
			validator.When(d.Timezone != "", validator.Timezone("digest_settings.timezone", d.Timezone)),
			validator.IntBetween("digest_settings.day_of_week", d.DayOfWeek, 0, 6),
		)
	}

	if p.PushToken != nil {
		rules = append(rules, validator.MaxLen("push_token", *p.PushToken, 4096))
	}

	return validator.Apply(rules...)
}

// apply merges the patch into pref. Validate must have passed.
func (p Patch) apply(pref Preference) Preference {
	if c := p.ChannelSettings; c != nil {
		setIf(&pref.ChannelSettings.InApp, c.InApp)
		setIf(&pref.ChannelSettings.Email, c.Email)
		setIf(&pref.ChannelSettings.Push, c.Push)
		setIf(&pref.ChannelSettings.SMS, c.SMS)
	}
	if len(p.TypeSettings) > 0 {
		if pref.TypeSettings == nil {
			pref.TypeSettings = make(map[notifications.Type]TypeSetting, len(p.TypeSettings))
		}
		for typ, ts := range p.TypeSettings {
			ts.Channels = slices.Clone(ts.Channels)
			pref.TypeSettings[typ] = ts
		}
	}
	if q := p.QuietHours; q != nil {
		pref.QuietHours = *q
		pref.QuietHours.DaysOfWeek = slices.Clone(q.DaysOfWeek)
		if pref.QuietHours.Timezone == "" {
			pref.QuietHours.Timezone = DefaultTimezone
		}
	}
	if d := p.DigestSettings; d != nil {
		pref.DigestSettings = *d
		if pref.DigestSettings.Timezone == "" {
			pref.DigestSettings.Timezone = DefaultTimezone
		}
	}
	return pref
}

func setIf(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
