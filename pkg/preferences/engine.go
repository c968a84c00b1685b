package preferences

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// ResolveChannels picks the delivery channels for typ. The first non-empty
// source wins: override, the user's per-type channels, the tier table. The
// result keeps only globally enabled channels in canonical order.
// suppressed is true when the user disabled typ; channels is then nil.
func ResolveChannels(p Preference, typ notifications.Type, override []notifications.Channel) (channels []notifications.Channel, suppressed bool) {
	return ResolveChannelsWith(DefaultTiers(), p, typ, override)
}

// ResolveChannelsWith is ResolveChannels with an explicit tier table.
func ResolveChannelsWith(tiers *TierTable, p Preference, typ notifications.Type, override []notifications.Channel) ([]notifications.Channel, bool) {
	setting, hasSetting := p.TypeSettings[typ]
	if hasSetting && !setting.Enabled {
		return nil, true
	}

	var candidates []notifications.Channel
	switch {
	case len(override) > 0:
		candidates = override
	case hasSetting && len(setting.Channels) > 0:
		candidates = setting.Channels
	default:
		candidates = tiers.Channels(typ)
	}

	allowed := make([]notifications.Channel, 0, len(candidates))
	for _, ch := range candidates {
		if p.ChannelSettings.Allows(ch) {
			allowed = append(allowed, ch)
		}
	}
	return canonical(allowed), false
}

// IsQuietHours reports whether now falls inside the user's quiet window.
// The window is evaluated at minute precision in the stored timezone (UTC
// when unknown). A start after end wraps midnight.
func IsQuietHours(p Preference, now time.Time) bool {
	q := p.QuietHours
	if !q.Enabled {
		return false
	}
	start, okStart := parseClock(q.Start)
	end, okEnd := parseClock(q.End)
	if !okStart || !okEnd {
		return false
	}

	local := now.In(location(q.Timezone))
	if len(q.DaysOfWeek) > 0 && !slices.Contains(q.DaysOfWeek, int(local.Weekday())) {
		return false
	}

	cur := local.Hour()*60 + local.Minute()
	if start > end {
		return cur >= start || cur < end
	}
	return cur >= start && cur <= end
}

// ApplyQuietHours narrows channels to in-app only during quiet hours.
// Urgent notifications are never narrowed.
func ApplyQuietHours(channels []notifications.Channel, priority notifications.Priority, quiet bool) []notifications.Channel {
	if !quiet || priority == notifications.PriorityUrgent {
		return slices.Clone(channels)
	}
	if slices.Contains(channels, notifications.ChannelInApp) {
		return []notifications.Channel{notifications.ChannelInApp}
	}
	return []notifications.Channel{}
}

// DigestGrace is how long after its scheduled time a digest may still go out.
// It matches the hourly digest tick.
const DigestGrace = time.Hour

// DigestSlot returns the most recent scheduled digest time at or before now,
// in the digest timezone. ok is false when the settings hold no valid time.
func DigestSlot(p Preference, now time.Time) (slot time.Time, ok bool) {
	d := p.DigestSettings
	at, ok := parseClock(d.Time)
	if !ok {
		return time.Time{}, false
	}
	local := now.In(location(d.Timezone))
	slot = time.Date(local.Year(), local.Month(), local.Day(), at/60, at%60, 0, 0, local.Location())

	if d.Frequency == FrequencyWeekly {
		if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
			return time.Time{}, false
		}
		slot = slot.AddDate(0, 0, -((int(local.Weekday()) - d.DayOfWeek + 7) % 7))
		if slot.After(now) {
			slot = slot.AddDate(0, 0, -7)
		}
		return slot, true
	}
	if slot.After(now) {
		slot = slot.AddDate(0, 0, -1)
	}
	return slot, true
}

// IsDigestDue reports whether the user's digest should go out at now: the
// latest scheduled slot passed less than DigestGrace ago and no digest was
// recorded since that slot.
func IsDigestDue(p Preference, now time.Time) bool {
	if !p.DigestSettings.Enabled {
		return false
	}
	slot, ok := DigestSlot(p, now)
	if !ok || now.Sub(slot) >= DigestGrace {
		return false
	}
	return p.LastDigestAt == nil || p.LastDigestAt.Before(slot)
}

// DigestWindow returns how far back a digest looks at most.
func DigestWindow(p Preference) time.Duration {
	if p.DigestSettings.Frequency == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// DigestSince returns where the next digest starts: the previous digest, or
// one window back when there is none or it is older than the window.
func DigestSince(p Preference, now time.Time) time.Time {
	since := now.Add(-DigestWindow(p))
	if p.LastDigestAt != nil && p.LastDigestAt.After(since) {
		return *p.LastDigestAt
	}
	return since
}

// parseClock converts "HH:MM" into minutes after midnight.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, false
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// canonical dedupes channels and orders them in_app, email, push, sms.
func canonical(chs []notifications.Channel) []notifications.Channel {
	out := make([]notifications.Channel, 0, len(chs))
	for _, ch := range notifications.Channels() {
		if slices.Contains(chs, ch) {
			out = append(out, ch)
		}
	}
	return out
}
