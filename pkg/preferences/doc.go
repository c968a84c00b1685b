// Package preferences stores per-user delivery settings and decides, for a
// single notification, which channels it goes out on.
//
// The decision functions are pure:
//
//	channels, suppressed := preferences.ResolveChannels(pref, typ, override)
//	if suppressed {
//		return // user disabled this type
//	}
//	quiet := preferences.IsQuietHours(pref, now)
//	channels = preferences.ApplyQuietHours(channels, priority, quiet)
//
// Default channels per type come from the embedded tiers.yaml table, parsed
// once. Service.GetOrCreate lazily creates the documented defaults through
// Storage.CreateIfAbsent, which every implementation makes atomic.
package preferences
