package notifications

import "time"

// Stats summarises a recipient's inbox. Expired rows are never counted.
//
// UnreadCount, ByType, ByPriority and UrgentCount cover unread, non-archived
// rows only. TodayCount covers every row created at or after the start of the
// current day.
type Stats struct {
	UnreadCount int              `json:"unread_count"`
	ByType      map[Type]int     `json:"by_type"`
	ByPriority  map[Priority]int `json:"by_priority"`
	TodayCount  int              `json:"today_count"`
	UrgentCount int              `json:"urgent_count"`
}

func newStats() Stats {
	return Stats{
		ByType:     make(map[Type]int),
		ByPriority: make(map[Priority]int),
	}
}

// add folds one row into the counters.
func (s *Stats) add(n Notification, now, todayStart time.Time) {
	if n.IsExpired(now) {
		return
	}
	if !n.CreatedAt.Before(todayStart) {
		s.TodayCount++
	}
	if n.IsRead || n.IsArchived {
		return
	}
	s.UnreadCount++
	s.ByType[n.Type]++
	s.ByPriority[n.Priority]++
	if n.Priority == PriorityUrgent {
		s.UrgentCount++
	}
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
