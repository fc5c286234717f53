package confidence

import (
	"fmt"
	"time"
)

// FormatDate renders a timestamp relative to now when within 7 days,
// otherwise as an absolute "Month D, YYYY" string.
func FormatDate(t time.Time, now time.Time) string {
	if t.After(now) {
		return t.Format("January 2, 2006")
	}
	elapsed := now.Sub(t)
	if elapsed >= 7*24*time.Hour {
		return t.Format("January 2, 2006")
	}

	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		mins := int(elapsed / time.Minute)
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case sameCalendarDay(t.AddDate(0, 0, 1), now):
		return "yesterday"
	default:
		days := int(elapsed / (24 * time.Hour))
		if days <= 0 {
			days = 1
		}
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func sameCalendarDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}
