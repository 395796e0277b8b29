package rows

import (
	"fmt"
	"time"
)

// formatDuration renders an idle-gap length. Under a day it is hours, with
// minutes added only when precise is requested (currently active gaps);
// from a day upward it is days plus leftover hours.
func formatDuration(d time.Duration, precise bool) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	hours := total / 60
	mins := total % 60

	if hours < 24 {
		if precise && mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	rem := hours % 24
	if rem > 0 {
		return fmt.Sprintf("%dd %dh", days, rem)
	}
	return fmt.Sprintf("%dd", days)
}

func formatClock(t time.Time, use24h bool) string {
	if use24h {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}
