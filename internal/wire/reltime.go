package wire

import (
	"strconv"
	"time"
)

// RelativeTime renders the client's "N units" age string for ts as seen at now.
// Only the largest non-zero unit is shown.
func RelativeTime(ts, now time.Time) string {
	secs := int64(now.Sub(ts) / time.Second)
	if secs < 0 {
		secs = 0
	}
	days := secs / 86400

	units := []struct {
		n    int64
		name string
	}{
		{days / 365, "year"},
		{(days % 365) / 30, "month"},
		{(days % 365) % 30, "day"},
		{(secs % 86400) / 3600, "hour"},
		{(secs % 3600) / 60, "minute"},
	}
	for _, u := range units {
		if u.n > 0 {
			return plural(u.n, u.name)
		}
	}
	return plural(secs%60, "second")
}

func plural(n int64, unit string) string {
	s := strconv.FormatInt(n, 10) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
