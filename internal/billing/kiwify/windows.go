package kiwify

import "time"

const (
	// WindowSpan is the widest date range the sales API accepts in one query.
	WindowSpan = 90 * 24 * time.Hour
	// Lookback is how far back a full sync reaches.
	Lookback = 365 * 24 * time.Hour
)

// Window is a half-open [Start, End) range of sale dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows splits [now-lookback, now) into consecutive spans, oldest first.
// The last window is clipped to now.
func Windows(now time.Time, lookback, span time.Duration) []Window {
	if lookback <= 0 || span <= 0 {
		return nil
	}
	var out []Window
	for start := now.Add(-lookback); start.Before(now); start = start.Add(span) {
		end := start.Add(span)
		if end.After(now) {
			end = now
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}
