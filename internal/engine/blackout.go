package engine

import "time"

// InFundingBlackout reports whether t falls in the funding settlement
// window: the minute before and the minute at each 8-hour boundary.
// Margin and position figures are unstable across settlement, so no
// order may be submitted inside the window.
func InFundingBlackout(t time.Time) bool {
	utc := t.UTC()
	hour, minute := utc.Hour(), utc.Minute()
	if hour%8 == 7 && minute == 59 {
		return true
	}
	return hour%8 == 0 && minute == 0
}
