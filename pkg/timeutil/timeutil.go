package timeutil

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration in the compact style used by the debug
// logger (+3ms, +1.2s, +2m). Sub-millisecond durations render as 0ms.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
