// Package timeutil provides the elapsed-time formatting the render layout
// uses for the status line's "time: MM:SS" field (spec §4.4.1).
package timeutil

import (
	"fmt"
	"time"
)

// FormatElapsedMMSS formats d as zero-padded minutes:seconds, wrapping past
// 99 minutes rather than growing a third field — build times this module
// accelerates are not expected to run for hours.
func FormatElapsedMMSS(d time.Duration) string {
	mm := int(d.Minutes())
	ss := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", mm, ss)
}
