// Package clock centralizes the one UTC-seconds-as-float64 conversion
// used throughout retain-sync for remote-DB timestamps and metadata
// last-sync values, so every component agrees on the same precision.
package clock

import "time"

// UTCSeconds converts t to the real-seconds-since-epoch representation
// the profile and remote databases store timestamps as.
func UTCSeconds(t time.Time) float64 {
	return float64(t.UTC().UnixNano()) / 1e9
}
