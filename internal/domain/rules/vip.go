package rules

import "time"

const VIPDay = 24 * time.Hour

// VIPActiveAt reports whether a stored VIP state is still live at the given
// instant. The stored flag alone is not enough: an expiry in the past means
// the entitlement has lapsed even if no writer has flipped the flag yet.
func VIPActiveAt(active bool, expiry time.Time, at time.Time) bool {
	return active && !expiry.IsZero() && expiry.After(at)
}

// NextVIPExpiry computes the expiry after granting days of VIP on top of the
// current state. Extensions stack from whichever is later: now or the current
// unexpired expiry. A lapsed or missing expiry resets the baseline to now, so
// renewals never lose paid time and lapsed accounts never inherit stale time.
func NextVIPExpiry(active bool, expiry time.Time, now time.Time, days int) time.Time {
	base := now.UTC()
	if VIPActiveAt(active, expiry, now) {
		base = expiry.UTC()
	}
	return base.Add(time.Duration(days) * VIPDay)
}
