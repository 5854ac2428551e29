package lifecycle

import "time"

// IsLive reports whether now falls inside the bidding window. Both ends are
// inclusive: a bid stamped exactly at endDate is still on time.
func IsLive(now, startDate, endDate time.Time) bool {
	return !now.Before(startDate) && !now.After(endDate)
}

// Status names the phase of an auction's window at now
func Status(now, startDate, endDate time.Time) string {
	switch {
	case now.Before(startDate):
		return "upcoming"
	case now.After(endDate):
		return "ended"
	default:
		return "live"
	}
}
