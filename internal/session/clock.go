package session

import (
	"math"
	"time"
)

// OffsetSeconds returns how far the local clock runs ahead of the server, in whole seconds.
//
// server is the response's Date header; receipt is the local time the response arrived.
// Halves round up.
func OffsetSeconds(server, receipt time.Time) int64 {
	diffMs := receipt.UnixMilli() - server.UnixMilli()
	return int64(math.Floor(float64(diffMs)/1000 + 0.5))
}

// CorrectedNow shifts raw local time onto the server's clock. A nil offset leaves raw unchanged.
func CorrectedNow(raw time.Time, offset *int64) time.Time {
	if offset == nil {
		return raw
	}
	return raw.Add(-time.Duration(*offset) * time.Second)
}
