package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camvanclinic/booking/internal/schedule"
)

// slotKey normalizes an instant to minute granularity for equality checks.
// Slot instants always have zero seconds; occupancy data read back from the
// store may not.
func slotKey(t time.Time) int64 {
	return t.Truncate(time.Minute).Unix()
}

// Filter removes candidates whose instant exactly matches a booked or
// blocked instant. Matching is by instant equality at minute granularity;
// there is no tolerance window. Order of the surviving candidates is
// preserved.
func Filter(candidates, booked, blocked []time.Time) []time.Time {
	taken := make(map[int64]struct{}, len(booked)+len(blocked))
	for _, t := range booked {
		taken[slotKey(t)] = struct{}{}
	}
	for _, t := range blocked {
		taken[slotKey(t)] = struct{}{}
	}

	out := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[slotKey(c)]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ResolveBlocked combines a blocked slot's date and "HH:MM" time-of-day
// into the instant it occupies in loc.
func ResolveBlocked(date schedule.Date, clock string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid blocked time %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid blocked time %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid blocked time %q", clock)
	}
	return date.At(hour, minute, loc), nil
}
