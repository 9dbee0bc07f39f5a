package availability

import (
	"fmt"
	"time"

	"github.com/camvanclinic/booking/internal/schedule"
)

// Slots expands the weekly template into the ordered candidate slot
// instants for one calendar date. Slots are emitted per interval while the
// slot start falls strictly before the interval end; a trailing slot whose
// end would overrun the interval is still emitted as long as its start is
// inside, matching the booking grid the clinic has always shown.
//
// When date is "today" relative to now (compared as calendar days in loc),
// slots starting at or before now are dropped. Other dates ignore now.
//
// The result is recomputed from scratch on every call; there is no cached
// iterator state, so identical inputs always yield identical output.
func Slots(tmpl schedule.WeeklyTemplate, slotMinutes int, date schedule.Date, now time.Time, loc *time.Location) ([]time.Time, error) {
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", slotMinutes)
	}

	intervals, err := tmpl.OpenIntervals(date.Weekday())
	if err != nil {
		return nil, err
	}

	isToday := schedule.DateOf(now.In(loc)) == date

	var slots []time.Time
	for _, iv := range intervals {
		startMin, endMin := iv.ClockRange()
		for m := startMin; m < endMin; m += slotMinutes {
			t := date.At(m/60, m%60, loc)
			if isToday && !t.After(now) {
				continue
			}
			slots = append(slots, t)
		}
	}

	return slots, nil
}
