package availability

import (
	"testing"
	"time"

	"github.com/camvanclinic/booking/internal/schedule"
)

var eveningOnly = schedule.WeeklyTemplate{
	time.Sunday:    {{Start: 8.5, End: 10.5}, {Start: 15, End: 18}},
	time.Monday:    {{Start: 17, End: 20}},
	time.Tuesday:   {{Start: 17, End: 20}},
	time.Wednesday: {{Start: 17, End: 20}},
	time.Thursday:  {{Start: 17, End: 20}},
	time.Friday:    {{Start: 17, End: 20}},
	time.Saturday:  {{Start: 8.5, End: 10.5}, {Start: 15, End: 18}},
}

func clockStrings(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format("15:04")
	}
	return out
}

func TestSlotsTiling(t *testing.T) {
	loc := time.UTC
	// 2024-03-11 is a Monday: [17, 20) at 30 minutes.
	date, _ := schedule.ParseDate("2024-03-11")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

	slots, err := Slots(eveningOnly, 30, date, now, loc)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	want := []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30"}
	got := clockStrings(slots)
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
	// No slot may start at or after the interval end.
	last := slots[len(slots)-1]
	if !last.Before(date.At(20, 0, loc)) {
		t.Fatalf("last slot %s not before 20:00", last)
	}
}

func TestSlotsMultipleIntervalsInOrder(t *testing.T) {
	loc := time.UTC
	// 2024-03-10 is a Sunday: [8.5, 10.5) then [15, 18).
	date, _ := schedule.ParseDate("2024-03-10")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

	slots, err := Slots(eveningOnly, 30, date, now, loc)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	got := clockStrings(slots)
	want := []string{"08:30", "09:00", "09:30", "10:00", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSlotsOverrunTailPolicy(t *testing.T) {
	loc := time.UTC
	// 45-minute slots in [17, 20): starts at 17:00, 17:45, 18:30, 19:15.
	// 19:15 is emitted even though it would end at 20:00+; the contract is
	// "slot start before interval end", not "slot end within interval".
	date, _ := schedule.ParseDate("2024-03-11")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

	slots, err := Slots(eveningOnly, 45, date, now, loc)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	got := clockStrings(slots)
	want := []string{"17:00", "17:45", "18:30", "19:15"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSlotsClosedDay(t *testing.T) {
	loc := time.UTC
	tmpl := schedule.WeeklyTemplate{time.Monday: {{Start: 17, End: 20}}}
	date, _ := schedule.ParseDate("2024-03-12") // Tuesday, not in template

	slots, err := Slots(tmpl, 30, date, time.Now(), loc)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day yielded %v", clockStrings(slots))
	}
}

func TestSlotsPastExclusionToday(t *testing.T) {
	loc := time.UTC
	date, _ := schedule.ParseDate("2024-03-11")
	now := date.At(18, 15, loc)

	slots, err := Slots(eveningOnly, 30, date, now, loc)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	got := clockStrings(slots)
	want := []string{"18:30", "19:00", "19:30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSlotsAtNowBoundaryExcluded(t *testing.T) {
	loc := time.UTC
	date, _ := schedule.ParseDate("2024-03-11")
	// Exactly 18:00: the 18:00 slot is "at or before now" and must go.
	now := date.At(18, 0, loc)

	slots, _ := Slots(eveningOnly, 30, date, now, loc)
	for _, s := range slots {
		if !s.After(now) {
			t.Fatalf("slot %s not after now", s)
		}
	}
	if len(slots) != 3 {
		t.Fatalf("got %v", clockStrings(slots))
	}
}

func TestSlotsFutureDateIgnoresNow(t *testing.T) {
	loc := time.UTC
	date, _ := schedule.ParseDate("2024-03-18") // next Monday
	// "now" late on the 11th must not filter the 18th.
	now := time.Date(2024, 3, 11, 23, 0, 0, 0, loc)

	slots, _ := Slots(eveningOnly, 30, date, now, loc)
	if len(slots) != 6 {
		t.Fatalf("future date filtered: %v", clockStrings(slots))
	}
}

func TestSlotsTimezoneStability(t *testing.T) {
	// The generated slots must land on the requested calendar date for
	// every host offset from -12:00 to +14:00.
	date, _ := schedule.ParseDate("2024-03-10")

	for offset := -12; offset <= 14; offset++ {
		loc := time.FixedZone("test", offset*3600)
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

		slots, err := Slots(eveningOnly, 30, date, now, loc)
		if err != nil {
			t.Fatalf("offset %+d: %v", offset, err)
		}
		if len(slots) == 0 {
			t.Fatalf("offset %+d: no slots", offset)
		}
		for _, s := range slots {
			if s.Year() != 2024 || s.Month() != time.March || s.Day() != 10 {
				t.Fatalf("offset %+d: slot drifted to %s", offset, s.Format("2006-01-02 15:04"))
			}
		}
	}
}

func TestSlotsIdempotent(t *testing.T) {
	loc := time.UTC
	date, _ := schedule.ParseDate("2024-03-11")
	now := date.At(18, 15, loc)

	first, _ := Slots(eveningOnly, 30, date, now, loc)
	second, _ := Slots(eveningOnly, 30, date, now, loc)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("slot %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestSlotsInvalidDuration(t *testing.T) {
	date, _ := schedule.ParseDate("2024-03-11")
	if _, err := Slots(eveningOnly, 0, date, time.Now(), time.UTC); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
