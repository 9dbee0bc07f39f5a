package schedule

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Interval is one open stretch of clinic hours, expressed as fractional
// hours in 24-hour time (8.5 = 08:30). The end is exclusive.
type Interval struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// ClockRange returns the interval bounds as whole minutes of the day.
// Working in minutes rather than accumulating fractional hours keeps the
// half-hour marks exact.
func (iv Interval) ClockRange() (startMin, endMin int) {
	return minutesOfDay(iv.Start), minutesOfDay(iv.End)
}

// minutesOfDay converts fractional hours to whole minutes, rounding to the
// nearest minute so 8.5 and 10.5 land exactly on :30.
func minutesOfDay(h float64) int {
	return int(h*60 + 0.5)
}

// WeeklyTemplate maps each weekday to its open intervals. A weekday with no
// entry (or an empty list) is a closed day. Loaded once at startup and
// never mutated afterwards.
type WeeklyTemplate map[time.Weekday][]Interval

// ErrWeekdayOutOfRange is returned when a lookup is attempted with a
// weekday outside Sunday..Saturday. Callers derive the weekday from a Date,
// so hitting this is a programming error, not a runtime condition.
var ErrWeekdayOutOfRange = fmt.Errorf("weekday out of range")

// OpenIntervals returns the open intervals for the given weekday, sorted by
// start. A closed day yields an empty slice and no error.
func (wt WeeklyTemplate) OpenIntervals(day time.Weekday) ([]Interval, error) {
	if day < time.Sunday || day > time.Saturday {
		return nil, fmt.Errorf("%w: %d", ErrWeekdayOutOfRange, day)
	}
	ivs := wt[day]
	out := make([]Interval, len(ivs))
	copy(out, ivs)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Validate checks the template invariants: hours within [0,24), start
// strictly before end, and no overlapping intervals on the same weekday.
func (wt WeeklyTemplate) Validate() error {
	for day, ivs := range wt {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: %d", ErrWeekdayOutOfRange, day)
		}
		sorted := make([]Interval, len(ivs))
		copy(sorted, ivs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

		for i, iv := range sorted {
			if iv.Start < 0 || iv.Start >= 24 || iv.End < 0 || iv.End > 24 {
				return fmt.Errorf("%s: interval [%v, %v) outside [0,24)", day, iv.Start, iv.End)
			}
			if iv.Start >= iv.End {
				return fmt.Errorf("%s: interval start %v not before end %v", day, iv.Start, iv.End)
			}
			if i > 0 && iv.Start < sorted[i-1].End {
				return fmt.Errorf("%s: interval [%v, %v) overlaps [%v, %v)",
					day, iv.Start, iv.End, sorted[i-1].Start, sorted[i-1].End)
			}
		}
	}
	return nil
}

// templateFile is the on-disk shape of a schedule override: weekday index
// 0=Sunday..6=Saturday to intervals.
type templateFile struct {
	SlotMinutes int                `yaml:"slot_minutes"`
	Week        map[int][]Interval `yaml:"week"`
}

// LoadTemplateFile reads a YAML schedule override. It returns the template
// and the slot duration in minutes (0 when the file does not set one).
func LoadTemplateFile(path string) (WeeklyTemplate, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read schedule file: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, 0, fmt.Errorf("parse schedule file: %w", err)
	}
	if tf.SlotMinutes < 0 {
		return nil, 0, fmt.Errorf("schedule file: slot_minutes must be positive")
	}

	wt := make(WeeklyTemplate, len(tf.Week))
	for day, ivs := range tf.Week {
		if day < 0 || day > 6 {
			return nil, 0, fmt.Errorf("schedule file: %w: %d", ErrWeekdayOutOfRange, day)
		}
		wt[time.Weekday(day)] = ivs
	}
	if err := wt.Validate(); err != nil {
		return nil, 0, fmt.Errorf("schedule file: %w", err)
	}

	return wt, tf.SlotMinutes, nil
}
