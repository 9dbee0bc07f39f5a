package availability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/camvanclinic/booking/internal/schedule"
)

// Occupancy is the external data the filter needs for one date: instants
// already reserved by non-cancelled appointments and instants blocked by
// the admin.
type Occupancy struct {
	Booked  []time.Time
	Blocked []time.Time
}

// LoadFunc fetches the occupancy for a date from the external store.
type LoadFunc func(ctx context.Context, date schedule.Date) (Occupancy, error)

// Fetcher serializes occupancy loads against date selection. When the
// selected date changes while a load is still pending, the stale result is
// discarded rather than applied, so the last selected date always wins.
//
// Lookup failures are logged and reported as empty occupancy: an
// availability display glitch is preferable to a booking page that cannot
// render at all.
type Fetcher struct {
	load LoadFunc
	log  zerolog.Logger

	mu      sync.Mutex
	current schedule.Date
	gen     uint64
}

func NewFetcher(load LoadFunc, log zerolog.Logger) *Fetcher {
	return &Fetcher{load: load, log: log}
}

// Select makes date the active selection and fetches its occupancy. The
// apply callback runs at most once, and only if date is still the active
// selection when the fetch resolves.
func (f *Fetcher) Select(ctx context.Context, date schedule.Date, apply func(Occupancy)) {
	f.mu.Lock()
	f.current = date
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	go func() {
		occ, err := f.load(ctx, date)
		if err != nil {
			f.log.Warn().Err(err).Stringer("date", date).Msg("occupancy lookup failed, treating as empty")
			occ = Occupancy{}
		}

		f.mu.Lock()
		stale := gen != f.gen
		f.mu.Unlock()
		if stale {
			f.log.Debug().Stringer("date", date).Msg("discarding superseded occupancy result")
			return
		}
		apply(occ)
	}()
}

// Selected returns the date the fetcher currently considers active.
func (f *Fetcher) Selected() schedule.Date {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
