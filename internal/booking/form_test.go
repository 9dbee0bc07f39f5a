package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSubmitter parks Submit calls until released, counting how many
// ever start.
type blockingSubmitter struct {
	mu      sync.Mutex
	started int
	release chan struct{}
	result  *Appointment
	err     error
}

func (b *blockingSubmitter) Submit(ctx context.Context, sub Submission, knownBooked []time.Time) (*Appointment, error) {
	b.mu.Lock()
	b.started++
	b.mu.Unlock()
	if b.release != nil {
		<-b.release
	}
	return b.result, b.err
}

func (b *blockingSubmitter) startedCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

func TestFormSubmitSuccess(t *testing.T) {
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	svc := &blockingSubmitter{result: &Appointment{SlotAt: slotAt, Status: StatusPending}}
	form := NewForm(svc)

	assert.Equal(t, FormIdle, form.State())

	appt, err := form.Submit(context.Background(), Submission{SlotAt: slotAt})
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Equal(t, FormSucceeded, form.State())

	known := form.KnownBooked()
	require.Len(t, known, 1)
	assert.True(t, known[0].Equal(slotAt), "successful slot joins the local booked cache")

	form.Reset()
	assert.Equal(t, FormIdle, form.State())
}

func TestFormSubmitFailureLeavesCacheUntouched(t *testing.T) {
	svc := &blockingSubmitter{err: errors.New("store down")}
	form := NewForm(svc)

	seeded := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	form.ApplyOccupancy([]time.Time{seeded})

	_, err := form.Submit(context.Background(), Submission{})
	require.Error(t, err)
	assert.Equal(t, FormFailed, form.State())

	known := form.KnownBooked()
	require.Len(t, known, 1)
	assert.True(t, known[0].Equal(seeded))
}

func TestFormSubmitInFlightIsNoOp(t *testing.T) {
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	svc := &blockingSubmitter{
		release: make(chan struct{}),
		result:  &Appointment{SlotAt: slotAt},
	}
	form := NewForm(svc)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = form.Submit(context.Background(), Submission{SlotAt: slotAt})
	}()

	// Wait until the first submission is parked inside the service.
	require.Eventually(t, func() bool { return svc.startedCalls() == 1 },
		time.Second, 5*time.Millisecond)

	// The double-click: returns immediately with neither result nor error.
	appt, err := form.Submit(context.Background(), Submission{SlotAt: slotAt})
	assert.Nil(t, appt)
	assert.NoError(t, err)

	close(svc.release)
	<-firstDone

	assert.Equal(t, 1, svc.startedCalls(), "only one service call may be issued")
	assert.Equal(t, FormSucceeded, form.State())
}

func TestFormApplyOccupancyReplacesCache(t *testing.T) {
	form := NewForm(&blockingSubmitter{})

	a := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 12, 17, 0, 0, 0, time.UTC)

	form.ApplyOccupancy([]time.Time{a})
	form.ApplyOccupancy([]time.Time{b})

	known := form.KnownBooked()
	require.Len(t, known, 1)
	assert.True(t, known[0].Equal(b), "fresh occupancy replaces, not appends")
}

func TestFormKnownBookedReturnsCopy(t *testing.T) {
	form := NewForm(&blockingSubmitter{})
	a := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	form.ApplyOccupancy([]time.Time{a})

	got := form.KnownBooked()
	got[0] = time.Time{}

	again := form.KnownBooked()
	require.Len(t, again, 1)
	assert.True(t, again[0].Equal(a))
}
