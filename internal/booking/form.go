package booking

import (
	"context"
	"sync"
	"time"
)

// FormState tracks one booking form instance through a submission.
type FormState string

const (
	FormIdle       FormState = "idle"
	FormValidating FormState = "validating"
	FormSubmitting FormState = "submitting"
	FormSucceeded  FormState = "succeeded"
	FormFailed     FormState = "failed"
)

// Submitter is the slice of Service the form controller needs.
type Submitter interface {
	Submit(ctx context.Context, sub Submission, knownBooked []time.Time) (*Appointment, error)
}

// Form owns the per-session submission state that used to live in ambient
// globals: the in-flight flag and the locally known booked instants. A
// second Submit while one is in flight is a silent no-op, so a double-click
// can never issue two persistence calls. The booked cache grows only on
// success; a failed submission leaves it untouched.
type Form struct {
	svc Submitter

	mu       sync.Mutex
	state    FormState
	inFlight bool
	booked   []time.Time
}

func NewForm(svc Submitter) *Form {
	return &Form{svc: svc, state: FormIdle}
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// KnownBooked returns a copy of the session's booked-instant cache.
func (f *Form) KnownBooked() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.booked))
	copy(out, f.booked)
	return out
}

// ApplyOccupancy replaces the booked cache with freshly fetched data, e.g.
// when the availability fetcher resolves for the selected date.
func (f *Form) ApplyOccupancy(booked []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = make([]time.Time, len(booked))
	copy(f.booked, booked)
}

// Submit drives the submission flow once. When a previous submission is
// still in flight it returns (nil, nil) without touching the service.
func (f *Form) Submit(ctx context.Context, sub Submission) (*Appointment, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, nil
	}
	f.inFlight = true
	f.state = FormValidating
	known := make([]time.Time, len(f.booked))
	copy(known, f.booked)
	f.mu.Unlock()

	f.setState(FormSubmitting)
	appt, err := f.svc.Submit(ctx, sub, known)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		f.state = FormFailed
		return nil, err
	}
	f.state = FormSucceeded
	f.booked = append(f.booked, appt.SlotAt)
	return appt, nil
}

// Reset returns the form to Idle, e.g. after the confirmation is shown.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FormIdle
}

func (f *Form) setState(s FormState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}
