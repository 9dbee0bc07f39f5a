package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camvanclinic/booking/internal/admin"
	"github.com/camvanclinic/booking/internal/booking"
	"github.com/camvanclinic/booking/internal/config"
	redisclient "github.com/camvanclinic/booking/internal/redis"
	"github.com/camvanclinic/booking/internal/schedule"
)

// stubRepo overrides only the repository methods a handler under test
// reaches; anything else panics through the embedded nil interface.
type stubRepo struct {
	booking.Repository

	booked    []time.Time
	createErr error
	stats     booking.DashboardStats
}

func (s *stubRepo) BookedInstants(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return s.booked, nil
}

func (s *stubRepo) BlockedSlotsInRange(ctx context.Context, from, to schedule.Date) ([]booking.BlockedSlot, error) {
	return nil, nil
}

func (s *stubRepo) CreateAppointment(ctx context.Context, sub booking.Submission) (*booking.Appointment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &booking.Appointment{
		ID:      uuid.New(),
		Patient: sub.Patient,
		Reason:  sub.Reason,
		SlotAt:  sub.SlotAt,
		Status:  booking.StatusPending,
	}, nil
}

func (s *stubRepo) DashboardStats(ctx context.Context, now time.Time) (booking.DashboardStats, error) {
	return s.stats, nil
}

const adminCredential = "letmein"

func newTestRouter(t *testing.T, repo booking.Repository, now time.Time) http.Handler {
	t.Helper()

	cfg := config.Config{
		Clinic:      time.UTC,
		Schedule:    config.DefaultWeeklySchedule,
		SlotMinutes: 30,
		Reasons:     []string{"Khám bệnh", "Tư vấn"},
	}
	svc := booking.NewService(repo, redisclient.NoopLocker{}, cfg, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	hash, err := admin.HashCredential(adminCredential)
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		Service:  svc,
		Verifier: admin.NewBcryptVerifier(hash),
		Log:      zerolog.Nop(),
		Env:      "test",
		Version:  "test",
	})
}

func doRequest(router http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityEndpoint(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{}, now)

	rec := doRequest(router, http.MethodGet, "/availability?date=2024-03-11", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-11", body.Date.String())
	assert.Len(t, body.Slots, 6) // Monday [17,20) at 30 minutes
	assert.Contains(t, body.Reasons, "Khám bệnh")
}

func TestAvailabilityEndpointBadDate(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{}, now)

	rec := doRequest(router, http.MethodGet, "/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodGet, "/availability?date=11-03-2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityEndpointEmptyDayIsEmptyArray(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{}, now)

	// A fully booked day must encode as [], not null.
	booked := make([]time.Time, 0)
	date := schedule.Date{Year: 2024, Month: time.March, Day: 11}
	for m := 0; m < 6; m++ {
		booked = append(booked, date.At(17+m/2, (m%2)*30, time.UTC))
	}
	router = newTestRouter(t, &stubRepo{booked: booked}, now)

	rec := doRequest(router, http.MethodGet, "/availability?date=2024-03-11", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots":[]`)
}

func submitBody(slotAt string) string {
	return `{
		"patient_name": "Bé An",
		"patient_dob": "2019-04-02",
		"parent_name": "Chị Hoa",
		"patient_phone": "0901234567",
		"reason": "Khám bệnh",
		"slot_at": "` + slotAt + `"
	}`
}

func TestSubmitEndpointCreated(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{}, now)

	rec := doRequest(router, http.MethodPost, "/appointments",
		submitBody("2024-03-11T17:00:00Z"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, "Bé An", body.PatientName)
}

func TestSubmitEndpointErrorMapping(t *testing.T) {
	now := time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		body       string
		repo       *stubRepo
		wantStatus int
		wantCode   string
	}{
		{
			"malformed json",
			`{"patient_name": `,
			&stubRepo{},
			http.StatusBadRequest, "invalid_request_body",
		},
		{
			"bad slot_at",
			submitBody("tomorrow at five"),
			&stubRepo{},
			http.StatusBadRequest, "invalid_slot_at",
		},
		{
			"missing fields",
			`{"reason": "Khám bệnh", "slot_at": "2024-03-11T19:00:00Z"}`,
			&stubRepo{},
			http.StatusBadRequest, "validation_error",
		},
		{
			"stale slot",
			submitBody("2024-03-11T17:00:00Z"),
			&stubRepo{},
			http.StatusConflict, "stale_slot",
		},
		{
			"slot taken",
			submitBody("2024-03-11T19:00:00Z"),
			&stubRepo{createErr: booking.ErrSlotTaken},
			http.StatusConflict, "slot_taken",
		},
		{
			"store down",
			submitBody("2024-03-11T19:00:00Z"),
			&stubRepo{createErr: context.DeadlineExceeded},
			http.StatusBadGateway, "submission_failed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, tc.repo, now)
			rec := doRequest(router, http.MethodPost, "/appointments", tc.body, nil)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Error)
		})
	}
}

func TestAdminSurfaceRequiresCredential(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{stats: booking.DashboardStats{Total: 7}}, now)

	rec := doRequest(router, http.MethodGet, "/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, http.MethodGet, "/admin/stats", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, http.MethodGet, "/admin/stats", "", map[string]string{
		"Authorization": "Bearer " + adminCredential,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var stats booking.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 7, stats.Total)
}

func TestRequestIDHeader(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	router := newTestRouter(t, &stubRepo{}, now)

	rec := doRequest(router, http.MethodGet, "/availability?date=2024-03-11", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(router, http.MethodGet, "/availability?date=2024-03-11", "", map[string]string{
		"X-Request-ID": "req-42",
	})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
