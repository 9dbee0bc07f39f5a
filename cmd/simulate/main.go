// simulate hammers the booking API with concurrent submissions racing for
// the same slots, to exercise the advisory lock and the unique index under
// load. It reports success/conflict/error counts and latency percentiles.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/camvanclinic/booking/internal/config"
	"github.com/camvanclinic/booking/internal/schedule"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	DaysAhead    int
	Reasons      []string
	Clinic       *time.Location
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(p int) int {
		i := len(latencies) * p / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	booking OperationMetrics
	reads   OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()
	log.Printf("config: base_url=%s duration=%s workers=%d booking=%.2f",
		cfg.APIBaseURL, cfg.Duration, cfg.Workers, cfg.BookingRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		DaysAhead:    getInt("SIM_DAYS_AHEAD", 7),
		Reasons:      baseCfg.Reasons,
		Clinic:       baseCfg.Clinic,
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Pick a date a worker-shared short distance ahead so bookings
		// collide on purpose.
		date := schedule.DateOf(time.Now().In(s.config.Clinic)).AddDays(rng.Intn(s.config.DaysAhead) + 1)

		slots, ok := s.fetchAvailability(ctx, date)
		if !ok || len(slots) == 0 {
			continue
		}

		if rng.Float64() < s.config.BookingRatio {
			s.submitBooking(ctx, rng, slots)
		}
	}
}

func (s *Simulator) fetchAvailability(ctx context.Context, date schedule.Date) ([]time.Time, bool) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/availability?date=%s", s.config.APIBaseURL, date), nil)
	if err != nil {
		return nil, false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.reads.Record(time.Since(start), false, false)
		return nil, false
	}
	defer resp.Body.Close()

	var body struct {
		Slots []time.Time `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.reads.Record(time.Since(start), false, false)
		return nil, false
	}

	s.reads.Record(time.Since(start), resp.StatusCode == http.StatusOK, false)
	return body.Slots, true
}

func (s *Simulator) submitBooking(ctx context.Context, rng *rand.Rand, slots []time.Time) {
	// Bias toward the first few slots so concurrent workers race.
	slot := slots[rng.Intn(min(3, len(slots)))]

	payload, _ := json.Marshal(map[string]string{
		"patient_name":  gofakeit.Name(),
		"patient_dob":   "2018-05-12",
		"parent_name":   gofakeit.Name(),
		"patient_phone": gofakeit.Phone(),
		"reason":        s.config.Reasons[rng.Intn(len(s.config.Reasons))],
		"slot_at":       slot.Format(time.RFC3339),
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.APIBaseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.booking.Record(time.Since(start), false, false)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.booking.Record(time.Since(start),
		resp.StatusCode == http.StatusCreated,
		resp.StatusCode == http.StatusConflict)
}

func (s *Simulator) PrintReport() {
	fmt.Println("=== simulation report ===")
	printOp("booking", &s.booking)
	printOp("availability", &s.reads)
}

func printOp(name string, om *OperationMetrics) {
	avg, p50, p95 := om.Stats()
	fmt.Printf("%-14s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s\n",
		name, om.Total, om.Success, om.Conflict, om.Error, avg, p50, p95)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
