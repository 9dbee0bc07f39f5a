package main

import (
	"context"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camvanclinic/booking/internal/availability"
	"github.com/camvanclinic/booking/internal/config"
	"github.com/camvanclinic/booking/internal/db"
	"github.com/camvanclinic/booking/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAppointments(context.Background(), pool, cfg, 14); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedBlockedSlots(context.Background(), pool, cfg, 5); err != nil {
		log.Fatalf("seed blocked slots: %v", err)
	}

	log.Println("seed complete")
}

// seedAppointments books roughly half of the open slots over the coming
// days, so the availability grid has realistic holes.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, days int) error {
	now := time.Now().In(cfg.Clinic)
	date := schedule.DateOf(now)

	statuses := []string{"pending", "pending", "confirmed", "cancelled"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for i := 0; i < days; i++ {
		slots, err := availability.Slots(cfg.Schedule, cfg.SlotMinutes, date, now, cfg.Clinic)
		if err != nil {
			return err
		}

		for _, slot := range slots {
			if gofakeit.Bool() {
				continue
			}

			status := statuses[gofakeit.Number(0, len(statuses)-1)]
			dob := gofakeit.DateRange(
				time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			).Format("2006-01-02")

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_name, patient_dob, parent_name, patient_address,
				                          patient_phone, reason, slot_at, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			`, uuid.New(), gofakeit.Name(), dob, gofakeit.Name(), gofakeit.Address().Address,
				gofakeit.Phone(), cfg.Reasons[gofakeit.Number(0, len(cfg.Reasons)-1)], slot, status)
			if err != nil {
				return err
			}
			total++
		}

		date = date.Next()
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}

func seedBlockedSlots(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, count int) error {
	now := time.Now().In(cfg.Clinic)
	date := schedule.DateOf(now)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	seeded := 0
	for i := 0; seeded < count && i < count*4; i++ {
		day := date.AddDays(gofakeit.Number(1, 10))
		slots, err := availability.Slots(cfg.Schedule, cfg.SlotMinutes, day, now, cfg.Clinic)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			continue
		}

		slot := slots[gofakeit.Number(0, len(slots)-1)]
		_, err = tx.Exec(ctx, `
			INSERT INTO blocked_slots (id, blocked_date, blocked_time, reason, created_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (blocked_date, blocked_time) DO NOTHING
		`, uuid.New(), day.String(), slot.Format("15:04"), "nghỉ đột xuất")
		if err != nil {
			return err
		}
		seeded++
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("blocked slots seeded: %d", seeded)
	return nil
}
