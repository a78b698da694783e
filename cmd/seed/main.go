package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthfirst/provider-scheduling/internal/availability"
	"github.com/healthfirst/provider-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedAvailabilities(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed availabilities: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		address := fmt.Sprintf("%s, %s, %s %s",
			gofakeit.Street(), gofakeit.City(), gofakeit.StateAbr(), gofakeit.Zip())

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialization, years_experience, rating, clinic_address)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, name, spec, gofakeit.Number(1, 35), gofakeit.Float64Range(2.5, 5.0), address)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedAvailabilities(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding availabilities for %d providers", len(providerIDs))

	repo := availability.NewPgRepository(pool)
	base := time.Now().UTC().AddDate(0, 0, 1)
	zones := []string{"America/New_York", "America/Chicago", "America/Los_Angeles"}
	types := []availability.AppointmentType{
		availability.TypeConsultation,
		availability.TypeFollowUp,
		availability.TypeTelemedicine,
	}

	for _, providerID := range providerIDs {
		zone := zones[gofakeit.Number(0, len(zones)-1)]
		apptType := types[gofakeit.Number(0, len(types)-1)]

		for day := 0; day < 5; day++ {
			date := base.AddDate(0, 0, day)
			date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

			av := availability.Availability{
				ID:              uuid.New(),
				ProviderID:      providerID,
				Date:            date,
				StartTime:       "09:00",
				EndTime:         "17:00",
				Timezone:        zone,
				SlotDuration:    30,
				BreakDuration:   0,
				Status:          availability.StatusAvailable,
				MaxPerSlot:      1,
				AppointmentType: apptType,
				Location: availability.Location{
					Type: availability.LocationClinic,
				},
				Pricing: &availability.Pricing{
					BaseFee:           gofakeit.Float64Range(50, 300),
					InsuranceAccepted: gofakeit.Bool(),
					Currency:          "USD",
				},
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}

			start, err := availability.ToUTC(av.StartTime, date, zone)
			if err != nil {
				return err
			}
			end, err := availability.ToUTC(av.EndTime, date, zone)
			if err != nil {
				return err
			}

			slots := availability.GenerateSlots(&av, start, end)
			if err := repo.CreateAvailabilities(ctx, []availability.Availability{av}, slots); err != nil {
				return err
			}
		}
	}

	return nil
}
