// Command seed loads demo physicians, two weeks of schedule slots, and the
// clinic profile into the database. It is idempotent: rerunning refreshes
// the demo data without duplicating rows.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type physicianSeed struct {
	name          string
	specialty     string
	qualification string
	experience    int
	price         float64
	bio           string
	languages     []string
}

var physicianSeeds = []physicianSeed{
	{"Sara Haddad", "Cardiology", "MD, FACC", 15, 500, "Consultant cardiologist specializing in preventive cardiology and echocardiography.", []string{"English", "Arabic"}},
	{"Omar Khalil", "Cardiology", "MBBS, MRCP", 9, 400, "Interventional cardiologist with a focus on coronary artery disease.", []string{"English", "Arabic"}},
	{"Priya Nair", "Dermatology", "MD, DDVL", 12, 450, "Dermatologist covering medical and cosmetic dermatology.", []string{"English", "Hindi", "Malayalam"}},
	{"Lena Petrova", "Dermatology", "MD", 7, 350, "Specialist in acne, eczema, and pediatric skin conditions.", []string{"English", "Russian"}},
	{"Ahmed Mansour", "Orthopedics", "MBBCh, FRCS", 18, 550, "Orthopedic surgeon specializing in sports injuries and joint replacement.", []string{"English", "Arabic"}},
	{"Maria Santos", "Pediatrics", "MD, DCH", 11, 300, "General pediatrician with an interest in childhood nutrition.", []string{"English", "Tagalog"}},
	{"James Okafor", "General Medicine", "MBBS", 8, 250, "Family physician for routine checkups and chronic disease management.", []string{"English"}},
}

var slotTimes = [][2]string{
	{"09:00", "09:30"},
	{"09:30", "10:00"},
	{"10:00", "10:30"},
	{"11:00", "11:30"},
	{"14:00", "14:30"},
	{"14:30", "15:00"},
	{"16:00", "16:30"},
}

func main() {
	_ = godotenv.Load()
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := seedClinicProfile(ctx, pool); err != nil {
		log.Fatalf("seed clinic profile: %v", err)
	}

	slots := 0
	for _, p := range physicianSeeds {
		id, err := seedPhysician(ctx, pool, p)
		if err != nil {
			log.Fatalf("seed physician %s: %v", p.name, err)
		}
		n, err := seedSchedule(ctx, pool, id)
		if err != nil {
			log.Fatalf("seed schedule for %s: %v", p.name, err)
		}
		slots += n
	}

	fmt.Printf("seeded %d physicians, %d schedule slots\n", len(physicianSeeds), slots)
}

func seedClinicProfile(ctx context.Context, pool *pgxpool.Pool) error {
	workingHours := map[string]string{
		"Monday":    "08:00 - 20:00",
		"Tuesday":   "08:00 - 20:00",
		"Wednesday": "08:00 - 20:00",
		"Thursday":  "08:00 - 20:00",
		"Friday":    "08:00 - 13:00",
		"Saturday":  "09:00 - 18:00",
		"Sunday":    "09:00 - 18:00",
	}

	// Single-row table keyed by a fixed UUID so reseeds update in place.
	profileID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	_, err := pool.Exec(ctx, `
		INSERT INTO clinic_profile (id, name, description, address, phone, email, website, working_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			working_hours = EXCLUDED.working_hours,
			updated_at = NOW()`,
		profileID,
		"Navi Medical Clinic",
		"A multi-specialty clinic offering cardiology, dermatology, orthopedics, pediatrics, and general medicine.",
		"Al Wasl Road, Jumeirah, Dubai, UAE",
		"+971 4 123 4567",
		"info@naviclinic.ae",
		"https://naviclinic.ae",
		workingHours,
	)
	return err
}

func seedPhysician(ctx context.Context, pool *pgxpool.Pool, p physicianSeed) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM physicians WHERE name = $1`, p.name).Scan(&id)
	if err == nil {
		return id, nil
	}

	id = uuid.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO physicians (id, name, specialty, qualification, experience_years, consultation_price, bio, languages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, p.name, p.specialty, p.qualification, p.experience, p.price, p.bio, p.languages,
	)
	return id, err
}

func seedSchedule(ctx context.Context, pool *pgxpool.Pool, physicianID uuid.UUID) (int, error) {
	count := 0
	today := time.Now()
	for day := 1; day <= 14; day++ {
		date := today.AddDate(0, 0, day)
		if date.Weekday() == time.Friday {
			continue
		}
		slotDate := date.Format("2006-01-02")
		for _, window := range slotTimes {
			tag, err := pool.Exec(ctx, `
				INSERT INTO schedule_slots (id, physician_id, slot_date, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (physician_id, slot_date, start_time) DO NOTHING`,
				uuid.New(), physicianID, slotDate, window[0], window[1],
			)
			if err != nil {
				return count, err
			}
			count += int(tag.RowsAffected())
		}
	}
	return count, nil
}
