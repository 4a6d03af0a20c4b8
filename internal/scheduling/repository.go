package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPhysicianNotFound indicates no active physician matched the query.
var ErrPhysicianNotFound = errors.New("scheduling: physician not found")

// ErrSlotUnavailable indicates the requested slot was already claimed.
var ErrSlotUnavailable = errors.New("scheduling: slot unavailable")

// ErrSlotNotFound indicates the slot id does not exist.
var ErrSlotNotFound = errors.New("scheduling: slot not found")

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const defaultSearchDays = 14

// Repository provides physician schedule and availability persistence.
type Repository struct {
	db         DB
	searchDays int
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &Repository{db: pool, searchDays: defaultSearchDays}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db, searchDays: defaultSearchDays}
}

// WithSearchWindow bounds how many days ahead NextAvailableDates looks.
func (r *Repository) WithSearchWindow(days int) *Repository {
	if days > 0 {
		r.searchDays = days
	}
	return r
}

// Specialties lists the distinct specialties of active physicians.
func (r *Repository) Specialties(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT specialty FROM physicians
		WHERE is_active
		ORDER BY specialty
	`)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list specialties: %w", err)
	}
	defer rows.Close()

	var specialties []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scheduling: scan specialty: %w", err)
		}
		specialties = append(specialties, s)
	}
	return specialties, rows.Err()
}

// BySpecialty returns active physicians for a specialty.
func (r *Repository) BySpecialty(ctx context.Context, specialty string) ([]Physician, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, specialty, qualification, experience_years,
		       consultation_price, bio, languages, is_active, created_at
		FROM physicians
		WHERE specialty = $1 AND is_active
		ORDER BY experience_years DESC
	`, specialty)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list physicians: %w", err)
	}
	defer rows.Close()

	var physicians []Physician
	for rows.Next() {
		var p Physician
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Specialty, &p.Qualification, &p.ExperienceYears,
			&p.ConsultationPrice, &p.Bio, &p.Languages, &p.IsActive, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan physician: %w", err)
		}
		physicians = append(physicians, p)
	}
	return physicians, rows.Err()
}

// ByName finds an active physician by partial, case-insensitive name match.
func (r *Repository) ByName(ctx context.Context, name string) (*Physician, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, qualification, experience_years,
		       consultation_price, bio, languages, is_active, created_at
		FROM physicians
		WHERE name ILIKE '%' || $1 || '%' AND is_active
		ORDER BY name
		LIMIT 1
	`, name)

	var p Physician
	if err := row.Scan(
		&p.ID, &p.Name, &p.Specialty, &p.Qualification, &p.ExperienceYears,
		&p.ConsultationPrice, &p.Bio, &p.Languages, &p.IsActive, &p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhysicianNotFound
		}
		return nil, fmt.Errorf("scheduling: find physician: %w", err)
	}
	return &p, nil
}

// OpenSlots lists available slots for a specialty on a date, earliest first.
func (r *Repository) OpenSlots(ctx context.Context, specialty, date string) ([]OpenSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, p.id, p.name, p.specialty, s.slot_date, s.start_time, s.end_time,
		       p.consultation_price
		FROM schedule_slots s
		JOIN physicians p ON p.id = s.physician_id
		WHERE p.specialty = $1 AND p.is_active AND s.slot_date = $2 AND s.is_available
		ORDER BY s.start_time
	`, specialty, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list open slots: %w", err)
	}
	defer rows.Close()

	var slots []OpenSlot
	for rows.Next() {
		var s OpenSlot
		if err := rows.Scan(
			&s.SlotID, &s.PhysicianID, &s.PhysicianName, &s.Specialty,
			&s.Date, &s.StartTime, &s.EndTime, &s.ConsultationPrice,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan open slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// NextAvailableDates returns up to limit dates after the given one with at
// least one open slot for the specialty, looking at most searchDays ahead.
// ISO dates compare lexicographically.
func (r *Repository) NextAvailableDates(ctx context.Context, specialty, afterDate string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT s.slot_date
		FROM schedule_slots s
		JOIN physicians p ON p.id = s.physician_id
		WHERE p.specialty = $1 AND p.is_active AND s.slot_date > $2 AND s.slot_date <= $3 AND s.is_available
		ORDER BY s.slot_date
		LIMIT $4
	`, specialty, afterDate, searchHorizon(afterDate, r.searchDays), limit)
	if err != nil {
		return nil, fmt.Errorf("scheduling: next available dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scheduling: scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// searchHorizon computes the inclusive upper bound date for a forward
// search. A malformed anchor date falls back to today.
func searchHorizon(afterDate string, days int) string {
	anchor, err := time.Parse("2006-01-02", afterDate)
	if err != nil {
		anchor = time.Now()
	}
	return anchor.AddDate(0, 0, days).Format("2006-01-02")
}

// PriceRanges aggregates consultation fees per specialty.
func (r *Repository) PriceRanges(ctx context.Context) ([]PriceRange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT specialty, MIN(consultation_price), MAX(consultation_price)
		FROM physicians
		WHERE is_active
		GROUP BY specialty
		ORDER BY specialty
	`)
	if err != nil {
		return nil, fmt.Errorf("scheduling: price ranges: %w", err)
	}
	defer rows.Close()

	var ranges []PriceRange
	for rows.Next() {
		var pr PriceRange
		if err := rows.Scan(&pr.Specialty, &pr.Min, &pr.Max); err != nil {
			return nil, fmt.Errorf("scheduling: scan price range: %w", err)
		}
		ranges = append(ranges, pr)
	}
	return ranges, rows.Err()
}

// ClaimSlot marks a slot unavailable if and only if it is still open.
// The conditional update is the only guard against double booking; two
// concurrent claims resolve on the row's atomic update.
func (r *Repository) ClaimSlot(ctx context.Context, physicianID uuid.UUID, date, startTime string) (*TimeSlot, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE schedule_slots
		SET is_available = FALSE
		WHERE physician_id = $1 AND slot_date = $2 AND start_time = $3 AND is_available
		RETURNING id, physician_id, slot_date, start_time, end_time, is_available
	`, physicianID, date, startTime)

	var slot TimeSlot
	if err := row.Scan(
		&slot.ID, &slot.PhysicianID, &slot.Date,
		&slot.StartTime, &slot.EndTime, &slot.IsAvailable,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("scheduling: claim slot: %w", err)
	}
	return &slot, nil
}

// ReleaseSlot marks a previously claimed slot available again.
func (r *Repository) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedule_slots SET is_available = TRUE WHERE id = $1
	`, slotID)
	if err != nil {
		return fmt.Errorf("scheduling: release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
