package clinic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProfileNotFound indicates no clinic profile has been loaded yet.
var ErrProfileNotFound = errors.New("clinic: profile not found")

// Profile describes the clinic shown to chatbot users.
type Profile struct {
	Name         string
	Description  string
	Address      string
	Phone        string
	Email        string
	Website      string
	WorkingHours map[string]string
	UpdatedAt    *time.Time
}

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads the clinic profile.
type Store struct {
	db DB
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("clinic: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithDB allows injecting mocks for tests.
func NewStoreWithDB(db DB) *Store {
	return &Store{db: db}
}

// Get loads the clinic profile.
func (s *Store) Get(ctx context.Context) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT name, description, address, phone, email, website, working_hours, updated_at
		FROM clinic_profile
		LIMIT 1
	`)

	var p Profile
	if err := row.Scan(
		&p.Name, &p.Description, &p.Address, &p.Phone, &p.Email,
		&p.Website, &p.WorkingHours, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("clinic: load profile: %w", err)
	}
	return &p, nil
}

// weekday order for rendering working hours.
var weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// FormatWorkingHours renders working hours one day per line, weekdays first
// in calendar order, anything unrecognized after.
func FormatWorkingHours(hours map[string]string) string {
	if len(hours) == 0 {
		return ""
	}

	var lines []string
	seen := make(map[string]struct{}, len(hours))
	for _, day := range weekdays {
		if h, ok := hours[day]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", day, h))
			seen[day] = struct{}{}
		}
	}

	var rest []string
	for day := range hours {
		if _, ok := seen[day]; !ok {
			rest = append(rest, day)
		}
	}
	sort.Strings(rest)
	for _, day := range rest {
		lines = append(lines, fmt.Sprintf("%s: %s", day, hours[day]))
	}

	return strings.Join(lines, "\n")
}
