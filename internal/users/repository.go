package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("users: not found")

// User is a clinic patient identified by their WhatsApp phone number.
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	FirstName   string
	LastName    string
	EmiratesID  string
	IsActive    bool
	IsVerified  bool
	CreatedAt   time.Time
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository stores users keyed by phone number.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// NormalizePhone ensures the E.164-ish "+"-prefixed form used as the key.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return phone
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

// GetOrCreateByPhone looks up a user by phone number, creating a
// placeholder profile on first contact.
func (r *Repository) GetOrCreateByPhone(ctx context.Context, phone string) (*User, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, errors.New("users: phone required")
	}

	user, err := r.byPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id := uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, phone_number)
		VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET phone_number = EXCLUDED.phone_number
		RETURNING id, phone_number, first_name, last_name, COALESCE(emirates_id, ''),
		          is_active, is_verified, created_at
	`, id, phone)

	var u User
	if err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.FirstName, &u.LastName, &u.EmiratesID,
		&u.IsActive, &u.IsVerified, &u.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return &u, nil
}

func (r *Repository) byPhone(ctx context.Context, phone string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, phone_number, first_name, last_name, COALESCE(emirates_id, ''),
		       is_active, is_verified, created_at
		FROM users
		WHERE phone_number = $1
	`, phone)

	var u User
	if err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.FirstName, &u.LastName, &u.EmiratesID,
		&u.IsActive, &u.IsVerified, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: load by phone: %w", err)
	}
	return &u, nil
}

// SetEmiratesID remembers the Emirates ID provided during an insurance check.
func (r *Repository) SetEmiratesID(ctx context.Context, userID uuid.UUID, emiratesID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET emirates_id = $2 WHERE id = $1
	`, userID, emiratesID)
	if err != nil {
		return fmt.Errorf("users: set emirates id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasPlaceholderName reports whether the profile still carries the initial
// WhatsApp placeholder, used to pick the greeting variant.
func (u *User) HasPlaceholderName() bool {
	return u.FirstName == "" || u.FirstName == "WhatsApp"
}
