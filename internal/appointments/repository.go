package appointments

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

// ErrNotFound indicates the appointment does not exist.
var ErrNotFound = errors.New("appointments: not found")

// ErrNotCancellable indicates the appointment is not in a cancellable state.
var ErrNotCancellable = errors.New("appointments: not cancellable")

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides appointment persistence.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending appointment row.
func (r *Repository) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if appt.PaymentStatus == "" {
		appt.PaymentStatus = PaymentPending
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, user_id, physician_id, slot_id, appointment_date,
			start_time, end_time, status, payment_status, amount, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, appt.ID, appt.UserID, appt.PhysicianID, appt.SlotID, appt.Date,
		appt.StartTime, appt.EndTime, appt.Status, appt.PaymentStatus,
		appt.Amount, appt.Notes)

	if err := row.Scan(&appt.CreatedAt); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// GetByID loads a single appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, physician_id, slot_id, appointment_date, start_time,
		       end_time, status, payment_status, COALESCE(payment_intent_id, ''),
		       amount, COALESCE(notes, ''), created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)

	var appt Appointment
	if err := row.Scan(
		&appt.ID, &appt.UserID, &appt.PhysicianID, &appt.SlotID, &appt.Date,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.PaymentStatus,
		&appt.PaymentIntentID, &appt.Amount, &appt.Notes,
		&appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: load: %w", err)
	}
	return &appt, nil
}

// ListForUser returns the user's appointments in the given states, joined
// with physician details, ordered by date then start time.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, statuses ...Status) ([]Summary, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusPending, StatusConfirmed}
	}
	states := make([]string, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, string(s))
	}

	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.appointment_date, a.start_time, a.end_time, a.status,
		       a.payment_status, a.amount, p.name, p.specialty
		FROM appointments a
		JOIN physicians p ON p.id = a.physician_id
		WHERE a.user_id = $1 AND a.status = ANY($2)
		ORDER BY a.appointment_date, a.start_time
	`, userID, states)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for user: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.Status,
			&s.PaymentStatus, &s.Amount, &s.PhysicianName, &s.Specialty,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CancelReturningSlot moves a pending or confirmed appointment to cancelled
// and reports which slot it held. The status guard makes the transition
// atomic at the row level.
func (r *Repository) CancelReturningSlot(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING slot_id
	`, id, StatusCancelled, time.Now().UTC())

	var slotID uuid.UUID
	if err := row.Scan(&slotID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotCancellable
		}
		return uuid.Nil, fmt.Errorf("appointments: cancel: %w", err)
	}
	return slotID, nil
}

// AttachPaymentIntent records the payment intent created for an appointment.
func (r *Repository) AttachPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET payment_intent_id = $2, updated_at = $3
		WHERE id = $1
	`, id, paymentIntentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("appointments: attach payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmPayment flips a pending appointment to confirmed/paid once its
// payment intent succeeds.
func (r *Repository) ConfirmPayment(ctx context.Context, paymentIntentID string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, payment_status = $3, updated_at = $4
		WHERE payment_intent_id = $1 AND status = 'pending'
		RETURNING id, user_id, physician_id, slot_id, appointment_date, start_time,
		          end_time, status, payment_status, COALESCE(payment_intent_id, ''),
		          amount, COALESCE(notes, ''), created_at, updated_at
	`, paymentIntentID, StatusConfirmed, PaymentPaid, time.Now().UTC())

	var appt Appointment
	if err := row.Scan(
		&appt.ID, &appt.UserID, &appt.PhysicianID, &appt.SlotID, &appt.Date,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.PaymentStatus,
		&appt.PaymentIntentID, &appt.Amount, &appt.Notes,
		&appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: confirm payment: %w", err)
	}
	return &appt, nil
}
