package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saram098/navi-backend-2/internal/scheduling"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

var bookingTracer = otel.Tracer("navi.internal.appointments")

// Store is the appointment persistence the service depends on.
type Store interface {
	Create(ctx context.Context, appt *Appointment) error
	ListForUser(ctx context.Context, userID uuid.UUID, statuses ...Status) ([]Summary, error)
	CancelReturningSlot(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID string) error
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*Appointment, error)
}

// SlotBook claims and releases schedule slots.
type SlotBook interface {
	ClaimSlot(ctx context.Context, physicianID uuid.UUID, date, startTime string) (*scheduling.TimeSlot, error)
	ReleaseSlot(ctx context.Context, slotID uuid.UUID) error
}

// Service coordinates slot claims with appointment records.
type Service struct {
	store  Store
	slots  SlotBook
	logger *logging.Logger
}

// NewService constructs a booking service.
func NewService(store Store, slots SlotBook, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if slots == nil {
		panic("appointments: slot book required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, slots: slots, logger: logger}
}

// Book claims the requested slot and creates a pending appointment for it.
// If the record cannot be written the slot is released again.
func (s *Service) Book(ctx context.Context, userID uuid.UUID, slot scheduling.OpenSlot) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("navi.user_id", userID.String()),
		attribute.String("navi.physician_id", slot.PhysicianID.String()),
		attribute.String("navi.date", slot.Date),
	)

	claimed, err := s.slots.ClaimSlot(ctx, slot.PhysicianID, slot.Date, slot.StartTime)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	appt := &Appointment{
		UserID:      userID,
		PhysicianID: slot.PhysicianID,
		SlotID:      claimed.ID,
		Date:        claimed.Date,
		StartTime:   claimed.StartTime,
		EndTime:     claimed.EndTime,
		Status:      StatusPending,
		Amount:      slot.ConsultationPrice,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		span.RecordError(err)
		if relErr := s.slots.ReleaseSlot(ctx, claimed.ID); relErr != nil {
			s.logger.Error("failed to release slot after booking error",
				"error", relErr, "slot_id", claimed.ID)
		}
		return nil, err
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID, "user_id", userID,
		"physician_id", slot.PhysicianID, "date", claimed.Date, "start", claimed.StartTime)
	return appt, nil
}

// Cancel moves the appointment to cancelled and frees exactly the slot it
// held. Only pending and confirmed appointments can be cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	ctx, span := bookingTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("navi.appointment_id", appointmentID.String()))

	slotID, err := s.store.CancelReturningSlot(ctx, appointmentID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.slots.ReleaseSlot(ctx, slotID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: free slot after cancel: %w", err)
	}

	s.logger.Info("appointment cancelled", "appointment_id", appointmentID, "slot_id", slotID)
	return nil
}

// Upcoming lists the user's pending and confirmed appointments.
func (s *Service) Upcoming(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	return s.store.ListForUser(ctx, userID, StatusPending, StatusConfirmed)
}

// AttachPaymentIntent records the Stripe payment intent for an appointment.
func (s *Service) AttachPaymentIntent(ctx context.Context, appointmentID uuid.UUID, paymentIntentID string) error {
	return s.store.AttachPaymentIntent(ctx, appointmentID, paymentIntentID)
}

// ConfirmPayment transitions the appointment tied to the payment intent to
// confirmed/paid.
func (s *Service) ConfirmPayment(ctx context.Context, paymentIntentID string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.confirm_payment")
	defer span.End()

	appt, err := s.store.ConfirmPayment(ctx, paymentIntentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment confirmed", "appointment_id", appt.ID, "payment_intent", paymentIntentID)
	return appt, nil
}
