package payments

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saram098/navi-backend-2/pkg/logging"
)

var paymentsTracer = otel.Tracer("navi.internal.payments")

// intentClient is the subset of the Stripe payment intent API the service
// uses, extracted so tests can stub it.
type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

// AppointmentAttacher links a created payment intent back to its appointment.
type AppointmentAttacher interface {
	AttachPaymentIntent(ctx context.Context, appointmentID uuid.UUID, paymentIntentID string) error
}

// Service creates Stripe payment intents for consultation fees.
type Service struct {
	intents      intentClient
	appointments AppointmentAttacher
	currency     string
	logger       *logging.Logger
}

// NewService builds a payment service from a configured Stripe client.
func NewService(api *client.API, appointments AppointmentAttacher, currency string, logger *logging.Logger) *Service {
	if api == nil {
		panic("payments: stripe client required")
	}
	return newService(api.PaymentIntents, appointments, currency, logger)
}

func newService(intents intentClient, appointments AppointmentAttacher, currency string, logger *logging.Logger) *Service {
	if intents == nil {
		panic("payments: intent client required")
	}
	if appointments == nil {
		panic("payments: appointment attacher required")
	}
	if currency == "" {
		currency = "aed"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		intents:      intents,
		appointments: appointments,
		currency:     currency,
		logger:       logger,
	}
}

// CreateForAppointment opens a payment intent covering the consultation fee
// and records its ID on the appointment. amount is in whole currency units.
func (s *Service) CreateForAppointment(ctx context.Context, appointmentID uuid.UUID, amount float64, description string) (*stripe.PaymentIntent, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.create_intent")
	defer span.End()
	span.SetAttributes(attribute.String("navi.appointment_id", appointmentID.String()))

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toSmallestUnit(amount)),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", appointmentID.String())

	intent, err := s.intents.New(params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payments: failed to create payment intent: %w", err)
	}

	if err := s.appointments.AttachPaymentIntent(ctx, appointmentID, intent.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("payment intent created",
		"payment_intent_id", intent.ID, "appointment_id", appointmentID, "amount", amount)
	return intent, nil
}

// StartPayment opens a payment intent and returns its ID for the chatbot
// to quote back to the patient.
func (s *Service) StartPayment(ctx context.Context, appointmentID uuid.UUID, amount float64, description string) (string, error) {
	intent, err := s.CreateForAppointment(ctx, appointmentID, amount, description)
	if err != nil {
		return "", err
	}
	return intent.ID, nil
}

// CancelIntent voids an intent after its appointment is cancelled. A missing
// or already-finalized intent is not an error.
func (s *Service) CancelIntent(ctx context.Context, paymentIntentID string) error {
	if paymentIntentID == "" {
		return nil
	}
	ctx, span := paymentsTracer.Start(ctx, "payments.cancel_intent")
	defer span.End()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := s.intents.Cancel(paymentIntentID, params); err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: failed to cancel payment intent: %w", err)
	}
	return nil
}

// GetIntent fetches the current state of a payment intent.
func (s *Service) GetIntent(ctx context.Context, paymentIntentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := s.intents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("payments: failed to fetch payment intent: %w", err)
	}
	return intent, nil
}

// toSmallestUnit converts whole currency units to fils.
func toSmallestUnit(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
