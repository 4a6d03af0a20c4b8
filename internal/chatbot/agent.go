package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saram098/navi-backend-2/internal/appointments"
	"github.com/saram098/navi-backend-2/internal/clinic"
	"github.com/saram098/navi-backend-2/internal/insurance"
	"github.com/saram098/navi-backend-2/internal/observability/metrics"
	"github.com/saram098/navi-backend-2/internal/scheduling"
	"github.com/saram098/navi-backend-2/internal/users"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

var agentTracer = otel.Tracer("navi.internal.chatbot")

const apologyReply = "I'm sorry, I encountered an error while processing your request. " +
	"Please try again later or contact our clinic directly for assistance."

const helpReply = "I'm not sure I understand your request. Here are some things I can help you with:\n\n" +
	"- Book a doctor appointment\n" +
	"- Check physician availability\n" +
	"- Get information about our physicians\n" +
	"- Check your insurance coverage\n" +
	"- Provide clinic information\n\n" +
	"How can I assist you today?"

const (
	maxSpecialtiesShown = 5
	maxPhysiciansShown  = 3
	maxTimesShown       = 6
	maxSlotsShown       = 8
)

// UserDirectory resolves and updates patient profiles.
type UserDirectory interface {
	GetOrCreateByPhone(ctx context.Context, phone string) (*users.User, error)
	SetEmiratesID(ctx context.Context, userID uuid.UUID, emiratesID string) error
}

// PhysicianDirectory answers physician lookups.
type PhysicianDirectory interface {
	Specialties(ctx context.Context) ([]string, error)
	BySpecialty(ctx context.Context, specialty string) ([]scheduling.Physician, error)
	ByName(ctx context.Context, name string) (*scheduling.Physician, error)
	PriceRanges(ctx context.Context) ([]scheduling.PriceRange, error)
}

// AvailabilitySource answers open-slot queries.
type AvailabilitySource interface {
	OpenSlots(ctx context.Context, specialty, date string) ([]scheduling.OpenSlot, error)
	NextAvailableDates(ctx context.Context, specialty, afterDate string, limit int) ([]string, error)
}

// AppointmentBook books and cancels appointments.
type AppointmentBook interface {
	Book(ctx context.Context, userID uuid.UUID, slot scheduling.OpenSlot) (*appointments.Appointment, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID) error
	Upcoming(ctx context.Context, userID uuid.UUID) ([]appointments.Summary, error)
}

// InsuranceVerifier checks coverage by Emirates ID.
type InsuranceVerifier interface {
	Verify(ctx context.Context, emiratesID string) (*insurance.Verification, error)
}

// ClinicProfileSource loads the clinic profile.
type ClinicProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

// GeneralResponder produces a free-form reply for messages that match no
// intent. Optional; the static help text is the fallback.
type GeneralResponder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// PaymentStarter opens a payment for a freshly booked appointment and
// returns a reference the patient can quote. Optional.
type PaymentStarter interface {
	StartPayment(ctx context.Context, appointmentID uuid.UUID, amount float64, description string) (string, error)
}

// AgentConfig wires the agent's collaborators.
type AgentConfig struct {
	Sessions     *SessionStore
	Classifier   Classifier
	Responder    GeneralResponder
	Users        UserDirectory
	Physicians   PhysicianDirectory
	Availability AvailabilitySource
	Appointments AppointmentBook
	Insurance    InsuranceVerifier
	Clinic       ClinicProfileSource
	Payments     PaymentStarter
	Metrics      *metrics.ChatbotMetrics
	Logger       *logging.Logger

	// ClinicName personalizes greetings and fallbacks.
	ClinicName string
	// NextDatesLimit caps the "next available dates" suggestion list.
	NextDatesLimit int
}

// Agent processes inbound WhatsApp messages: it classifies each turn,
// accumulates scheduling slots in the per-user session, and dispatches to
// the booking, availability, and cancellation workflows.
type Agent struct {
	sessions     *SessionStore
	classifier   Classifier
	responder    GeneralResponder
	users        UserDirectory
	physicians   PhysicianDirectory
	availability AvailabilitySource
	appointments AppointmentBook
	insurance    InsuranceVerifier
	clinic       ClinicProfileSource
	payments     PaymentStarter
	metrics      *metrics.ChatbotMetrics
	logger       *logging.Logger

	clinicName     string
	nextDatesLimit int
}

// NewAgent validates the configuration and builds an agent.
func NewAgent(cfg AgentConfig) *Agent {
	if cfg.Sessions == nil {
		panic("chatbot: session store required")
	}
	if cfg.Classifier == nil {
		panic("chatbot: classifier required")
	}
	if cfg.Users == nil {
		panic("chatbot: user directory required")
	}
	if cfg.Physicians == nil {
		panic("chatbot: physician directory required")
	}
	if cfg.Availability == nil {
		panic("chatbot: availability source required")
	}
	if cfg.Appointments == nil {
		panic("chatbot: appointment book required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.NextDatesLimit <= 0 {
		cfg.NextDatesLimit = 3
	}
	if cfg.ClinicName == "" {
		cfg.ClinicName = "our clinic"
	}
	return &Agent{
		sessions:       cfg.Sessions,
		classifier:     cfg.Classifier,
		responder:      cfg.Responder,
		users:          cfg.Users,
		physicians:     cfg.Physicians,
		availability:   cfg.Availability,
		appointments:   cfg.Appointments,
		insurance:      cfg.Insurance,
		clinic:         cfg.Clinic,
		payments:       cfg.Payments,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		clinicName:     cfg.ClinicName,
		nextDatesLimit: cfg.NextDatesLimit,
	}
}

// ProcessMessage handles one inbound message and returns the reply text.
// Every failure surfaces as the generic apology so the conversation never
// leaks internals to the user.
func (a *Agent) ProcessMessage(ctx context.Context, phone, message string) string {
	started := time.Now()
	reply, intent, err := a.process(ctx, phone, message)
	a.metrics.ObserveTurnLatency(string(intent), time.Since(started).Seconds())
	if err != nil {
		a.logger.Error("failed to process message", "error", err, "phone", phone)
		a.metrics.ObserveReply("error")
		return apologyReply
	}
	a.metrics.ObserveReply("ok")
	return reply
}

func (a *Agent) process(ctx context.Context, phone, message string) (string, Intent, error) {
	ctx, span := agentTracer.Start(ctx, "chatbot.process_message")
	defer span.End()

	user, err := a.users.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		span.RecordError(err)
		return "", IntentOther, err
	}

	session, err := a.sessions.Load(ctx, user.PhoneNumber)
	if err != nil {
		span.RecordError(err)
		return "", IntentOther, err
	}

	cls := a.classifier.Classify(ctx, message)
	a.metrics.ObserveMessage(string(cls.Intent))
	span.SetAttributes(
		attribute.String("navi.intent", string(cls.Intent)),
		attribute.String("navi.session_intent", string(session.Intent)),
	)
	a.logger.Info("processing message",
		"phone", user.PhoneNumber, "intent", cls.Intent, "session_intent", session.Intent)

	// A numbered reply mid cancel/reschedule selects from the stored list.
	if len(session.Appointments) > 0 &&
		(session.Intent == IntentCancelAppointment || session.Intent == IntentRescheduleAppointment) {
		if choice, ok := parseSelection(message, len(session.Appointments)); ok {
			reply, err := a.handleSelection(ctx, user, session, choice)
			return reply, session.Intent, err
		}
	}

	// An unclassifiable turn inside an active flow continues that flow;
	// the entities extracted from it still merge into the session.
	intent := cls.Intent
	if intent == IntentOther && session.Active() {
		intent = session.Intent
	}

	var reply string
	switch intent {
	case IntentBookAppointment:
		reply, err = a.handleBookAppointment(ctx, user, session, cls.Entities)
	case IntentCheckAvailability:
		reply, err = a.handleCheckAvailability(ctx, user, session, cls.Entities)
	case IntentCancelAppointment:
		reply, err = a.handleCancelOrReschedule(ctx, user, session, IntentCancelAppointment)
	case IntentRescheduleAppointment:
		reply, err = a.handleCancelOrReschedule(ctx, user, session, IntentRescheduleAppointment)
	case IntentPhysicianInfo:
		reply, err = a.handlePhysicianInfo(ctx, cls.Entities)
	case IntentInsuranceCheck:
		reply, err = a.handleInsuranceCheck(ctx, user, message, cls.Entities)
	case IntentClinicInfo:
		reply, err = a.handleClinicInfo(ctx)
	case IntentPricing:
		reply, err = a.handlePricing(ctx, cls.Entities)
	case IntentGreeting:
		reply = a.handleGreeting(user)
	default:
		reply = a.handleOther(ctx, message)
	}
	if err != nil {
		span.RecordError(err)
	}
	return reply, intent, err
}

// mergeEntities overlays freshly extracted entities onto the stored slots.
func mergeEntities(session *Session, ent Entities) {
	if ent.Specialty != "" {
		session.Specialty = ent.Specialty
	}
	if ent.Date != "" {
		session.Date = ent.Date
	}
	if ent.Time != "" {
		session.Time = normalizeClock(ent.Time)
	}
}

// handleBookAppointment advances the slot-filling flow. Missing fields are
// asked for in fixed order: specialty, then date, then time.
func (a *Agent) handleBookAppointment(ctx context.Context, user *users.User, session *Session, ent Entities) (string, error) {
	session.Intent = IntentBookAppointment
	mergeEntities(session, ent)

	switch {
	case session.Specialty == "":
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		specialties, err := a.physicians.Specialties(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"I'd be happy to help you book an appointment. "+
				"What type of specialist would you like to see? "+
				"Our available specialties include: %s",
			joinLimited(specialties, maxSpecialtiesShown)), nil

	case session.Date == "":
		physicians, err := a.physicians.BySpecialty(ctx, session.Specialty)
		if err != nil {
			return "", err
		}
		if len(physicians) == 0 {
			specialty := session.Specialty
			session.Specialty = ""
			if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
				return "", err
			}
			return fmt.Sprintf(
				"I'm sorry, we don't have any %s specialists available currently. "+
					"Would you like to check another specialty?", specialty), nil
		}
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"Great! Here are some of our %s specialists:\n\n%s\n\n"+
				"What date would you like to book your appointment? "+
				"(Please specify in YYYY-MM-DD format, e.g., 2025-06-02)",
			session.Specialty, formatPhysicianFees(physicians, maxPhysiciansShown)), nil

	case session.Time == "":
		slots, err := a.availability.OpenSlots(ctx, session.Specialty, session.Date)
		if err != nil {
			return "", err
		}
		if len(slots) == 0 {
			date := session.Date
			session.Date = ""
			if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
				return "", err
			}
			return fmt.Sprintf(
				"I'm sorry, there are no available appointments for %s on %s. "+
					"Would you like to try another date?", session.Specialty, date), nil
		}
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"What time would you prefer for your %s appointment on %s? Available times: %s",
			session.Specialty, session.Date, formatStartTimes(slots, maxTimesShown)), nil

	default:
		return a.completeBooking(ctx, user, session)
	}
}

// completeBooking runs once all three slots are filled: it claims the
// matching schedule slot, creates the pending appointment, and clears the
// session.
func (a *Agent) completeBooking(ctx context.Context, user *users.User, session *Session) (string, error) {
	slots, err := a.availability.OpenSlots(ctx, session.Specialty, session.Date)
	if err != nil {
		return "", err
	}

	var chosen *scheduling.OpenSlot
	for i := range slots {
		if normalizeClock(slots[i].StartTime) == session.Time {
			chosen = &slots[i]
			break
		}
	}
	if chosen == nil {
		requested := session.Time
		session.Time = ""
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		if len(slots) == 0 {
			return fmt.Sprintf(
				"I'm sorry, %s on %s is no longer available and there are no other openings that day. "+
					"Would you like to try another date?", requested, session.Date), nil
		}
		return fmt.Sprintf(
			"I'm sorry, %s is no longer available on %s. Available times: %s",
			requested, session.Date, formatStartTimes(slots, maxTimesShown)), nil
	}

	appt, err := a.appointments.Book(ctx, user.ID, *chosen)
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotUnavailable) {
			session.Time = ""
			if saveErr := a.sessions.Save(ctx, user.PhoneNumber, session); saveErr != nil {
				return "", saveErr
			}
			return fmt.Sprintf(
				"I'm sorry, that time was just taken. Would you like to pick another time on %s?",
				session.Date), nil
		}
		return "", err
	}

	if err := a.sessions.Clear(ctx, user.PhoneNumber); err != nil {
		return "", err
	}
	a.metrics.ObserveBooking(chosen.Specialty)
	a.logger.Info("appointment booked via chatbot",
		"appointment_id", appt.ID, "user_id", user.ID, "specialty", chosen.Specialty)

	paymentNote := ""
	if a.payments != nil {
		description := fmt.Sprintf("%s consultation with Dr. %s on %s", chosen.Specialty, chosen.PhysicianName, appt.Date)
		ref, err := a.payments.StartPayment(ctx, appt.ID, appt.Amount, description)
		if err != nil {
			// The booking stands; payment can be collected at the clinic.
			a.logger.Warn("failed to start payment for booking",
				"error", err, "appointment_id", appt.ID)
		} else {
			paymentNote = fmt.Sprintf(" Payment reference: %s.", ref)
		}
	}

	return fmt.Sprintf(
		"Great! I've booked your %s appointment with Dr. %s on %s at %s. "+
			"The consultation fee is %.0f AED; the booking is confirmed once payment completes.%s "+
			"Would you like me to help you check your insurance coverage first? "+
			"Just reply with 'yes' or send your Emirates ID number.",
		chosen.Specialty, chosen.PhysicianName, appt.Date, appt.StartTime, appt.Amount, paymentNote), nil
}

// handleCheckAvailability asks for specialty then date, then lists open
// slots; when the day is full it suggests the next available dates.
func (a *Agent) handleCheckAvailability(ctx context.Context, user *users.User, session *Session, ent Entities) (string, error) {
	session.Intent = IntentCheckAvailability
	mergeEntities(session, ent)

	switch {
	case session.Specialty == "":
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		specialties, err := a.physicians.Specialties(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"I can help you check physician availability. Which specialty are you interested in? "+
				"Our available specialties include: %s",
			joinLimited(specialties, maxSpecialtiesShown)), nil

	case session.Date == "":
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"For which date would you like to check %s appointments? "+
				"Please specify in YYYY-MM-DD format, e.g., 2025-06-02", session.Specialty), nil
	}

	slots, err := a.availability.OpenSlots(ctx, session.Specialty, session.Date)
	if err != nil {
		return "", err
	}

	if len(slots) == 0 {
		nextDates, err := a.availability.NextAvailableDates(ctx, session.Specialty, session.Date, a.nextDatesLimit)
		if err != nil {
			return "", err
		}
		specialty, date := session.Specialty, session.Date
		session.Date = ""
		if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
			return "", err
		}
		if len(nextDates) == 0 {
			return fmt.Sprintf(
				"I'm sorry, there are no available appointments for %s in the near future. "+
					"Please contact our clinic directly for assistance.", specialty), nil
		}
		return fmt.Sprintf(
			"I'm sorry, there are no available appointments for %s on %s. "+
				"The next available dates are: %s. "+
				"Would you like to check availability for any of these dates?",
			specialty, date, strings.Join(nextDates, ", ")), nil
	}

	if err := a.sessions.Clear(ctx, user.PhoneNumber); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Here are the available appointments for %s on %s:\n\n%s\n\n"+
			"Would you like to book any of these appointments? Just reply with the time you prefer.",
		session.Specialty, session.Date, formatSlotLines(slots, maxSlotsShown)), nil
}

// handleCancelOrReschedule lists the user's upcoming appointments and
// stores their IDs in the session so the next numbered reply selects one.
func (a *Agent) handleCancelOrReschedule(ctx context.Context, user *users.User, session *Session, intent Intent) (string, error) {
	upcoming, err := a.appointments.Upcoming(ctx, user.ID)
	if err != nil {
		return "", err
	}

	verb := "cancel"
	if intent == IntentRescheduleAppointment {
		verb = "reschedule"
	}

	if len(upcoming) == 0 {
		if err := a.sessions.Clear(ctx, user.PhoneNumber); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"You don't have any upcoming appointments to %s. "+
				"Would you like to book a new appointment instead?", verb), nil
	}

	session.Intent = intent
	session.Appointments = make([]string, 0, len(upcoming))
	for _, appt := range upcoming {
		session.Appointments = append(session.Appointments, appt.ID.String())
	}
	if err := a.sessions.Save(ctx, user.PhoneNumber, session); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Here are your upcoming appointments:\n\n%s\n\n"+
			"Which appointment would you like to %s? Please reply with the number.",
		formatAppointmentLines(upcoming), verb), nil
}

// handleSelection resolves a numbered reply against the stored list and
// performs the cancel (or cancel-then-rebook for reschedule).
func (a *Agent) handleSelection(ctx context.Context, user *users.User, session *Session, choice int) (string, error) {
	apptID, err := uuid.Parse(session.Appointments[choice-1])
	if err != nil {
		return "", fmt.Errorf("chatbot: corrupt appointment reference in session: %w", err)
	}

	upcoming, err := a.appointments.Upcoming(ctx, user.ID)
	if err != nil {
		return "", err
	}
	var selected *appointments.Summary
	for i := range upcoming {
		if upcoming[i].ID == apptID {
			selected = &upcoming[i]
			break
		}
	}

	if err := a.appointments.Cancel(ctx, apptID); err != nil {
		if errors.Is(err, appointments.ErrNotCancellable) {
			if clearErr := a.sessions.Clear(ctx, user.PhoneNumber); clearErr != nil {
				return "", clearErr
			}
			return "That appointment can no longer be changed. " +
				"Please contact our clinic directly for assistance.", nil
		}
		return "", err
	}
	a.metrics.ObserveCancellation()

	if session.Intent == IntentRescheduleAppointment && selected != nil {
		// Roll straight into a booking flow pre-filled with the specialty.
		next := &Session{Intent: IntentBookAppointment, Specialty: selected.Specialty}
		if err := a.sessions.Save(ctx, user.PhoneNumber, next); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"Your %s appointment on %s at %s has been cancelled. Let's find you a new time. "+
				"What date would you like? (Please specify in YYYY-MM-DD format)",
			selected.Specialty, selected.Date, selected.StartTime), nil
	}

	if err := a.sessions.Clear(ctx, user.PhoneNumber); err != nil {
		return "", err
	}
	if selected != nil {
		return fmt.Sprintf(
			"Your %s appointment on %s at %s has been cancelled. "+
				"The slot is available again for other patients. Is there anything else I can help you with?",
			selected.Specialty, selected.Date, selected.StartTime), nil
	}
	return "Your appointment has been cancelled. Is there anything else I can help you with?", nil
}

func (a *Agent) handlePhysicianInfo(ctx context.Context, ent Entities) (string, error) {
	if ent.PhysicianName != "" {
		physician, err := a.physicians.ByName(ctx, ent.PhysicianName)
		if err == nil {
			return formatPhysicianDetails(physician), nil
		}
		if !errors.Is(err, scheduling.ErrPhysicianNotFound) {
			return "", err
		}
		// Unknown name; fall through to specialty handling if present.
	}

	if ent.Specialty != "" {
		physicians, err := a.physicians.BySpecialty(ctx, ent.Specialty)
		if err != nil {
			return "", err
		}
		if len(physicians) == 0 {
			return fmt.Sprintf(
				"I'm sorry, we don't have any %s specialists available currently. "+
					"Would you like to check another specialty?", ent.Specialty), nil
		}
		return formatPhysicianList(physicians), nil
	}

	specialties, err := a.physicians.Specialties(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"I can provide information about our physicians. "+
			"Are you looking for a specific specialty? Our available specialties include: %s. "+
			"Or if you know the doctor's name, you can mention that as well.",
		joinLimited(specialties, maxSpecialtiesShown)), nil
}

func (a *Agent) handleInsuranceCheck(ctx context.Context, user *users.User, message string, ent Entities) (string, error) {
	if a.insurance == nil {
		return helpReply, nil
	}

	emiratesID := ent.EmiratesID
	if emiratesID == "" {
		emiratesID = insurance.ExtractEmiratesID(message)
	}
	if emiratesID == "" {
		emiratesID = user.EmiratesID
	}
	if emiratesID == "" {
		return "To check your insurance coverage, I'll need your Emirates ID number. " +
			"Please provide your Emirates ID in the format XXX-XXXX-XXXXXXX-X", nil
	}

	result, err := a.insurance.Verify(ctx, emiratesID)
	if err != nil {
		return "", err
	}

	if user.EmiratesID == "" && result.Status != insurance.StatusError {
		if err := a.users.SetEmiratesID(ctx, user.ID, emiratesID); err != nil {
			return "", err
		}
	}

	return formatInsuranceResult(result), nil
}

func (a *Agent) handleClinicInfo(ctx context.Context) (string, error) {
	fallback := fmt.Sprintf(
		"%s provides comprehensive healthcare services with a team of "+
			"experienced physicians. For specific details about our location and contact "+
			"information, please call our reception.", a.clinicName)

	if a.clinic == nil {
		return fallback, nil
	}
	profile, err := a.clinic.Get(ctx)
	if err != nil {
		if errors.Is(err, clinic.ErrProfileNotFound) {
			return fallback, nil
		}
		return "", err
	}

	return fmt.Sprintf(
		"%s\n\n%s\n\nAddress: %s\nPhone: %s\nEmail: %s\nWebsite: %s\n\nWorking Hours:\n%s\n\n"+
			"How can I assist you further? Would you like to book an appointment or check physician availability?",
		profile.Name, profile.Description, valueOr(profile.Address), valueOr(profile.Phone),
		valueOr(profile.Email), valueOr(profile.Website),
		clinic.FormatWorkingHours(profile.WorkingHours)), nil
}

func (a *Agent) handlePricing(ctx context.Context, ent Entities) (string, error) {
	if ent.Specialty == "" {
		ranges, err := a.physicians.PriceRanges(ctx)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(ranges))
		for _, r := range ranges {
			lines = append(lines, fmt.Sprintf("%s: %.0f - %.0f AED", r.Specialty, r.Min, r.Max))
		}
		return fmt.Sprintf(
			"Here are our consultation price ranges by specialty:\n\n%s\n\n"+
				"Would you like more detailed pricing for a specific specialty?",
			strings.Join(lines, "\n")), nil
	}

	physicians, err := a.physicians.BySpecialty(ctx, ent.Specialty)
	if err != nil {
		return "", err
	}
	if len(physicians) == 0 {
		return fmt.Sprintf(
			"I'm sorry, we don't have any %s specialists available currently. "+
				"Would you like to check pricing for another specialty?", ent.Specialty), nil
	}

	sort.Slice(physicians, func(i, j int) bool {
		return physicians[i].ConsultationPrice < physicians[j].ConsultationPrice
	})
	return fmt.Sprintf(
		"Here are the consultation prices for our %s specialists:\n\n%s\n\n"+
			"Would you like to book an appointment with one of these physicians?",
		ent.Specialty, formatPhysicianFees(physicians, maxSpecialtiesShown)), nil
}

func (a *Agent) handleGreeting(user *users.User) string {
	if user.HasPlaceholderName() {
		return fmt.Sprintf(
			"Hello! Welcome to %s. How can I help you today? "+
				"You can ask about booking appointments, physician information, "+
				"insurance checks, or clinic information.", a.clinicName)
	}
	return fmt.Sprintf(
		"Hello %s! Welcome back to %s. How can I help you today?",
		user.FirstName, a.clinicName)
}

func (a *Agent) handleOther(ctx context.Context, message string) string {
	if a.responder != nil {
		if reply, err := a.responder.Reply(ctx, message); err == nil {
			return reply
		} else {
			a.logger.Warn("general responder failed, using static help", "error", err)
		}
	}
	return helpReply
}

// parseSelection reads a 1-based list choice from the message.
func parseSelection(message string, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(message), ".")))
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

// normalizeClock pads "9:00" style times to "09:00".
func normalizeClock(t string) string {
	t = strings.TrimSpace(t)
	if len(t) == 4 && t[1] == ':' {
		return "0" + t
	}
	return t
}

func joinLimited(items []string, max int) string {
	if len(items) > max {
		items = items[:max]
	}
	return strings.Join(items, ", ")
}

func formatPhysicianFees(physicians []scheduling.Physician, max int) string {
	if len(physicians) > max {
		physicians = physicians[:max]
	}
	lines := make([]string, 0, len(physicians))
	for _, p := range physicians {
		lines = append(lines, fmt.Sprintf("Dr. %s - %d years experience, %.0f AED",
			p.Name, p.ExperienceYears, p.ConsultationPrice))
	}
	return strings.Join(lines, "\n")
}

func formatStartTimes(slots []scheduling.OpenSlot, max int) string {
	if len(slots) > max {
		slots = slots[:max]
	}
	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.StartTime)
	}
	return strings.Join(times, ", ")
}

func formatSlotLines(slots []scheduling.OpenSlot, max int) string {
	if len(slots) > max {
		slots = slots[:max]
	}
	lines := make([]string, 0, len(slots))
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("%s - %s (Dr. %s)", s.StartTime, s.EndTime, s.PhysicianName))
	}
	return strings.Join(lines, "\n")
}

func formatAppointmentLines(summaries []appointments.Summary) string {
	lines := make([]string, 0, len(summaries))
	for i, appt := range summaries {
		lines = append(lines, fmt.Sprintf("%d. %s at %s with Dr. %s (%s)",
			i+1, appt.Date, appt.StartTime, appt.PhysicianName, appt.Specialty))
	}
	return strings.Join(lines, "\n")
}

func formatPhysicianDetails(p *scheduling.Physician) string {
	return fmt.Sprintf(
		"Dr. %s\n\nSpecialty: %s\nQualification: %s\nExperience: %d years\n"+
			"Languages: %s\nConsultation fee: %.0f AED\n\n%s\n\n"+
			"Would you like to book an appointment with Dr. %s?",
		p.Name, p.Specialty, p.Qualification, p.ExperienceYears,
		strings.Join(p.Languages, ", "), p.ConsultationPrice, p.Bio, p.Name)
}

func formatPhysicianList(physicians []scheduling.Physician) string {
	if len(physicians) > maxSpecialtiesShown {
		physicians = physicians[:maxSpecialtiesShown]
	}
	lines := make([]string, 0, len(physicians))
	for i, p := range physicians {
		lines = append(lines, fmt.Sprintf("%d. Dr. %s - %s\n   Experience: %d years\n   Fee: %.0f AED",
			i+1, p.Name, p.Specialty, p.ExperienceYears, p.ConsultationPrice))
	}
	return fmt.Sprintf(
		"Here are some physicians that match your criteria:\n\n%s\n\n"+
			"Would you like more details about any of these physicians? Just reply with the number.",
		strings.Join(lines, "\n\n"))
}

func formatInsuranceResult(result *insurance.Verification) string {
	switch result.Status {
	case insurance.StatusActive:
		return fmt.Sprintf(
			"Good news! Your insurance is active with %s.\n\n"+
				"Plan: %s\nCoverage type: %s\nMember ID: %s\nExpiry date: %s\n\n"+
				"Would you like to book an appointment now?",
			result.Provider, valueOr(result.PlanName), valueOr(result.CoverageType),
			valueOr(result.MemberID), valueOr(result.ExpiryDate))
	case insurance.StatusExpired:
		return fmt.Sprintf(
			"Your insurance with %s has expired on %s. "+
				"Please contact your insurance provider to renew your coverage. "+
				"Would you like to book a self-pay appointment instead?",
			result.Provider, valueOr(result.ExpiryDate))
	case insurance.StatusInactive:
		return fmt.Sprintf(
			"Your insurance with %s is currently inactive due to: %s. "+
				"Please contact your insurance provider to resolve this issue. "+
				"Would you like to book a self-pay appointment instead?",
			result.Provider, valueOr(result.Reason))
	case insurance.StatusNotFound:
		return "I couldn't find any insurance records associated with the Emirates ID you provided. " +
			"If you believe this is an error, please contact our clinic directly or your insurance provider. " +
			"Would you like to book a self-pay appointment?"
	default:
		return fmt.Sprintf(
			"I encountered an error while checking your insurance status: %s. "+
				"Please try again later or contact our clinic directly for assistance.",
			valueOr(result.ErrorMessage))
	}
}

func valueOr(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
