package chatbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saram098/navi-backend-2/internal/appointments"
	"github.com/saram098/navi-backend-2/internal/scheduling"
	"github.com/saram098/navi-backend-2/internal/users"
)

type stubClassifier struct {
	result Classification
}

func (s *stubClassifier) Classify(_ context.Context, _ string) Classification {
	return s.result
}

type stubUsers struct {
	user       *users.User
	err        error
	emiratesID string
}

func (s *stubUsers) GetOrCreateByPhone(_ context.Context, _ string) (*users.User, error) {
	return s.user, s.err
}

func (s *stubUsers) SetEmiratesID(_ context.Context, _ uuid.UUID, id string) error {
	s.emiratesID = id
	return nil
}

type stubPhysicians struct {
	specialties []string
	physicians  []scheduling.Physician
	ranges      []scheduling.PriceRange
}

func (s *stubPhysicians) Specialties(_ context.Context) ([]string, error) {
	return s.specialties, nil
}

func (s *stubPhysicians) BySpecialty(_ context.Context, specialty string) ([]scheduling.Physician, error) {
	var out []scheduling.Physician
	for _, p := range s.physicians {
		if p.Specialty == specialty {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPhysicians) ByName(_ context.Context, name string) (*scheduling.Physician, error) {
	for i := range s.physicians {
		if s.physicians[i].Name == name {
			return &s.physicians[i], nil
		}
	}
	return nil, scheduling.ErrPhysicianNotFound
}

func (s *stubPhysicians) PriceRanges(_ context.Context) ([]scheduling.PriceRange, error) {
	return s.ranges, nil
}

type stubAvailability struct {
	slots     []scheduling.OpenSlot
	nextDates []string
	err       error
}

func (s *stubAvailability) OpenSlots(_ context.Context, _, _ string) ([]scheduling.OpenSlot, error) {
	return s.slots, s.err
}

func (s *stubAvailability) NextAvailableDates(_ context.Context, _, _ string, _ int) ([]string, error) {
	return s.nextDates, nil
}

type stubBook struct {
	booked    []scheduling.OpenSlot
	bookErr   error
	cancelled []uuid.UUID
	cancelErr error
	upcoming  []appointments.Summary
}

func (s *stubBook) Book(_ context.Context, userID uuid.UUID, slot scheduling.OpenSlot) (*appointments.Appointment, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	s.booked = append(s.booked, slot)
	return &appointments.Appointment{
		ID:        uuid.New(),
		UserID:    userID,
		SlotID:    slot.SlotID,
		Date:      slot.Date,
		StartTime: slot.StartTime,
		Status:    appointments.StatusPending,
		Amount:    slot.ConsultationPrice,
	}, nil
}

func (s *stubBook) Cancel(_ context.Context, id uuid.UUID) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func (s *stubBook) Upcoming(_ context.Context, _ uuid.UUID) ([]appointments.Summary, error) {
	return s.upcoming, nil
}

type agentFixture struct {
	agent        *Agent
	sessions     *SessionStore
	classifier   *stubClassifier
	users        *stubUsers
	physicians   *stubPhysicians
	availability *stubAvailability
	book         *stubBook
}

func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &agentFixture{
		sessions:   NewSessionStore(client, time.Hour),
		classifier: &stubClassifier{},
		users: &stubUsers{user: &users.User{
			ID:          uuid.New(),
			PhoneNumber: "+971501234567",
			FirstName:   "WhatsApp",
		}},
		physicians: &stubPhysicians{
			specialties: []string{"Cardiology", "Dermatology"},
			physicians: []scheduling.Physician{
				{ID: uuid.New(), Name: "Sara Haddad", Specialty: "Cardiology",
					ExperienceYears: 12, ConsultationPrice: 400},
			},
		},
		availability: &stubAvailability{},
		book:         &stubBook{},
	}
	f.agent = NewAgent(AgentConfig{
		Sessions:     f.sessions,
		Classifier:   f.classifier,
		Users:        f.users,
		Physicians:   f.physicians,
		Availability: f.availability,
		Appointments: f.book,
	})
	return f
}

func (f *agentFixture) session(t *testing.T) *Session {
	t.Helper()
	s, err := f.sessions.Load(context.Background(), f.users.user.PhoneNumber)
	require.NoError(t, err)
	return s
}

func openSlot(specialty, date, start string) scheduling.OpenSlot {
	return scheduling.OpenSlot{
		SlotID:            uuid.New(),
		PhysicianID:       uuid.New(),
		PhysicianName:     "Sara Haddad",
		Specialty:         specialty,
		Date:              date,
		StartTime:         start,
		EndTime:           "10:00",
		ConsultationPrice: 400,
	}
}

func TestAgentBookingAsksSpecialtyFirst(t *testing.T) {
	f := newAgentFixture(t)
	f.classifier.result = Classification{Intent: IntentBookAppointment}

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "I want to book an appointment")

	assert.Contains(t, reply, "specialist")
	assert.Contains(t, reply, "Cardiology")

	s := f.session(t)
	assert.Equal(t, IntentBookAppointment, s.Intent)
	assert.Empty(t, s.Specialty)
}

func TestAgentBookingAsksDateAfterSpecialty(t *testing.T) {
	f := newAgentFixture(t)
	f.classifier.result = Classification{
		Intent:   IntentBookAppointment,
		Entities: Entities{Specialty: "Cardiology"},
	}

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "a cardiologist please")

	assert.Contains(t, reply, "What date")
	assert.Contains(t, reply, "Sara Haddad")
	assert.Equal(t, "Cardiology", f.session(t).Specialty)
}

func TestAgentBookingNoAvailabilityResetsDate(t *testing.T) {
	f := newAgentFixture(t)
	f.classifier.result = Classification{
		Intent:   IntentBookAppointment,
		Entities: Entities{Specialty: "Cardiology", Date: "2025-06-02"},
	}
	f.availability.slots = nil

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "cardiology on 2025-06-02")

	assert.Contains(t, reply, "no available appointments")
	assert.Contains(t, reply, "another date")
	assert.Empty(t, f.book.booked, "no appointment should be created")

	s := f.session(t)
	assert.Equal(t, "Cardiology", s.Specialty, "specialty survives the reset")
	assert.Empty(t, s.Date, "date is cleared so the next turn can supply a new one")
}

func TestAgentBookingCompletesAndClearsSession(t *testing.T) {
	f := newAgentFixture(t)
	f.availability.slots = []scheduling.OpenSlot{openSlot("Cardiology", "2025-06-02", "09:00")}

	f.classifier.result = Classification{
		Intent:   IntentBookAppointment,
		Entities: Entities{Specialty: "Cardiology", Date: "2025-06-02"},
	}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "cardiology on 2025-06-02")
	require.Contains(t, reply, "What time")

	f.classifier.result = Classification{
		Intent:   IntentBookAppointment,
		Entities: Entities{Time: "09:00"},
	}
	reply = f.agent.ProcessMessage(context.Background(), "+971501234567", "9am works")

	assert.Contains(t, reply, "booked your Cardiology appointment")
	require.Len(t, f.book.booked, 1)
	assert.Equal(t, "09:00", f.book.booked[0].StartTime)

	s := f.session(t)
	assert.False(t, s.Active(), "session cleared after booking")
}

func TestAgentBookingSlotTakenMidFlow(t *testing.T) {
	f := newAgentFixture(t)
	f.availability.slots = []scheduling.OpenSlot{openSlot("Cardiology", "2025-06-02", "09:00")}
	f.book.bookErr = scheduling.ErrSlotUnavailable

	f.classifier.result = Classification{
		Intent:   IntentBookAppointment,
		Entities: Entities{Specialty: "Cardiology", Date: "2025-06-02", Time: "09:00"},
	}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "book cardiology 2025-06-02 9am")

	assert.Contains(t, reply, "just taken")
	assert.Empty(t, f.session(t).Time, "time cleared for the next attempt")
}

func TestAgentOtherIntentContinuesActiveFlow(t *testing.T) {
	f := newAgentFixture(t)
	require.NoError(t, f.sessions.Save(context.Background(), "+971501234567",
		&Session{Intent: IntentBookAppointment, Specialty: "Cardiology"}))
	f.availability.slots = []scheduling.OpenSlot{openSlot("Cardiology", "2025-06-02", "09:00")}

	f.classifier.result = Classification{
		Intent:   IntentOther,
		Entities: Entities{Date: "2025-06-02"},
	}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "the 2nd of June")

	assert.Contains(t, reply, "What time")
	assert.Equal(t, "2025-06-02", f.session(t).Date)
}

func TestAgentNewIntentOverridesActiveFlow(t *testing.T) {
	f := newAgentFixture(t)
	require.NoError(t, f.sessions.Save(context.Background(), "+971501234567",
		&Session{Intent: IntentBookAppointment, Specialty: "Cardiology"}))

	f.classifier.result = Classification{Intent: IntentGreeting}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "hello")

	assert.Contains(t, reply, "Hello")
}

func TestAgentCheckAvailabilitySuggestsNextDates(t *testing.T) {
	f := newAgentFixture(t)
	f.availability.slots = nil
	f.availability.nextDates = []string{"2025-06-03", "2025-06-04", "2025-06-05"}

	f.classifier.result = Classification{
		Intent:   IntentCheckAvailability,
		Entities: Entities{Specialty: "Cardiology", Date: "2025-06-02"},
	}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "any cardiology slots on 2025-06-02?")

	assert.Contains(t, reply, "next available dates")
	assert.Contains(t, reply, "2025-06-03")
}

func TestAgentCancelListsThenCancelsSelection(t *testing.T) {
	f := newAgentFixture(t)
	apptID := uuid.New()
	f.book.upcoming = []appointments.Summary{{
		ID:            apptID,
		Date:          "2025-06-02",
		StartTime:     "09:00",
		Status:        appointments.StatusConfirmed,
		PhysicianName: "Sara Haddad",
		Specialty:     "Cardiology",
	}}

	f.classifier.result = Classification{Intent: IntentCancelAppointment}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "cancel my appointment")
	require.Contains(t, reply, "1. 2025-06-02 at 09:00")

	f.classifier.result = Classification{Intent: IntentOther}
	reply = f.agent.ProcessMessage(context.Background(), "+971501234567", "1")

	assert.Contains(t, reply, "has been cancelled")
	require.Len(t, f.book.cancelled, 1)
	assert.Equal(t, apptID, f.book.cancelled[0])
	assert.False(t, f.session(t).Active())
}

func TestAgentCancelWithNoUpcoming(t *testing.T) {
	f := newAgentFixture(t)
	f.classifier.result = Classification{Intent: IntentCancelAppointment}

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "cancel my appointment")

	assert.Contains(t, reply, "don't have any upcoming appointments")
}

func TestAgentRescheduleRollsIntoBooking(t *testing.T) {
	f := newAgentFixture(t)
	apptID := uuid.New()
	f.book.upcoming = []appointments.Summary{{
		ID:            apptID,
		Date:          "2025-06-02",
		StartTime:     "09:00",
		Status:        appointments.StatusPending,
		PhysicianName: "Sara Haddad",
		Specialty:     "Cardiology",
	}}

	f.classifier.result = Classification{Intent: IntentRescheduleAppointment}
	f.agent.ProcessMessage(context.Background(), "+971501234567", "reschedule please")

	f.classifier.result = Classification{Intent: IntentOther}
	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "1")

	assert.Contains(t, reply, "find you a new time")
	require.Len(t, f.book.cancelled, 1)

	s := f.session(t)
	assert.Equal(t, IntentBookAppointment, s.Intent)
	assert.Equal(t, "Cardiology", s.Specialty)
	assert.Empty(t, s.Date)
}

func TestAgentErrorReturnsApology(t *testing.T) {
	f := newAgentFixture(t)
	f.users.err = errors.New("db down")

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "hello")

	assert.Equal(t, apologyReply, reply)
}

func TestAgentUnknownMessageGetsHelp(t *testing.T) {
	f := newAgentFixture(t)
	f.classifier.result = Classification{Intent: IntentOther}

	reply := f.agent.ProcessMessage(context.Background(), "+971501234567", "asdf qwerty")

	assert.Equal(t, helpReply, reply)
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want int
		ok   bool
	}{
		{"1", 3, 1, true},
		{" 2 ", 3, 2, true},
		{"3.", 3, 3, true},
		{"4", 3, 0, false},
		{"0", 3, 0, false},
		{"first", 3, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseSelection(tc.in, tc.max)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
