package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/saram098/navi-backend-2/internal/scheduling"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

type stubStore struct {
	created     *Appointment
	createErr   error
	cancelled   []uuid.UUID
	cancelSlot  uuid.UUID
	cancelErr   error
	upcoming    []Summary
	confirmed   *Appointment
	confirmErr  error
	attachedPI  string
	attachedFor uuid.UUID
}

func (s *stubStore) Create(ctx context.Context, appt *Appointment) error {
	if s.createErr != nil {
		return s.createErr
	}
	appt.ID = uuid.New()
	s.created = appt
	return nil
}

func (s *stubStore) ListForUser(ctx context.Context, userID uuid.UUID, statuses ...Status) ([]Summary, error) {
	return s.upcoming, nil
}

func (s *stubStore) CancelReturningSlot(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if s.cancelErr != nil {
		return uuid.Nil, s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return s.cancelSlot, nil
}

func (s *stubStore) AttachPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	s.attachedFor = id
	s.attachedPI = paymentIntentID
	return nil
}

func (s *stubStore) ConfirmPayment(ctx context.Context, paymentIntentID string) (*Appointment, error) {
	return s.confirmed, s.confirmErr
}

type stubSlots struct {
	claimed  *scheduling.TimeSlot
	claimErr error
	released []uuid.UUID
}

func (s *stubSlots) ClaimSlot(ctx context.Context, physicianID uuid.UUID, date, startTime string) (*scheduling.TimeSlot, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return s.claimed, nil
}

func (s *stubSlots) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	s.released = append(s.released, slotID)
	return nil
}

func TestBookClaimsSlotAndCreatesPending(t *testing.T) {
	slotID := uuid.New()
	physID := uuid.New()
	slots := &stubSlots{claimed: &scheduling.TimeSlot{
		ID: slotID, PhysicianID: physID, Date: "2025-06-02", StartTime: "09:00", EndTime: "09:30",
	}}
	store := &stubStore{}
	svc := NewService(store, slots, logging.Default())

	userID := uuid.New()
	appt, err := svc.Book(context.Background(), userID, scheduling.OpenSlot{
		PhysicianID: physID, Date: "2025-06-02", StartTime: "09:00", ConsultationPrice: 450,
	})
	if err != nil {
		t.Fatalf("Book returned error: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("expected pending status, got %s", appt.Status)
	}
	if appt.SlotID != slotID {
		t.Errorf("expected slot %s, got %s", slotID, appt.SlotID)
	}
	if appt.Amount != 450 {
		t.Errorf("expected amount from slot price, got %f", appt.Amount)
	}
	if len(slots.released) != 0 {
		t.Errorf("slot should not be released on success")
	}
}

func TestBookReleasesSlotWhenCreateFails(t *testing.T) {
	slotID := uuid.New()
	slots := &stubSlots{claimed: &scheduling.TimeSlot{ID: slotID, Date: "2025-06-02", StartTime: "09:00"}}
	store := &stubStore{createErr: errors.New("insert failed")}
	svc := NewService(store, slots, logging.Default())

	if _, err := svc.Book(context.Background(), uuid.New(), scheduling.OpenSlot{}); err == nil {
		t.Fatal("expected error")
	}
	if len(slots.released) != 1 || slots.released[0] != slotID {
		t.Fatalf("expected claimed slot to be released, got %v", slots.released)
	}
}

func TestBookPropagatesSlotUnavailable(t *testing.T) {
	slots := &stubSlots{claimErr: scheduling.ErrSlotUnavailable}
	svc := NewService(&stubStore{}, slots, logging.Default())

	_, err := svc.Book(context.Background(), uuid.New(), scheduling.OpenSlot{})
	if !errors.Is(err, scheduling.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCancelFreesExactlyHeldSlot(t *testing.T) {
	slotID := uuid.New()
	store := &stubStore{cancelSlot: slotID}
	slots := &stubSlots{}
	svc := NewService(store, slots, logging.Default())

	apptID := uuid.New()
	if err := svc.Cancel(context.Background(), apptID); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if len(slots.released) != 1 || slots.released[0] != slotID {
		t.Fatalf("expected exactly the held slot released, got %v", slots.released)
	}
}

func TestCancelRejectsNonCancellable(t *testing.T) {
	store := &stubStore{cancelErr: ErrNotCancellable}
	slots := &stubSlots{}
	svc := NewService(store, slots, logging.Default())

	if err := svc.Cancel(context.Background(), uuid.New()); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
	if len(slots.released) != 0 {
		t.Fatal("no slot should be released for a non-cancellable appointment")
	}
}
