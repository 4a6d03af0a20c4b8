package chatbot

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionStore(client, time.Hour), mr
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	session := &Session{
		Intent:    IntentBookAppointment,
		Specialty: "Cardiology",
		Date:      "2025-06-02",
	}
	if err := store.Save(ctx, "+971501234567", session); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load(ctx, "+971501234567")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Intent != IntentBookAppointment || loaded.Specialty != "Cardiology" || loaded.Date != "2025-06-02" {
		t.Fatalf("unexpected session: %+v", loaded)
	}
	if !loaded.Active() {
		t.Error("loaded session should be active")
	}
}

func TestSessionStoreLoadMissingReturnsEmpty(t *testing.T) {
	store, _ := newTestSessionStore(t)

	session, err := store.Load(context.Background(), "+971500000000")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if session.Active() {
		t.Errorf("expected inactive empty session, got %+v", session)
	}
}

func TestSessionStoreClear(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "+971501111111", &Session{Intent: IntentCancelAppointment}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Clear(ctx, "+971501111111"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	session, err := store.Load(ctx, "+971501111111")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if session.Active() {
		t.Errorf("expected cleared session, got %+v", session)
	}
}

func TestSessionStoreAppliesTTL(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "+971502222222", &Session{Intent: IntentBookAppointment}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	session, err := store.Load(ctx, "+971502222222")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if session.Active() {
		t.Error("session should have expired")
	}
}
