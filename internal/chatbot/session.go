package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// Session is the per-user conversation state accumulated across turns.
// Scheduling slots fill in the fixed order specialty, date, time; the
// Appointments list backs numbered-selection flows (cancel/reschedule).
type Session struct {
	Intent       Intent    `json:"intent"`
	Specialty    string    `json:"specialty,omitempty"`
	Date         string    `json:"date,omitempty"`
	Time         string    `json:"time,omitempty"`
	Appointments []string  `json:"appointments,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active reports whether the session is mid-flow.
func (s *Session) Active() bool {
	return s != nil && s.Intent != "" && s.Intent != IntentOther
}

// SessionStore keeps conversation state in Redis keyed by phone number.
type SessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if client == nil {
		panic("chatbot: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("navi.internal.chatbot.session"),
	}
}

func sessionKey(phone string) string {
	return fmt.Sprintf("session:%s", phone)
}

// Load returns the stored session for a phone number, or a fresh empty
// session when none exists.
func (s *SessionStore) Load(ctx context.Context, phone string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "chatbot.session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(phone)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &Session{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: failed to decode session: %w", err)
	}
	return &session, nil
}

// Save persists the session with the store TTL.
func (s *SessionStore) Save(ctx context.Context, phone string, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "chatbot.session.save")
	defer span.End()

	session.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(phone), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to persist session: %w", err)
	}
	return nil
}

// Clear removes the session, ending the current flow.
func (s *SessionStore) Clear(ctx context.Context, phone string) error {
	ctx, span := s.tracer.Start(ctx, "chatbot.session.clear")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(phone)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to clear session: %w", err)
	}
	return nil
}
