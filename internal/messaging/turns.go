package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type turnDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TurnStore persists conversation turns in Postgres.
type TurnStore struct {
	db turnDB
}

// NewTurnStore creates a store backed by a pgx pool.
func NewTurnStore(pool *pgxpool.Pool) *TurnStore {
	if pool == nil {
		panic("messaging: pgx pool required")
	}
	return &TurnStore{db: pool}
}

// NewTurnStoreWithDB lets tests inject a mock connection.
func NewTurnStoreWithDB(db turnDB) *TurnStore {
	if db == nil {
		panic("messaging: db required")
	}
	return &TurnStore{db: db}
}

// RecordTurn inserts one request/reply pair.
func (s *TurnStore) RecordTurn(ctx context.Context, phone, inbound, reply string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO conversation_turns (id, phone_number, message, response)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), phone, inbound, reply,
	)
	if err != nil {
		return fmt.Errorf("messaging: failed to record conversation turn: %w", err)
	}
	return nil
}
