package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coffee-machine/internal/machine"
	sessiondb "coffee-machine/internal/session/session_db"
)

// SQLiteStore provides access to session persistence in the application
// database.
type SQLiteStore struct {
	queries *sessiondb.Queries
	ttl     time.Duration
	now     func() time.Time
}

// NewSQLiteStore creates a new SQLiteStore instance. The schema is created by
// the database package's migrations.
func NewSQLiteStore(db *sql.DB, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{
		queries: sessiondb.New(db),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load retrieves a non-expired session.
func (s *SQLiteStore) Load(ctx context.Context, id string) (machine.State, bool, error) {
	row, err := s.queries.GetSession(ctx, sessiondb.GetSessionParams{
		ID:        id,
		ExpiresAt: s.now().UnixMilli(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return machine.State{}, false, nil
		}
		return machine.State{}, false, fmt.Errorf("failed to get session: %w", err)
	}

	st, err := decodeState([]byte(row.State))
	if err != nil {
		return machine.State{}, false, err
	}
	return st, true, nil
}

// Save inserts or replaces the session and pushes its expiry forward.
func (s *SQLiteStore) Save(ctx context.Context, id string, st machine.State) error {
	if err := validateID(id); err != nil {
		return err
	}
	data, err := encodeState(st)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.queries.UpsertSession(ctx, sessiondb.UpsertSessionParams{
		ID:        id,
		State:     string(data),
		ExpiresAt: expiry(now, s.ttl).UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.queries.DeleteSession(ctx, id)
}

// CleanupExpired removes all expired sessions
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.queries.CleanupExpiredSessions(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired sessions: %w", err)
	}
	return n, nil
}
