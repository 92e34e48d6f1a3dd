// Package session keeps each visitor's machine state apart and serializes
// access to it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coffee-machine/internal/machine"
)

// Store persists machine state by opaque session id. Implementations drop
// sessions that have not been saved for longer than their TTL.
type Store interface {
	// Load returns the state for id. ok is false when the session does not
	// exist or has expired.
	Load(ctx context.Context, id string) (st machine.State, ok bool, err error)
	// Save creates or replaces the state for id and renews its expiry.
	Save(ctx context.Context, id string, st machine.State) error
	// Delete removes the session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error
}

// Expirer is implemented by stores that need expired sessions swept
// explicitly.
type Expirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ErrInvalidID is returned for ids a store cannot address safely.
var ErrInvalidID = errors.New("invalid session id")

func validateID(id string) error {
	if id == "" || len(id) > 128 || strings.ContainsAny(id, `/\:*?"<>| `) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func encodeState(st machine.State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (machine.State, error) {
	var st machine.State
	if err := json.Unmarshal(data, &st); err != nil {
		return machine.State{}, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return st, nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}
