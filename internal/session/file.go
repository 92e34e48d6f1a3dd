package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coffee-machine/internal/machine"
)

// fileRecord is the on-disk envelope of a session.
type fileRecord struct {
	ExpiresAt time.Time       `json:"expires_at"`
	State     json.RawMessage `json:"state"`
}

// FileStore provides a file-based storage of sessions, one JSON file per
// session id.
type FileStore struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath, ttl: ttl, now: time.Now}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

// Save writes the session to a temporary file and renames it into place so a
// crash never leaves a half-written session behind.
func (s *FileStore) Save(_ context.Context, id string, st machine.State) error {
	if err := validateID(id); err != nil {
		return err
	}
	state, err := encodeState(st)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileRecord{ExpiresAt: expiry(s.now(), s.ttl), State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move session file into place: %w", err)
	}
	return nil
}

// Load retrieves a session; expired files are removed on sight.
func (s *FileStore) Load(_ context.Context, id string) (machine.State, bool, error) {
	if err := validateID(id); err != nil {
		return machine.State{}, false, nil
	}
	rec, err := s.read(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return machine.State{}, false, nil
	}
	if err != nil {
		return machine.State{}, false, err
	}
	if !s.now().Before(rec.ExpiresAt) {
		os.Remove(s.path(id))
		return machine.State{}, false, nil
	}

	st, err := decodeState(rec.State)
	if err != nil {
		return machine.State{}, false, err
	}
	return st, true, nil
}

func (s *FileStore) read(path string) (fileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileRecord{}, err
		}
		return fileRecord{}, fmt.Errorf("failed to read session file: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fileRecord{}, fmt.Errorf("failed to unmarshal session file: %w", err)
	}
	return rec, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return nil
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// CleanupExpired removes every expired or unreadable session file.
func (s *FileStore) CleanupExpired(_ context.Context) (int64, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob session files: %w", err)
	}

	now := s.now()
	var removed int64
	for _, match := range matches {
		rec, err := s.read(match)
		if err == nil && now.Before(rec.ExpiresAt) {
			continue
		}
		if err := os.Remove(match); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
		removed++
	}
	return removed, nil
}
