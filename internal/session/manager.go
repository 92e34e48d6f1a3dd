package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coffee-machine/internal/machine"

	"go.uber.org/zap"
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes every operation on a session: one load–decide–save
// cycle runs to completion before the next one for the same id starts.
// Different sessions never wait on each other.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewManager wraps store.
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sessionLock),
	}
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// load returns the stored state, creating and saving a fresh machine the
// first time a session is seen. Callers hold the session lock.
func (m *Manager) load(ctx context.Context, id string) (machine.State, error) {
	st, ok, err := m.store.Load(ctx, id)
	if err != nil {
		return machine.State{}, fmt.Errorf("failed to load session: %w", err)
	}
	if ok {
		return st, nil
	}

	st = machine.NewState()
	if err := m.store.Save(ctx, id, st); err != nil {
		return machine.State{}, fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.Info("session created", zap.String("session_id", id))
	return st, nil
}

// View returns the session's current state.
func (m *Manager) View(ctx context.Context, id string) (machine.State, error) {
	unlock := m.lock(id)
	defer unlock()

	return m.load(ctx, id)
}

// Update runs fn against the session's state and saves what it returns. When
// fn fails nothing is saved and the unchanged state is returned alongside the
// error.
func (m *Manager) Update(ctx context.Context, id string, fn func(machine.State) (machine.State, error)) (machine.State, error) {
	unlock := m.lock(id)
	defer unlock()

	st, err := m.load(ctx, id)
	if err != nil {
		return machine.State{}, err
	}

	next, err := fn(st)
	if err != nil {
		return st, err
	}

	if err := m.store.Save(ctx, id, next); err != nil {
		return st, fmt.Errorf("failed to save session: %w", err)
	}
	return next, nil
}

// Reset discards the session; the next access starts a fresh machine.
func (m *Manager) Reset(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()

	return m.store.Delete(ctx, id)
}

// RunJanitor sweeps expired sessions every interval until ctx is done. It
// returns immediately when the store expires sessions on its own.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	expirer, ok := m.store.(Expirer)
	if !ok {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := expirer.CleanupExpired(ctx)
			if err != nil {
				m.logger.Error("session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.logger.Info("expired sessions removed", zap.Int64("count", n))
			}
		}
	}
}
