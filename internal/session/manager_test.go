package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coffee-machine/internal/machine"
	"coffee-machine/internal/menu"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newCoordinator(t *testing.T) *machine.Coordinator {
	t.Helper()
	m, err := menu.Default()
	require.NoError(t, err)
	return machine.NewCoordinator(m)
}

func TestManagerCreatesFreshSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, zap.NewNop())

	st, err := mgr.View(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, machine.NewState(), st)

	_, ok, _ := store.Load(context.Background(), "new")
	assert.True(t, ok, "first access persists the session")
}

func TestManagerUpdate(t *testing.T) {
	ctx := context.Background()
	coord := newCoordinator(t)
	mgr := NewManager(NewMemoryStore(time.Hour), zap.NewNop())

	t.Run("SavesOnSuccess", func(t *testing.T) {
		_, err := mgr.Update(ctx, "s1", func(st machine.State) (machine.State, error) {
			next, _, err := coord.Order(ctx, st, machine.OrderRequest{Drink: "espresso", Tendered: decimal.NewFromInt(2)})
			return next, err
		})
		require.NoError(t, err)

		st, err := mgr.View(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 250, st.Inventory.Water)
	})

	t.Run("DiscardsOnRejection", func(t *testing.T) {
		before, _ := mgr.View(ctx, "s1")
		got, err := mgr.Update(ctx, "s1", func(st machine.State) (machine.State, error) {
			next, _, err := coord.Order(ctx, st, machine.OrderRequest{Drink: "espresso", Tendered: decimal.Zero})
			return next, err
		})
		require.ErrorIs(t, err, machine.ErrInsufficientPayment)
		assert.Equal(t, before.Inventory, got.Inventory)

		after, _ := mgr.View(ctx, "s1")
		assert.Equal(t, before.Inventory, after.Inventory)
		assert.True(t, before.Ledger.Profit.Equal(after.Ledger.Profit))
	})

	t.Run("Reset", func(t *testing.T) {
		require.NoError(t, mgr.Reset(ctx, "s1"))
		st, err := mgr.View(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, machine.NewState(), st)
	})
}

type failingStore struct{ Store }

func (failingStore) Save(context.Context, string, machine.State) error {
	return errors.New("disk full")
}

func TestManagerStoreFailure(t *testing.T) {
	mgr := NewManager(failingStore{NewMemoryStore(time.Hour)}, zap.NewNop())
	_, err := mgr.View(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session")
}

func TestManagerSerializesSameSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	coord := newCoordinator(t)
	mgr := NewManager(NewMemoryStore(time.Hour), zap.NewNop())

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	fulfilled := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Update(ctx, "shared", func(st machine.State) (machine.State, error) {
				next, _, err := coord.Order(ctx, st, machine.OrderRequest{Drink: "espresso", Tendered: decimal.NewFromInt(2)})
				return next, err
			})
			if err == nil {
				mu.Lock()
				fulfilled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 100 coffee / 18 per espresso: exactly five fit, and no interleaving
	// can squeeze in a sixth.
	assert.Equal(t, 5, fulfilled)

	st, err := mgr.View(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 10, st.Inventory.Coffee)
	assert.Equal(t, 50, st.Inventory.Water)
	assert.True(t, st.Ledger.Profit.Equal(decimal.RequireFromString("7.50")))
	assert.Len(t, st.Ledger.History, 5)

	mgr.mu.Lock()
	assert.Empty(t, mgr.locks, "locks are released once idle")
	mgr.mu.Unlock()
}

func TestManagerIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	coord := newCoordinator(t)
	mgr := NewManager(NewMemoryStore(time.Hour), zap.NewNop())

	_, err := mgr.Update(ctx, "a", func(st machine.State) (machine.State, error) {
		return coord.TogglePower(ctx, st), nil
	})
	require.NoError(t, err)

	a, _ := mgr.View(ctx, "a")
	b, _ := mgr.View(ctx, "b")
	assert.False(t, a.PoweredOn)
	assert.True(t, b.PoweredOn)
}

func TestRunJanitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore(time.Millisecond)
	mgr := NewManager(store, zap.NewNop())
	require.NoError(t, store.Save(context.Background(), "old", machine.NewState()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.entries) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunJanitorWithoutExpirer(t *testing.T) {
	mgr := NewManager(failingStore{}, zap.NewNop())
	// Returns at once for stores that expire entries themselves.
	mgr.RunJanitor(context.Background(), time.Millisecond)
}
