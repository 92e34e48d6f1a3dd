package machine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"coffee-machine/internal/inventory"
	"coffee-machine/internal/ledger"
	"coffee-machine/internal/menu"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	m, err := menu.Default()
	require.NoError(t, err)

	seq := 0
	base := []Option{
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("tx-%d", seq) }),
	}
	return NewCoordinator(m, append(base, opts...)...)
}

func TestOrderScenarioA(t *testing.T) {
	c := newTestCoordinator(t)
	st := NewState()

	next, receipt, err := c.Order(context.Background(), st, OrderRequest{Drink: "espresso", Tendered: money("2.00")})
	require.NoError(t, err)

	assert.True(t, receipt.Change.Equal(money("0.50")), "change %s", receipt.Change)
	assert.Equal(t, 250, next.Inventory.Water)
	assert.Equal(t, 82, next.Inventory.Coffee)
	assert.Equal(t, 200, next.Inventory.Milk)
	assert.True(t, next.Ledger.Profit.Equal(money("1.50")))
	assert.Equal(t, next.Inventory, receipt.Inventory)
	assert.True(t, receipt.Profit.Equal(money("1.50")))

	require.Len(t, next.Ledger.History, 1)
	tx := next.Ledger.History[0]
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "espresso", tx.Drink)
	assert.True(t, tx.Cost.Equal(money("1.50")))
	assert.Equal(t, "2024-05-01T09:30:00Z", tx.Time)

	// The input state is a value and must not change.
	assert.Equal(t, NewState(), st)
}

func TestOrderScenarioB(t *testing.T) {
	c := newTestCoordinator(t)
	st := NewState()

	next, _, err := c.Order(context.Background(), st, OrderRequest{Drink: "espresso", Tendered: money("1.00")})
	require.ErrorIs(t, err, ErrInsufficientPayment)
	assert.Equal(t, MsgInsufficientPayment, err.Error())
	assert.Equal(t, st, next)
	assert.True(t, next.Ledger.Profit.IsZero())
	assert.Equal(t, inventory.Full(), next.Inventory)
}

func TestOrderScenarioC(t *testing.T) {
	c := newTestCoordinator(t)
	st := NewState()
	st.Inventory.Milk = 149

	next, _, err := c.Order(context.Background(), st, OrderRequest{Drink: "latte", Tendered: money("5")})
	require.ErrorIs(t, err, ErrInsufficientResource)

	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, menu.Milk, rej.Resource)
	assert.Equal(t, "Sorry, not enough milk", rej.Message)
	assert.Equal(t, st, next)
}

func TestOrderScenarioD(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	st, _, err := c.Order(ctx, NewState(), OrderRequest{Drink: "espresso", Tendered: money("1.50")})
	require.NoError(t, err)

	off := c.TogglePower(ctx, st)
	assert.False(t, off.PoweredOn)

	_, _, err = c.Order(ctx, off, OrderRequest{Drink: "espresso", Tendered: money("2")})
	assert.ErrorIs(t, err, ErrMachineOff)

	_, _, err = c.Order(ctx, off, OrderRequest{Drink: "no-such-drink", Tendered: money("2")})
	assert.ErrorIs(t, err, ErrMachineOff, "power check comes before the menu lookup")

	_, err = c.Refill(ctx, off)
	assert.ErrorIs(t, err, ErrMachineOff)

	// Readings survive power-off.
	r := c.Report(off)
	assert.Equal(t, st.Inventory, r.Inventory)
	assert.True(t, r.Profit.Equal(money("1.50")))
	assert.Equal(t, 1, r.TotalOrders)

	on := c.TogglePower(ctx, off)
	assert.True(t, on.PoweredOn)
}

func TestOrderUnknownDrink(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Order(context.Background(), NewState(), OrderRequest{Drink: "Espresso", Tendered: money("5")})
	assert.ErrorIs(t, err, ErrDrinkNotFound)
	assert.Equal(t, MsgDrinkNotAvailable, err.Error())
}

func TestOrderRejectionOrder(t *testing.T) {
	c := newTestCoordinator(t)
	st := NewState()
	st.Inventory = inventory.Inventory{}

	// Out of stock and underpaid: the stock check wins.
	_, _, err := c.Order(context.Background(), st, OrderRequest{Drink: "espresso", Tendered: money("0")})
	assert.ErrorIs(t, err, ErrInsufficientResource)
}

func TestOrderExactStockBoundary(t *testing.T) {
	c := newTestCoordinator(t)
	st := NewState()
	st.Inventory = inventory.Inventory{Water: 50, Milk: 0, Coffee: 18}

	next, _, err := c.Order(context.Background(), st, OrderRequest{Drink: "espresso", Tendered: money("1.50")})
	require.NoError(t, err)
	assert.Equal(t, inventory.Inventory{}, next.Inventory)
}

func TestOrderUsesClientTime(t *testing.T) {
	c := newTestCoordinator(t)
	next, receipt, err := c.Order(context.Background(), NewState(), OrderRequest{
		Drink: "latte", Tendered: money("2.50"), Time: "10:42:07 AM",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:42:07 AM", receipt.Transaction.Time)
	assert.Equal(t, "10:42:07 AM", next.Ledger.History[0].Time)
}

func TestHistoryBound(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	st := NewState()

	for i := 0; i < 11; i++ {
		if i%3 == 0 {
			var err error
			st, err = c.Refill(ctx, st)
			require.NoError(t, err)
		}
		var err error
		st, _, err = c.Order(ctx, st, OrderRequest{Drink: "espresso", Tendered: money("1.50")})
		require.NoError(t, err, "order %d", i+1)
	}

	require.Len(t, st.Ledger.History, ledger.HistoryLimit)
	assert.Equal(t, "tx-11", st.Ledger.History[0].ID)
	assert.Equal(t, "tx-2", st.Ledger.History[ledger.HistoryLimit-1].ID)
	assert.True(t, st.Ledger.Profit.Equal(money("16.50")), "profit counts every order, not just those on record")
	assert.Equal(t, 10, c.Report(st).TotalOrders)
}

func TestRefillIdempotent(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	st, _, err := c.Order(ctx, NewState(), OrderRequest{Drink: "cappuccino", Tendered: money("3")})
	require.NoError(t, err)

	once, err := c.Refill(ctx, st)
	require.NoError(t, err)
	twice, err := c.Refill(ctx, once)
	require.NoError(t, err)

	assert.Equal(t, inventory.Full(), once.Inventory)
	assert.Equal(t, once, twice)
	assert.True(t, twice.Ledger.Profit.Equal(money("3")), "refill leaves the ledger alone")
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	drinks := []string{"espresso", "latte", "cappuccino", "mocha"}
	tenders := []string{"0", "1.00", "1.50", "2.50", "3.00", "10"}

	st := NewState()
	for i := 0; i < 1000; i++ {
		prevProfit := st.Ledger.Profit
		switch rng.Intn(10) {
		case 0:
			st = c.TogglePower(ctx, st)
		case 1:
			if next, err := c.Refill(ctx, st); err == nil {
				st = next
			}
		default:
			req := OrderRequest{
				Drink:    drinks[rng.Intn(len(drinks))],
				Tendered: money(tenders[rng.Intn(len(tenders))]),
			}
			next, _, err := c.Order(ctx, st, req)
			if err != nil {
				require.Equal(t, st, next, "rejected order changed state at step %d", i)
			}
			st = next
		}

		for _, r := range menu.Resources {
			require.GreaterOrEqual(t, st.Inventory.Level(r), 0, "step %d", i)
		}
		require.False(t, st.Ledger.Profit.LessThan(prevProfit), "profit decreased at step %d", i)
		require.LessOrEqual(t, len(st.Ledger.History), ledger.HistoryLimit)
	}
}

func TestOrderTelemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	core, logs := observer.New(zap.InfoLevel)

	c := newTestCoordinator(t, WithTracer(tp.Tracer("test")), WithLogger(zap.New(core)))
	ctx := context.Background()

	_, _, err := c.Order(ctx, NewState(), OrderRequest{Drink: "latte", Tendered: money("1")})
	require.Error(t, err)
	_, _, err = c.Order(ctx, NewState(), OrderRequest{Drink: "latte", Tendered: money("3")})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "machine.order", spans[0].Name())

	outcome := func(s sdktrace.ReadOnlySpan) string {
		for _, kv := range s.Attributes() {
			if kv.Key == "order.outcome" {
				return kv.Value.AsString()
			}
		}
		return ""
	}
	assert.Equal(t, string(CodeInsufficientPayment), outcome(spans[0]))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, string(CodeInsufficientPayment), spans[0].Status().Description)
	assert.Equal(t, "fulfilled", outcome(spans[1]))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	assert.Equal(t, 1, logs.FilterMessage("order rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("order fulfilled").Len())
	assert.Equal(t, "0.50", logs.FilterMessage("order fulfilled").All()[0].ContextMap()["change"])
}

func TestObserveRejection(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	core, logs := observer.New(zap.InfoLevel)
	c := newTestCoordinator(t, WithTracer(tp.Tracer("test")), WithLogger(zap.New(core)))

	t.Run("WrappedRejection", func(t *testing.T) {
		_, span := c.tracer.Start(context.Background(), "machine.order")
		err := fmt.Errorf("order: %w", InsufficientResource(menu.Milk))
		require.NotPanics(t, func() { c.observeRejection(span, OrderRequest{Drink: "latte"}, err) })
		span.End()

		ended := recorder.Ended()
		got := ended[len(ended)-1]
		assert.Equal(t, codes.Error, got.Status().Code)
		assert.Equal(t, string(CodeInsufficientResource), got.Status().Description)
		assert.Equal(t, "milk", logs.FilterMessage("order rejected").All()[0].ContextMap()["resource"])
	})

	t.Run("PlainError", func(t *testing.T) {
		_, span := c.tracer.Start(context.Background(), "machine.order")
		require.NotPanics(t, func() {
			c.observeRejection(span, OrderRequest{Drink: "latte"}, errors.New("store unavailable"))
		})
		span.End()

		ended := recorder.Ended()
		got := ended[len(ended)-1]
		assert.Equal(t, codes.Error, got.Status().Code)
		assert.Equal(t, "store unavailable", got.Status().Description)
		assert.Equal(t, 1, logs.FilterMessage("order failed").Len())
	})
}
