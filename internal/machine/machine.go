// Package machine coordinates orders, refills and power for one session's
// coffee machine.
package machine

import (
	"context"
	"errors"
	"time"

	"coffee-machine/internal/inventory"
	"coffee-machine/internal/ledger"
	"coffee-machine/internal/menu"
	"coffee-machine/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "coffee-machine/machine"

// OrderRequest is a customer's order attempt.
type OrderRequest struct {
	Drink    string
	Tendered decimal.Decimal
	// Time is the client's timestamp for the order. When empty the
	// coordinator's clock is used.
	Time string
}

// Receipt describes a fulfilled order and the machine right after it.
type Receipt struct {
	Transaction ledger.Transaction
	Change      decimal.Decimal
	Inventory   inventory.Inventory
	Profit      decimal.Decimal
}

// Coordinator runs the order state machine against a session's State. It
// holds no session data itself; every call takes the current state and
// returns the next one.
type Coordinator struct {
	menu   *menu.Menu
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option        { return func(c *Coordinator) { c.logger = l } }
func WithTracer(t trace.Tracer) Option       { return func(c *Coordinator) { c.tracer = t } }
func WithClock(now func() time.Time) Option  { return func(c *Coordinator) { c.now = now } }
func WithIDGenerator(f func() string) Option { return func(c *Coordinator) { c.newID = f } }

// NewCoordinator returns a coordinator serving drinks from m.
func NewCoordinator(m *menu.Menu, opts ...Option) *Coordinator {
	c := &Coordinator{
		menu:   m,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Menu returns the catalog the coordinator serves from.
func (c *Coordinator) Menu() *menu.Menu {
	return c.menu
}

// Order runs one order attempt. On success it returns the next state and a
// receipt; on rejection it returns st unchanged and a *Rejection.
func (c *Coordinator) Order(ctx context.Context, st State, req OrderRequest) (State, Receipt, error) {
	_, span := c.tracer.Start(ctx, "machine.order")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.drink", req.Drink),
		attribute.String("order.tendered", req.Tendered.String()),
	)

	next, receipt, err := c.order(st, req)
	if err != nil {
		c.observeRejection(span, req, err)
		return st, Receipt{}, err
	}

	span.SetAttributes(
		attribute.String("order.outcome", "fulfilled"),
		attribute.String("order.change", receipt.Change.String()),
		attribute.String("transaction.id", receipt.Transaction.ID),
	)
	c.logger.Info("order fulfilled",
		zap.String("drink", req.Drink),
		zap.String("transaction_id", receipt.Transaction.ID),
		zap.String("change", receipt.Change.StringFixed(payment.ChangePlaces)),
	)
	return next, receipt, nil
}

// observeRejection marks the span as failed with the rejection code, or with
// the raw error when it is not a *Rejection.
func (c *Coordinator) observeRejection(span trace.Span, req OrderRequest, err error) {
	var rej *Rejection
	if !errors.As(err, &rej) {
		span.RecordError(err)
		span.SetAttributes(attribute.String("order.outcome", "error"))
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("order failed", zap.String("drink", req.Drink), zap.Error(err))
		return
	}

	span.SetAttributes(attribute.String("order.outcome", string(rej.Code)))
	span.SetStatus(codes.Error, string(rej.Code))
	c.logger.Info("order rejected",
		zap.String("drink", req.Drink),
		zap.String("reason", string(rej.Code)),
		zap.String("resource", string(rej.Resource)),
	)
}

func (c *Coordinator) order(st State, req OrderRequest) (State, Receipt, error) {
	if !st.PoweredOn {
		return st, Receipt{}, ErrMachineOff
	}

	drink, err := c.menu.FindDrink(req.Drink)
	if err != nil {
		return st, Receipt{}, ErrDrinkNotFound
	}

	if missing, ok := st.Inventory.Check(drink); !ok {
		return st, Receipt{}, InsufficientResource(missing)
	}

	processor := payment.NewProcessor(st.Ledger.Profit)
	settlement := processor.Settle(drink.Cost(), req.Tendered)
	if !settlement.Accepted {
		return st, Receipt{}, ErrInsufficientPayment
	}

	// Fulfilled: stock was checked above, so the debit cannot go negative.
	tx := ledger.Transaction{
		ID:    c.newID(),
		Drink: drink.Name(),
		Cost:  drink.Cost(),
		Time:  req.Time,
	}
	if tx.Time == "" {
		tx.Time = c.now().UTC().Format(time.RFC3339)
	}

	next := st
	next.Inventory = st.Inventory.Debit(drink)
	next.Ledger = st.Ledger.Record(tx, processor.Profit())

	return next, Receipt{
		Transaction: tx,
		Change:      settlement.Change,
		Inventory:   next.Inventory,
		Profit:      next.Ledger.Profit,
	}, nil
}

// Refill restocks the machine. It is rejected while the power is off.
func (c *Coordinator) Refill(ctx context.Context, st State) (State, error) {
	_, span := c.tracer.Start(ctx, "machine.refill")
	defer span.End()

	if !st.PoweredOn {
		span.SetAttributes(attribute.String("refill.outcome", string(CodeMachineOff)))
		return st, ErrMachineOff
	}
	next := st
	next.Inventory = st.Inventory.Refill()
	c.logger.Info("machine refilled")
	return next, nil
}

// TogglePower flips the power switch. It always succeeds.
func (c *Coordinator) TogglePower(ctx context.Context, st State) State {
	_, span := c.tracer.Start(ctx, "machine.power")
	defer span.End()

	next := st
	next.PoweredOn = !st.PoweredOn
	span.SetAttributes(attribute.Bool("machine.on", next.PoweredOn))
	c.logger.Info("power toggled", zap.Bool("on", next.PoweredOn))
	return next
}

// Report summarises stock, profit and the number of orders on record.
func (c *Coordinator) Report(st State) Report {
	return Report{
		Inventory:   st.Inventory,
		Profit:      st.Ledger.Profit,
		TotalOrders: st.Ledger.Orders(),
	}
}
