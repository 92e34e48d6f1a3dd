package machine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"coffee-machine/internal/inventory"
	"coffee-machine/internal/menu"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type machineFeature struct {
	coordinator *Coordinator
	state       State
	receipt     Receipt
	orderErr    error
	refillErr   error
}

func (f *machineFeature) reset() error {
	m, err := menu.Default()
	if err != nil {
		return err
	}
	f.coordinator = NewCoordinator(m)
	f.state = NewState()
	f.receipt = Receipt{}
	f.orderErr = nil
	f.refillErr = nil
	return nil
}

func (f *machineFeature) aFreshMachine() error {
	f.state = NewState()
	return nil
}

func (f *machineFeature) theMachineStocks(water, milk, coffee int) error {
	f.state.Inventory = inventory.Inventory{Water: water, Milk: milk, Coffee: coffee}
	return nil
}

func (f *machineFeature) iOrderPaying(ctx context.Context, drink, amount string) error {
	tendered, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	f.state, f.receipt, f.orderErr = f.coordinator.Order(ctx, f.state, OrderRequest{Drink: drink, Tendered: tendered})
	return nil
}

func (f *machineFeature) iOrderRepeatedly(ctx context.Context, drink, amount string, times int) error {
	for i := 0; i < times; i++ {
		if i%3 == 0 {
			if err := f.iRefill(ctx); err != nil {
				return err
			}
		}
		if err := f.iOrderPaying(ctx, drink, amount); err != nil {
			return err
		}
		if f.orderErr != nil {
			return fmt.Errorf("order %d failed: %w", i+1, f.orderErr)
		}
	}
	return nil
}

func (f *machineFeature) iTogglePower(ctx context.Context) error {
	f.state = f.coordinator.TogglePower(ctx, f.state)
	return nil
}

func (f *machineFeature) iRefill(ctx context.Context) error {
	var next State
	next, f.refillErr = f.coordinator.Refill(ctx, f.state)
	f.state = next
	return nil
}

func (f *machineFeature) fulfilledWithChange(change string) error {
	if f.orderErr != nil {
		return fmt.Errorf("expected order to be fulfilled, got %v", f.orderErr)
	}
	if got := f.receipt.Change.StringFixed(2); got != change {
		return fmt.Errorf("expected change %s, got %s", change, got)
	}
	return nil
}

func rejectionCode(err error) (Code, error) {
	var rej *Rejection
	if !errors.As(err, &rej) {
		return "", fmt.Errorf("expected a rejection, got %v", err)
	}
	return rej.Code, nil
}

func (f *machineFeature) orderRejectedWith(code string) error {
	got, err := rejectionCode(f.orderErr)
	if err != nil {
		return err
	}
	if string(got) != code {
		return fmt.Errorf("expected rejection %s, got %s", code, got)
	}
	return nil
}

func (f *machineFeature) refillRejectedWith(code string) error {
	got, err := rejectionCode(f.refillErr)
	if err != nil {
		return err
	}
	if string(got) != code {
		return fmt.Errorf("expected rejection %s, got %s", code, got)
	}
	return nil
}

func (f *machineFeature) missingResourceIs(resource string) error {
	var rej *Rejection
	if !errors.As(f.orderErr, &rej) {
		return fmt.Errorf("expected a rejection, got %v", f.orderErr)
	}
	if string(rej.Resource) != resource {
		return fmt.Errorf("expected missing %s, got %s", resource, rej.Resource)
	}
	return nil
}

func (f *machineFeature) theMachineHas(water, milk, coffee int) error {
	want := inventory.Inventory{Water: water, Milk: milk, Coffee: coffee}
	if f.state.Inventory != want {
		return fmt.Errorf("expected %+v, got %+v", want, f.state.Inventory)
	}
	return nil
}

func (f *machineFeature) theProfitIs(amount string) error {
	want, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	if !f.state.Ledger.Profit.Equal(want) {
		return fmt.Errorf("expected profit %s, got %s", want, f.state.Ledger.Profit)
	}
	return nil
}

func (f *machineFeature) historyHas(n int) error {
	if got := len(f.state.Ledger.History); got != n {
		return fmt.Errorf("expected %d history entries, got %d", n, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	f := &machineFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, f.reset()
	})

	// Given
	ctx.Step(`^a fresh machine$`, f.aFreshMachine)
	ctx.Step(`^the machine stocks (\d+) water, (\d+) milk and (\d+) coffee$`, f.theMachineStocks)

	// When
	ctx.Step(`^I order "([^"]*)" paying ([\d.]+)$`, f.iOrderPaying)
	ctx.Step(`^I order "([^"]*)" paying ([\d.]+) (\d+) times with refills$`, f.iOrderRepeatedly)
	ctx.Step(`^I toggle the power$`, f.iTogglePower)
	ctx.Step(`^I refill the machine$`, f.iRefill)

	// Then
	ctx.Step(`^the order is fulfilled with change ([\d.]+)$`, f.fulfilledWithChange)
	ctx.Step(`^the order is rejected with "([^"]*)"$`, f.orderRejectedWith)
	ctx.Step(`^the refill is rejected with "([^"]*)"$`, f.refillRejectedWith)
	ctx.Step(`^the missing resource is "([^"]*)"$`, f.missingResourceIs)
	ctx.Step(`^the machine has (\d+) water, (\d+) milk and (\d+) coffee$`, f.theMachineHas)
	ctx.Step(`^the profit is ([\d.]+)$`, f.theProfitIs)
	ctx.Step(`^the history has (\d+) entries$`, f.historyHas)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
