package machine

import (
	"coffee-machine/internal/inventory"
	"coffee-machine/internal/ledger"

	"github.com/shopspring/decimal"
)

// State is everything one session's machine remembers.
type State struct {
	Inventory inventory.Inventory `json:"resources"`
	Ledger    ledger.Ledger       `json:"ledger"`
	PoweredOn bool                `json:"is_on"`
}

// NewState returns the state of a freshly installed machine: full stock, no
// profit, powered on, empty history.
func NewState() State {
	return State{
		Inventory: inventory.Full(),
		PoweredOn: true,
	}
}

// Report is the operator summary of a machine.
type Report struct {
	Inventory   inventory.Inventory
	Profit      decimal.Decimal
	TotalOrders int
}
