// Package inventory tracks the machine's consumable stock.
package inventory

import "coffee-machine/internal/menu"

// Capacity levels a refill restores.
const (
	MaxWater  = 300
	MaxMilk   = 200
	MaxCoffee = 100
)

// Inventory is the stock on hand. Quantities are never negative as long as
// every Debit is preceded by a successful Check.
type Inventory struct {
	Water  int `json:"water"`
	Milk   int `json:"milk"`
	Coffee int `json:"coffee"`
}

// Full returns an inventory stocked to capacity.
func Full() Inventory {
	return Inventory{Water: MaxWater, Milk: MaxMilk, Coffee: MaxCoffee}
}

// Level returns the quantity of r on hand.
func (inv Inventory) Level(r menu.Resource) int {
	if p := inv.slot(r); p != nil {
		return *p
	}
	return 0
}

// Check reports whether the drink can be made. When it cannot, missing is the
// first resource, in the drink's ingredient order, that is short.
func (inv Inventory) Check(d menu.Drink) (missing menu.Resource, ok bool) {
	for _, ing := range d.Ingredients() {
		if ing.Quantity > inv.Level(ing.Resource) {
			return ing.Resource, false
		}
	}
	return "", true
}

// Debit returns the inventory left after making d.
//
// The caller must have confirmed sufficiency with Check; Debit does not check
// again.
func (inv Inventory) Debit(d menu.Drink) Inventory {
	for _, ing := range d.Ingredients() {
		if p := inv.slot(ing.Resource); p != nil {
			*p -= ing.Quantity
		}
	}
	return inv
}

// Refill returns a full inventory regardless of the current levels.
func (inv Inventory) Refill() Inventory {
	return Full()
}

// Levels returns the stock keyed by resource name.
func (inv Inventory) Levels() map[menu.Resource]int {
	out := make(map[menu.Resource]int, len(menu.Resources))
	for _, r := range menu.Resources {
		out[r] = inv.Level(r)
	}
	return out
}

func (inv *Inventory) slot(r menu.Resource) *int {
	switch r {
	case menu.Water:
		return &inv.Water
	case menu.Milk:
		return &inv.Milk
	case menu.Coffee:
		return &inv.Coffee
	}
	return nil
}
