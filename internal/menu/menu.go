package menu

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Resource is a consumable ingredient tracked by the machine.
type Resource string

const (
	Water  Resource = "water"
	Milk   Resource = "milk"
	Coffee Resource = "coffee"
)

// Resources lists every resource the machine stocks, in display order.
var Resources = []Resource{Water, Milk, Coffee}

// Valid reports whether r is one of the stocked resources.
func (r Resource) Valid() bool {
	switch r {
	case Water, Milk, Coffee:
		return true
	}
	return false
}

// ErrDrinkNotFound is returned by FindDrink when no drink has the given name.
var ErrDrinkNotFound = errors.New("drink not found")

// Ingredient is a single resource requirement of a drink.
type Ingredient struct {
	Resource Resource
	Quantity int
}

// Drink is an immutable catalog entry.
type Drink struct {
	name        string
	cost        decimal.Decimal
	ingredients []Ingredient
}

// NewDrink validates and builds a drink. Ingredient order is preserved.
func NewDrink(name string, cost decimal.Decimal, ingredients ...Ingredient) (Drink, error) {
	if name == "" {
		return Drink{}, errors.New("drink name is required")
	}
	if cost.IsNegative() {
		return Drink{}, fmt.Errorf("drink %q: cost cannot be negative", name)
	}
	seen := make(map[Resource]bool, len(ingredients))
	for _, ing := range ingredients {
		if !ing.Resource.Valid() {
			return Drink{}, fmt.Errorf("drink %q: unknown resource %q", name, ing.Resource)
		}
		if ing.Quantity <= 0 {
			return Drink{}, fmt.Errorf("drink %q: quantity of %s must be positive", name, ing.Resource)
		}
		if seen[ing.Resource] {
			return Drink{}, fmt.Errorf("drink %q: duplicate ingredient %s", name, ing.Resource)
		}
		seen[ing.Resource] = true
	}
	return Drink{
		name:        name,
		cost:        cost,
		ingredients: append([]Ingredient(nil), ingredients...),
	}, nil
}

// MustDrink is like NewDrink but panics on invalid input. Intended for tests
// and static catalogs.
func MustDrink(name string, cost string, ingredients ...Ingredient) Drink {
	d, err := NewDrink(name, decimal.RequireFromString(cost), ingredients...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Drink) Name() string          { return d.name }
func (d Drink) Cost() decimal.Decimal { return d.cost }

// Ingredients returns a copy of the drink's requirements in catalog order.
func (d Drink) Ingredients() []Ingredient {
	return append([]Ingredient(nil), d.ingredients...)
}

// Requires returns the quantity of r the drink needs, zero if none.
func (d Drink) Requires(r Resource) int {
	for _, ing := range d.ingredients {
		if ing.Resource == r {
			return ing.Quantity
		}
	}
	return 0
}

// Menu is an ordered, immutable drink catalog.
type Menu struct {
	drinks []Drink
	index  map[string]int
}

// New builds a menu from drinks, rejecting duplicate names.
func New(drinks ...Drink) (*Menu, error) {
	m := &Menu{
		drinks: make([]Drink, 0, len(drinks)),
		index:  make(map[string]int, len(drinks)),
	}
	for _, d := range drinks {
		if d.name == "" {
			return nil, errors.New("menu contains a drink without a name")
		}
		if _, dup := m.index[d.name]; dup {
			return nil, fmt.Errorf("duplicate drink %q", d.name)
		}
		m.index[d.name] = len(m.drinks)
		m.drinks = append(m.drinks, d)
	}
	return m, nil
}

// FindDrink looks up a drink by exact, case-sensitive name.
func (m *Menu) FindDrink(name string) (Drink, error) {
	i, ok := m.index[name]
	if !ok {
		return Drink{}, fmt.Errorf("%w: %q", ErrDrinkNotFound, name)
	}
	return m.drinks[i], nil
}

// ListDrinks returns the catalog in insertion order.
func (m *Menu) ListDrinks() []Drink {
	return append([]Drink(nil), m.drinks...)
}
