package menu

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Drinks []catalogDrink `yaml:"drinks"`
}

type catalogDrink struct {
	Name string `yaml:"name"`
	Cost string `yaml:"cost"`
	// MapSlice keeps the ingredient order from the file.
	Ingredients yaml.MapSlice `yaml:"ingredients"`
}

// Default returns the built-in catalog.
func Default() (*Menu, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Menu, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	drinks := make([]Drink, 0, len(file.Drinks))
	for _, cd := range file.Drinks {
		cost, err := decimal.NewFromString(cd.Cost)
		if err != nil {
			return nil, fmt.Errorf("drink %q: invalid cost %q: %w", cd.Name, cd.Cost, err)
		}

		ingredients := make([]Ingredient, 0, len(cd.Ingredients))
		for _, item := range cd.Ingredients {
			name, ok := item.Key.(string)
			if !ok {
				return nil, fmt.Errorf("drink %q: ingredient key %v is not a string", cd.Name, item.Key)
			}
			qty, ok := item.Value.(int)
			if !ok {
				return nil, fmt.Errorf("drink %q: quantity of %s is not an integer", cd.Name, name)
			}
			ingredients = append(ingredients, Ingredient{Resource: Resource(name), Quantity: qty})
		}

		d, err := NewDrink(cd.Name, cost, ingredients...)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, d)
	}

	return New(drinks...)
}
