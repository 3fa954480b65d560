package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/fedorten/resursGraf/internal/models"
	"gopkg.in/yaml.v3"
)

const steelPrice = 2500.0

type Catalog struct {
	order []string
	items map[string]models.Resource
}

func fixed(v float64) *float64 { return &v }

// Default returns the built-in resource table.
func Default() *Catalog {
	resources := []models.Resource{
		{Key: "oil", Name: "Нефть", Unit: "$/баррель", Provider: models.ProviderYahoo, Symbol: "CL=F"},
		{Key: "gas", Name: "Газ", Unit: "$/MMBtu", Provider: models.ProviderYahoo, Symbol: "NG=F"},
		{Key: "gasoline", Name: "Бензин", Unit: "$/галлон", Provider: models.ProviderYahoo, Symbol: "RB=F"},
		{Key: "diesel", Name: "Дизель", Unit: "$/галлон", Provider: models.ProviderYahoo, Symbol: "HO=F"},
		{Key: "gold", Name: "Золото", Unit: "$/унция", Provider: models.ProviderYahoo, Symbol: "GC=F"},
		{Key: "silver", Name: "Серебро", Unit: "$/унция", Provider: models.ProviderYahoo, Symbol: "SI=F"},
		{Key: "copper", Name: "Медь", Unit: "$/фунт", Provider: models.ProviderYahoo, Symbol: "HG=F"},
		{Key: "steel", Name: "Нержавеющая сталь", Unit: "$/тонна", Provider: models.ProviderFixed, FixedPrice: fixed(steelPrice)},
		{Key: "rub", Name: "Рубль", Unit: "₽/USD", Provider: models.ProviderFrankfurter, Symbol: "RUB"},
	}
	return New(resources)
}

func New(resources []models.Resource) *Catalog {
	c := &Catalog{items: make(map[string]models.Resource, len(resources))}
	for _, r := range resources {
		if _, dup := c.items[r.Key]; !dup {
			c.order = append(c.order, r.Key)
		}
		c.items[r.Key] = r
	}
	return c
}

func (c *Catalog) Get(key string) (models.Resource, bool) {
	r, ok := c.items[key]
	return r, ok
}

// All returns resources in display order.
func (c *Catalog) All() []models.Resource {
	out := make([]models.Resource, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

func (c *Catalog) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// LoadOverrides applies a YAML file of per-resource overrides on top of c.
// Only existing keys may be overridden; empty fields keep their current value.
func (c *Catalog) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var file struct {
		Resources map[string]models.Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	var errs []error
	for key, o := range file.Resources {
		cur, ok := c.items[key]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown resource %q", key))
			continue
		}
		if cur.IsFixed() && repricesFixed(cur, o) {
			errs = append(errs, fmt.Errorf("resource %q: fixed price and provider cannot be overridden", key))
			continue
		}
		if o.Name != "" {
			cur.Name = o.Name
		}
		if o.Unit != "" {
			cur.Unit = o.Unit
		}
		if o.Provider != "" {
			cur.Provider = o.Provider
		}
		if o.Symbol != "" {
			cur.Symbol = o.Symbol
		}
		if o.FixedPrice != nil {
			cur.FixedPrice = fixed(*o.FixedPrice)
		}
		if err := validate(cur); err != nil {
			errs = append(errs, err)
			continue
		}
		c.items[key] = cur
	}
	return errors.Join(errs...)
}

func repricesFixed(cur, o models.Resource) bool {
	if o.Provider != "" && o.Provider != cur.Provider {
		return true
	}
	return o.FixedPrice != nil && *o.FixedPrice != *cur.FixedPrice
}

func validate(r models.Resource) error {
	switch r.Provider {
	case models.ProviderFixed:
		if r.FixedPrice == nil {
			return fmt.Errorf("resource %q: fixed provider needs fixed_price", r.Key)
		}
	case models.ProviderYahoo, models.ProviderFrankfurter:
		if r.Symbol == "" {
			return fmt.Errorf("resource %q: symbol is required", r.Key)
		}
	default:
		return fmt.Errorf("resource %q: unknown provider %q", r.Key, r.Provider)
	}
	return nil
}
