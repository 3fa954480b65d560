package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fedorten/resursGraf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Keys(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"oil", "gas", "gasoline", "diesel", "gold", "silver", "copper", "steel", "rub"}, c.Keys())

	steel, ok := c.Get("steel")
	require.True(t, ok)
	require.True(t, steel.IsFixed())
	assert.Equal(t, 2500.0, *steel.FixedPrice)

	rub, ok := c.Get("rub")
	require.True(t, ok)
	assert.Equal(t, models.ProviderFrankfurter, rub.Provider)
	assert.Equal(t, "₽/USD", rub.Unit)

	_, ok = c.Get("platinum")
	assert.False(t, ok)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverrides(t *testing.T) {
	c := Default()
	path := writeFile(t, `
resources:
  oil:
    name: Brent
    symbol: BZ=F
  steel:
    name: Сталь
`)
	require.NoError(t, c.LoadOverrides(path))

	oil, _ := c.Get("oil")
	assert.Equal(t, "Brent", oil.Name)
	assert.Equal(t, "BZ=F", oil.Symbol)
	assert.Equal(t, "$/баррель", oil.Unit)

	steel, _ := c.Get("steel")
	assert.Equal(t, "Сталь", steel.Name)
	assert.Equal(t, 2500.0, *steel.FixedPrice)
}

func TestLoadOverrides_FixedPriceIsLocked(t *testing.T) {
	for name, body := range map[string]string{
		"price":    "resources:\n  steel:\n    fixed_price: 2600\n",
		"provider": "resources:\n  steel:\n    provider: yahoo\n    symbol: HRC=F\n",
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			err := c.LoadOverrides(writeFile(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "steel")

			steel, _ := c.Get("steel")
			assert.True(t, steel.IsFixed())
			assert.Equal(t, 2500.0, *steel.FixedPrice)
		})
	}

	c := Default()
	require.NoError(t, c.LoadOverrides(writeFile(t, "resources:\n  steel:\n    fixed_price: 2500\n")))
}

func TestLoadOverrides_UnknownKey(t *testing.T) {
	c := Default()
	path := writeFile(t, `
resources:
  platinum:
    name: Платина
`)
	err := c.LoadOverrides(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platinum")
	assert.Len(t, c.Keys(), 9)
}

func TestLoadOverrides_BadProvider(t *testing.T) {
	c := Default()
	path := writeFile(t, `
resources:
  gold:
    provider: bloomberg
`)
	require.Error(t, c.LoadOverrides(path))

	gold, _ := c.Get("gold")
	assert.Equal(t, models.ProviderYahoo, gold.Provider)
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	require.Error(t, Default().LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml")))
}
