package models

const (
	ProviderYahoo       = "yahoo"
	ProviderFrankfurter = "frankfurter"
	ProviderFixed       = "fixed"
)

type Resource struct {
	Key        string   `json:"key" yaml:"-"`
	Name       string   `json:"name" yaml:"name"`
	Unit       string   `json:"unit" yaml:"unit"`
	Provider   string   `json:"provider" yaml:"provider"`
	Symbol     string   `json:"symbol,omitempty" yaml:"symbol"`
	FixedPrice *float64 `json:"fixedPrice,omitempty" yaml:"fixed_price"`
}

func (r Resource) IsFixed() bool {
	return r.Provider == ProviderFixed && r.FixedPrice != nil
}
