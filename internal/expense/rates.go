package expense

import "fmt"

// RateProvider looks up the conversion factor from a currency to USD, the
// single reporting currency. It is injected so aggregation logic stays
// independent of where rates come from.
type RateProvider interface {
	RateToUSD(currency string) (float64, error)
}

// StaticRateTable is a fixed conversion table. Totals computed from it are
// reproducible; live rates are deliberately out of scope.
type StaticRateTable map[string]float64

func (t StaticRateTable) RateToUSD(currency string) (float64, error) {
	rate, ok := t[currency]
	if !ok {
		return 0, fmt.Errorf("no USD rate for currency %q", currency)
	}
	return rate, nil
}

// SupportedCurrencies returns the closed currency set offered to callers.
func (t StaticRateTable) SupportedCurrencies() []string {
	out := make([]string, 0, len(t))
	for code := range t {
		out = append(out, code)
	}
	return out
}

func (t StaticRateTable) Supports(currency string) bool {
	_, ok := t[currency]
	return ok
}

// DefaultRates is the built-in table covering the supported currency set.
func DefaultRates() StaticRateTable {
	return StaticRateTable{
		"USD": 1.0,
		"SGD": 0.74,
		"JPY": 0.0067,
		"EUR": 1.08,
		"GBP": 1.27,
		"THB": 0.028,
		"MYR": 0.21,
		"AUD": 0.66,
		"HKD": 0.128,
		"KRW": 0.00075,
	}
}
