package types

import "time"

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCAD Currency = "CAD"
	CurrencyMXN Currency = "MXN"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

func (c Currency) String() string {
	return string(c)
}

// Rate is a single daily exchange rate data point.
// Day carries no time component (normalized to UTC midnight), and the rate
// is expressed as target units per one base unit
type Rate struct {
	Day       time.Time `json:"day"`
	FetchedAt time.Time `json:"fetched_at"`
	Base      Currency  `json:"base"`
	Target    Currency  `json:"target"`
	Rate      float64   `json:"rate"`
}
