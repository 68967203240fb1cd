package billing

import (
	"fmt"
	"math"
)

// DefaultCurrency is used when a plan does not name one.
const DefaultCurrency = "INR"

// Money is an amount in the currency's minor unit (paise for INR).
type Money struct {
	Amount   int64  `json:"amount" bson:"amount" yaml:"amount"`
	Currency string `json:"currency" bson:"currency" yaml:"currency"`
}

// NewMoney builds Money, defaulting the currency.
func NewMoney(amount int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// Add returns m + o. Currencies must match; an empty currency adopts the other.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: pickCurrency(m, o)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount - o.Amount, Currency: pickCurrency(m, o)}
}

// Mul returns m * n.
func (m Money) Mul(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}

// Percent returns m * pct / 100 rounded half away from zero.
func (m Money) Percent(pct float64) Money {
	return Money{Amount: int64(math.Round(float64(m.Amount) * pct / 100)), Currency: m.Currency}
}

func (m Money) IsZero() bool { return m.Amount == 0 }

func (m Money) IsNegative() bool { return m.Amount < 0 }

// Cmp returns -1, 0 or 1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.Amount < o.Amount:
		return -1
	case m.Amount > o.Amount:
		return 1
	}
	return 0
}

// Major returns the amount in major units, for display only.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Major(), m.Currency)
}

func pickCurrency(a, b Money) string {
	if a.Currency != "" {
		return a.Currency
	}
	return b.Currency
}
