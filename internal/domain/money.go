package domain

import "github.com/shopspring/decimal"

// Cents is an amount in integer minor units. Money never touches floating
// point; conversion to a decimal string happens only at the display edge.
type Cents int64

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}
