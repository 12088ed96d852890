// Package money pins the decimal scales and rounding used across the ledger.
// Prices and volumes carry 8 fractional digits, percentages carry 2, and all
// rounding is half-up. Call sites must not round on their own.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// PriceScale applies to prices, volumes and PnL amounts.
	PriceScale int32 = 8
	// PercentScale applies to percentage outputs such as margin level.
	PercentScale int32 = 2
)

var ErrDivisionByZero = errors.New("money: division by zero")

var hundred = decimal.NewFromInt(100)

// Price rounds to the price/volume scale.
func Price(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

// Percent rounds to the percentage scale.
func Percent(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentScale)
}

// Div divides a by b, rounding half-up at the given scale.
func Div(a, b decimal.Decimal, scale int32) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.DivRound(b, scale), nil
}

// Ratio returns a/b*100 at the percentage scale, e.g. for margin level.
func Ratio(a, b decimal.Decimal) (decimal.Decimal, error) {
	q, err := Div(a, b, PercentScale)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Mul(hundred), nil
}

// VWAP folds a new fill into an existing volume-weighted average price.
func VWAP(oldVolume, oldPrice, fillVolume, fillPrice decimal.Decimal) (decimal.Decimal, error) {
	total := oldVolume.Add(fillVolume)
	if total.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	notional := oldVolume.Mul(oldPrice).Add(fillVolume.Mul(fillPrice))
	return notional.DivRound(total, PriceScale), nil
}
