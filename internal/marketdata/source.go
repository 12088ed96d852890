package marketdata

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source is the external market-data contract. Implementations may return a
// zero price or an error when no quote exists; callers must treat both as
// "unknown", not as a price of zero.
type Source interface {
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
