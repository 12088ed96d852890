package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNoQuote = errors.New("no quote for symbol")

type quote struct {
	price decimal.Decimal
	at    time.Time
}

// Quotes is an in-memory last-price cache fed by the tick ingestion path.
// It implements Source.
type Quotes struct {
	mu   sync.RWMutex
	data map[string]quote
}

var _ Source = (*Quotes)(nil)

func NewQuotes() *Quotes {
	return &Quotes{data: make(map[string]quote)}
}

// Set stores the last price for a symbol. Non-positive prices are dropped.
func (q *Quotes) Set(symbol string, price decimal.Decimal, at time.Time) {
	if symbol == "" || price.Sign() <= 0 {
		return
	}
	q.mu.Lock()
	q.data[symbol] = quote{price: price, at: at}
	q.mu.Unlock()
}

func (q *Quotes) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	q.mu.RLock()
	v, ok := q.data[symbol]
	q.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}
	return v.price, nil
}

// LastUpdate reports when the symbol's quote was last set.
func (q *Quotes) LastUpdate(symbol string) (time.Time, bool) {
	q.mu.RLock()
	v, ok := q.data[symbol]
	q.mu.RUnlock()
	return v.at, ok
}
