package marketdata_test

import (
	"context"
	"testing"
	"time"

	"tradecrafter/internal/marketdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotesSetAndGet(t *testing.T) {
	q := marketdata.NewQuotes()
	ctx := context.Background()
	now := time.Now()

	_, err := q.GetLastPrice(ctx, "EURUSD")
	assert.ErrorIs(t, err, marketdata.ErrNoQuote)

	q.Set("EURUSD", decimal.NewFromInt(100), now)
	price, err := q.GetLastPrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(100)))

	at, ok := q.LastUpdate("EURUSD")
	assert.True(t, ok)
	assert.Equal(t, now, at)
}

func TestQuotesDropInvalid(t *testing.T) {
	q := marketdata.NewQuotes()
	ctx := context.Background()
	now := time.Now()

	q.Set("EURUSD", decimal.Zero, now)
	q.Set("EURUSD", decimal.NewFromInt(-5), now)
	q.Set("", decimal.NewFromInt(100), now)

	_, err := q.GetLastPrice(ctx, "EURUSD")
	assert.ErrorIs(t, err, marketdata.ErrNoQuote)
}

func TestQuotesHonourContext(t *testing.T) {
	q := marketdata.NewQuotes()
	q.Set("EURUSD", decimal.NewFromInt(100), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.GetLastPrice(ctx, "EURUSD")
	assert.ErrorIs(t, err, context.Canceled)
}
