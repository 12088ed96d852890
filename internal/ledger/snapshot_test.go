package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tradecrafter/internal/ledger"
	"tradecrafter/internal/marketdata"
	"tradecrafter/internal/model"
	"tradecrafter/internal/storage"
	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotValuesOpenPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setQuote("EURUSD", "100")
	f.marketBuy(t, "EURUSD", "2")

	f.setQuote("EURUSD", "110")
	snap, err := f.svc.GetSnapshot(ctx, owner, f.acct.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.OpenPositions)
	assert.True(t, snap.Balance.Equal(dec("10000")))
	assert.True(t, snap.PnL.Equal(dec("20")), "got %s", snap.PnL)
	assert.True(t, snap.Equity.Equal(dec("10020")))
	assert.True(t, snap.FreeMargin.Equal(snap.Equity.Sub(snap.Margin)))
	assert.True(t, snap.MarginLevel.GreaterThan(dec("100")))
}

func TestSnapshotIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setQuote("EURUSD", "100")
	f.marketBuy(t, "EURUSD", "2")

	f.setQuote("EURUSD", "110")
	_, err := f.svc.GetSnapshot(ctx, owner, f.acct.ID)
	require.NoError(t, err)

	// neither the account nor the position moved
	acct := f.account(t)
	assert.True(t, acct.Equity.Equal(dec("10000")))
	open := f.openPositions(t)
	require.Len(t, open, 1)
	assert.True(t, open[0].CurrentPrice.Equal(dec("100")))
	assert.True(t, open[0].UnrealizedPnL.IsZero())
}

// partialQuotes only knows prices for the symbols it was given.
type partialQuotes map[string]decimal.Decimal

func (q partialQuotes) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := q[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", marketdata.ErrNoQuote, symbol)
	}
	return price, nil
}

func TestSnapshotFailsOpenOnMissingQuote(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	store := storage.NewMemory()
	market := partialQuotes{"EURUSD": dec("110")}
	svc := ledger.NewService(store, market, ledger.Options{Logger: log})

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	acct, err := svc.CreateAccount(ctx, owner, "main", nil, now)
	require.NoError(t, err)

	seed := func(id, symbol, openPrice string) {
		require.NoError(t, store.SavePosition(ctx, model.Position{
			ID:           id,
			AccountID:    acct.ID,
			Symbol:       symbol,
			Side:         types.PositionSideLong,
			Volume:       dec("2"),
			OpenPrice:    dec(openPrice),
			CurrentPrice: dec(openPrice),
			Margin:       dec("1"),
			Status:       types.PositionStatusOpen,
			OpenedAt:     now,
			UpdatedAt:    now,
		}))
	}
	seed("p-eur", "EURUSD", "100")
	seed("p-gbp", "GBPUSD", "200")

	// GBPUSD has no quote; it is skipped rather than failing the snapshot
	snap, err := svc.GetSnapshot(ctx, owner, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.OpenPositions)
	assert.True(t, snap.PnL.Equal(dec("20")), "got %s", snap.PnL)
	assert.True(t, snap.Equity.Equal(dec("10020")))
}
