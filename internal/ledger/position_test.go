package ledger_test

import (
	"testing"
	"time"

	"tradecrafter/internal/ledger"
	"tradecrafter/internal/model"
	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPosition(side types.PositionSide, volume, openPrice string) model.Position {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return model.Position{
		ID:            "p1",
		AccountID:     "a1",
		Symbol:        "EURUSD",
		Side:          side,
		Volume:        dec(volume),
		OpenPrice:     dec(openPrice),
		CurrentPrice:  dec(openPrice),
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Margin:        dec("10"),
		Status:        types.PositionStatusOpen,
		OpenedAt:      now,
		UpdatedAt:     now,
	}
}

func TestUpdateCurrentPriceLongAndShort(t *testing.T) {
	now := time.Now().UTC()

	long := newPosition(types.PositionSideLong, "10", "100")
	ledger.UpdateCurrentPrice(&long, dec("110"), now)
	assert.True(t, long.UnrealizedPnL.Equal(dec("100")), "got %s", long.UnrealizedPnL)

	short := newPosition(types.PositionSideShort, "10", "100")
	ledger.UpdateCurrentPrice(&short, dec("90"), now)
	assert.True(t, short.UnrealizedPnL.Equal(dec("100")), "got %s", short.UnrealizedPnL)

	// adverse moves go negative
	ledger.UpdateCurrentPrice(&short, dec("105"), now)
	assert.True(t, short.UnrealizedPnL.Equal(dec("-50")))
}

func TestCloseFreezesPosition(t *testing.T) {
	now := time.Now().UTC()
	p := newPosition(types.PositionSideLong, "10", "100")

	require.NoError(t, ledger.Close(&p, dec("110"), now))
	assert.Equal(t, types.PositionStatusClosed, p.Status)
	assert.True(t, p.RealizedPnL.Equal(dec("100")))
	require.NotNil(t, p.ClosedAt)

	// revaluation after close is a no-op
	ledger.UpdateCurrentPrice(&p, dec("50"), now)
	assert.True(t, p.RealizedPnL.Equal(dec("100")))
	assert.True(t, p.CurrentPrice.Equal(dec("110")))

	assert.ErrorIs(t, ledger.Close(&p, dec("120"), now), ledger.ErrAlreadyClosed)
}

func TestIncreaseAveragesOpenPrice(t *testing.T) {
	now := time.Now().UTC()
	p := newPosition(types.PositionSideLong, "1", "100")

	require.NoError(t, ledger.Increase(&p, dec("3"), dec("110"), now))
	assert.True(t, p.Volume.Equal(dec("4")))
	assert.True(t, p.OpenPrice.Equal(dec("107.5")), "got %s", p.OpenPrice)
	// revalued at the fill price
	assert.True(t, p.UnrealizedPnL.Equal(dec("10")), "got %s", p.UnrealizedPnL)

	assert.Error(t, ledger.Increase(&p, decimal.Zero, dec("110"), now))
}

func TestReduceBooksRealizedSlice(t *testing.T) {
	now := time.Now().UTC()
	p := newPosition(types.PositionSideLong, "5", "100")

	realized, err := ledger.Reduce(&p, dec("2"), dec("110"), now)
	require.NoError(t, err)
	assert.True(t, realized.Equal(dec("20")), "got %s", realized)
	assert.True(t, p.Volume.Equal(dec("3")))
	assert.True(t, p.RealizedPnL.Equal(dec("20")))
	assert.Equal(t, types.PositionStatusPartiallyClosed, p.Status)
	// margin shrinks with the surviving volume
	assert.True(t, p.Margin.Equal(dec("6")), "got %s", p.Margin)
	// remainder keeps earning
	assert.True(t, p.UnrealizedPnL.Equal(dec("30")))
}

func TestReduceRequiresPartialVolume(t *testing.T) {
	now := time.Now().UTC()
	p := newPosition(types.PositionSideLong, "5", "100")

	_, err := ledger.Reduce(&p, dec("5"), dec("110"), now)
	assert.Error(t, err, "full volume must go through Close")

	_, err = ledger.Reduce(&p, dec("6"), dec("110"), now)
	assert.Error(t, err)

	_, err = ledger.Reduce(&p, decimal.Zero, dec("110"), now)
	assert.Error(t, err)

	require.NoError(t, ledger.Close(&p, dec("100"), now))
	_, err = ledger.Reduce(&p, dec("1"), dec("110"), now)
	assert.ErrorIs(t, err, ledger.ErrInvalidStateTransition)
}
