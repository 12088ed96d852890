package ledger

import (
	"errors"
	"fmt"
	"time"

	"tradecrafter/internal/model"
	"tradecrafter/internal/money"
	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

func unrealizedPnL(side types.PositionSide, openPrice, currentPrice, volume decimal.Decimal) decimal.Decimal {
	if side == types.PositionSideLong {
		return currentPrice.Sub(openPrice).Mul(volume)
	}
	return openPrice.Sub(currentPrice).Mul(volume)
}

// UpdateCurrentPrice revalues an open position at newPrice. Closed positions
// never revalue; the call is a silent no-op for them.
func UpdateCurrentPrice(p *model.Position, newPrice decimal.Decimal, now time.Time) {
	if !p.Status.IsOpen() {
		return
	}
	p.CurrentPrice = newPrice
	p.UnrealizedPnL = unrealizedPnL(p.Side, p.OpenPrice, newPrice, p.Volume)
	p.UpdatedAt = now
}

// Close revalues the position once more at closePrice, folds the final
// unrealized PnL into the realized figure, and freezes the position. Closing
// twice fails with ErrAlreadyClosed.
func Close(p *model.Position, closePrice decimal.Decimal, now time.Time) error {
	if p.Status == types.PositionStatusClosed {
		return fmt.Errorf("%w: position %s", ErrAlreadyClosed, p.ID)
	}
	p.CurrentPrice = closePrice
	p.UnrealizedPnL = unrealizedPnL(p.Side, p.OpenPrice, closePrice, p.Volume)
	p.RealizedPnL = p.RealizedPnL.Add(p.UnrealizedPnL)
	p.Status = types.PositionStatusClosed
	p.ClosedAt = &now
	p.UpdatedAt = now
	return nil
}

// Increase grows the position by volume at price, re-deriving the open price
// as the volume-weighted average of the old position and the new fill.
func Increase(p *model.Position, volume, price decimal.Decimal, now time.Time) error {
	if !p.Status.IsOpen() {
		return fmt.Errorf("%w: position %s is closed", ErrInvalidStateTransition, p.ID)
	}
	if volume.Sign() <= 0 {
		return errors.New("increase volume must be positive")
	}
	open, err := money.VWAP(p.Volume, p.OpenPrice, volume, price)
	if err != nil {
		return err
	}
	p.OpenPrice = open
	p.Volume = p.Volume.Add(volume)
	UpdateCurrentPrice(p, price, now)
	return nil
}

// Reduce closes part of the position at price, booking the realized PnL of
// the closed slice onto the position and returning it. Reserved margin shrinks
// proportionally. volume must be strictly less than the live volume; use
// Close for a full close.
func Reduce(p *model.Position, volume, price decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !p.Status.IsOpen() {
		return decimal.Zero, fmt.Errorf("%w: position %s is closed", ErrInvalidStateTransition, p.ID)
	}
	if volume.Sign() <= 0 {
		return decimal.Zero, errors.New("reduce volume must be positive")
	}
	if volume.GreaterThanOrEqual(p.Volume) {
		return decimal.Zero, fmt.Errorf("reduce volume %s must be below position volume %s", volume, p.Volume)
	}

	realized := unrealizedPnL(p.Side, p.OpenPrice, price, volume)
	remaining := p.Volume.Sub(volume)
	// shrink reserved margin in proportion to the volume that stays open
	if p.Volume.Sign() > 0 {
		ratio := remaining.DivRound(p.Volume, money.PriceScale)
		p.Margin = p.Margin.Mul(ratio)
	}
	p.Volume = remaining
	p.RealizedPnL = p.RealizedPnL.Add(realized)
	p.Status = types.PositionStatusPartiallyClosed
	UpdateCurrentPrice(p, price, now)
	return realized, nil
}
