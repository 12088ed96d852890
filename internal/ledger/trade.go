package ledger

import (
	"time"

	"tradecrafter/internal/model"
	"tradecrafter/internal/money"
	"tradecrafter/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// pnlPercentScale is the intermediate scale of the pnl/cost quotient before
// it is expressed as a percentage.
const pnlPercentScale int32 = 4

// CalculatePnL derives the trade's final PnL from its prices, net of
// commission and slippage, and the PnL percentage relative to the open
// notional. The percentage is left untouched when the open notional is zero.
func CalculatePnL(t *model.Trade) {
	var pnl decimal.Decimal
	if t.Side == types.TradeSideBuy {
		pnl = t.ClosePrice.Sub(t.OpenPrice).Mul(t.Volume)
	} else {
		pnl = t.OpenPrice.Sub(t.ClosePrice).Mul(t.Volume)
	}
	pnl = pnl.Sub(t.Commission).Sub(t.Slippage)
	t.PnL = pnl

	cost := t.OpenPrice.Mul(t.Volume)
	if cost.Sign() > 0 {
		pct := money.Percent(pnl.DivRound(cost, pnlPercentScale).Mul(hundred))
		t.PnLPercent = &pct
	}
}

// TradeFromPosition snapshots a closed position into an immutable trade
// record. The position must already be closed; its accumulated realized PnL
// is not copied verbatim — the trade re-derives PnL from its own open/close
// prices so commission and slippage apply uniformly.
func TradeFromPosition(p model.Position, commission, slippage decimal.Decimal, closeTime time.Time) model.Trade {
	side := types.TradeSideBuy
	if p.IsShort() {
		side = types.TradeSideSell
	}
	t := model.Trade{
		ID:         uuid.NewString(),
		AccountID:  p.AccountID,
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       side,
		Volume:     p.Volume,
		OpenPrice:  p.OpenPrice,
		ClosePrice: p.CurrentPrice,
		OpenTime:   p.OpenedAt,
		CloseTime:  closeTime,
		Commission: commission,
		Slippage:   slippage,
		Status:     types.TradeStatusClosed,
	}
	CalculatePnL(&t)
	return t
}
