package model

import (
	"time"

	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

// Trade is the immutable historical record written when a position closes.
// PnLPercent stays nil when the open notional is zero and the percentage
// cannot be derived.
type Trade struct {
	ID         string            `json:"id"`
	AccountID  string            `json:"account_id"`
	PositionID string            `json:"position_id,omitempty"`
	Symbol     string            `json:"symbol"`
	Side       types.TradeSide   `json:"side"`
	Volume     decimal.Decimal   `json:"volume"`
	OpenPrice  decimal.Decimal   `json:"open_price"`
	ClosePrice decimal.Decimal   `json:"close_price"`
	OpenTime   time.Time         `json:"open_time"`
	CloseTime  time.Time         `json:"close_time"`
	Commission decimal.Decimal   `json:"commission"`
	Slippage   decimal.Decimal   `json:"slippage"`
	PnL        decimal.Decimal   `json:"pnl"`
	PnLPercent *decimal.Decimal  `json:"pnl_percent,omitempty"`
	Status     types.TradeStatus `json:"status"`
}

func (t Trade) Duration() time.Duration {
	return t.CloseTime.Sub(t.OpenTime)
}

func (t Trade) IsProfitable() bool {
	return t.PnL.Sign() > 0
}

func (t Trade) IsLong() bool {
	return t.Side == types.TradeSideBuy
}

func (t Trade) IsShort() bool {
	return t.Side == types.TradeSideSell
}
