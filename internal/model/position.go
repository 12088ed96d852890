package model

import (
	"time"

	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

type Position struct {
	ID            string               `json:"id"`
	AccountID     string               `json:"account_id"`
	OrderID       string               `json:"order_id,omitempty"`
	Symbol        string               `json:"symbol"`
	Side          types.PositionSide   `json:"side"`
	Volume        decimal.Decimal      `json:"volume"`
	OpenPrice     decimal.Decimal      `json:"open_price"`
	CurrentPrice  decimal.Decimal      `json:"current_price"`
	StopLoss      *decimal.Decimal     `json:"stop_loss,omitempty"`
	TakeProfit    *decimal.Decimal     `json:"take_profit,omitempty"`
	UnrealizedPnL decimal.Decimal      `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal      `json:"realized_pnl"`
	Margin        decimal.Decimal      `json:"margin"`
	Status        types.PositionStatus `json:"status"`
	OpenedAt      time.Time            `json:"opened_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ClosedAt      *time.Time           `json:"closed_at,omitempty"`
}

func (p Position) IsLong() bool {
	return p.Side == types.PositionSideLong
}

func (p Position) IsShort() bool {
	return p.Side == types.PositionSideShort
}

func (p Position) IsProfitable() bool {
	return p.UnrealizedPnL.Sign() > 0
}
