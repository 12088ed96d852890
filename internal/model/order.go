package model

import (
	"time"

	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Symbol       string            `json:"symbol"`
	Type         types.OrderType   `json:"type"`
	Side         types.OrderSide   `json:"side"`
	Volume       decimal.Decimal   `json:"volume"`
	Price        *decimal.Decimal  `json:"price,omitempty"`
	StopPrice    *decimal.Decimal  `json:"stop_price,omitempty"`
	StopLoss     *decimal.Decimal  `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal  `json:"take_profit,omitempty"`
	FilledVolume decimal.Decimal   `json:"filled_volume"`
	FilledPrice  decimal.Decimal   `json:"filled_price"`
	Status       types.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	FilledAt     *time.Time        `json:"filled_at,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
}

func (o Order) RemainingVolume() decimal.Decimal {
	return o.Volume.Sub(o.FilledVolume)
}

func (o Order) IsFullyFilled() bool {
	return o.FilledVolume.GreaterThanOrEqual(o.Volume)
}

func (o Order) IsPartiallyFilled() bool {
	return o.FilledVolume.Sign() > 0 && !o.IsFullyFilled()
}
