package model

import (
	"github.com/shopspring/decimal"
)

// BacktestResult aggregates closed-trade statistics. The derived metrics are
// nil until CalculateMetrics runs, and stay nil when their denominator is
// zero (no trades, zero initial balance, no losing trades).
type BacktestResult struct {
	ID             string           `json:"id"`
	Symbol         string           `json:"symbol"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	FinalBalance   decimal.Decimal  `json:"final_balance"`
	TotalPnL       decimal.Decimal  `json:"total_pnl"`
	TotalTrades    int              `json:"total_trades"`
	WinningTrades  int              `json:"winning_trades"`
	LosingTrades   int              `json:"losing_trades"`
	AverageWin     decimal.Decimal  `json:"average_win"`
	AverageLoss    decimal.Decimal  `json:"average_loss"`
	WinRate        *decimal.Decimal `json:"win_rate,omitempty"`
	TotalReturn    *decimal.Decimal `json:"total_return,omitempty"`
	ProfitFactor   *decimal.Decimal `json:"profit_factor,omitempty"`
}
