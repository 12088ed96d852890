package ledger

import (
	"tradecrafter/internal/model"
	"tradecrafter/internal/money"

	"github.com/shopspring/decimal"
)

// CalculateMetrics derives win rate, total return and profit factor on a
// backtest result. Each metric is skipped — left nil — when its denominator
// is zero; a zero denominator is a guard here, never an error.
func CalculateMetrics(r *model.BacktestResult) {
	if r.TotalTrades > 0 {
		wins := decimal.NewFromInt(int64(r.WinningTrades))
		total := decimal.NewFromInt(int64(r.TotalTrades))
		rate := money.Percent(wins.DivRound(total, pnlPercentScale).Mul(hundred))
		r.WinRate = &rate
	}

	if r.InitialBalance.Sign() > 0 {
		ret := money.Percent(r.TotalPnL.DivRound(r.InitialBalance, pnlPercentScale).Mul(hundred))
		r.TotalReturn = &ret
	}

	if r.LosingTrades > 0 && !r.AverageLoss.IsZero() {
		grossWin := r.AverageWin.Mul(decimal.NewFromInt(int64(r.WinningTrades)))
		grossLoss := r.AverageLoss.Mul(decimal.NewFromInt(int64(r.LosingTrades)))
		if !grossLoss.IsZero() {
			pf := grossWin.DivRound(grossLoss, money.PercentScale)
			r.ProfitFactor = &pf
		}
	}
}
