package ledger

import (
	"context"

	"tradecrafter/internal/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Snapshot is a point-in-time, read-only view of an account valued at current
// market prices. Assembling it never mutates stored state.
type Snapshot struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Balance        decimal.Decimal `json:"balance"`
	Equity         decimal.Decimal `json:"equity"`
	Margin         decimal.Decimal `json:"margin"`
	FreeMargin     decimal.Decimal `json:"free_margin"`
	MarginLevel    decimal.Decimal `json:"margin_level"`
	PnL            decimal.Decimal `json:"pnl"`
	OpenPositions  int             `json:"open_positions"`
}

// GetSnapshot values the account's open positions at the current last price.
// A symbol with no usable quote contributes zero PnL — the snapshot degrades
// rather than fails. Per-position PnL is rounded to the percentage scale
// before summing.
func (s *Service) GetSnapshot(ctx context.Context, ownerID, accountID string) (Snapshot, error) {
	acct, err := s.GetAccountForOwner(ctx, ownerID, accountID)
	if err != nil {
		return Snapshot{}, err
	}
	open, err := s.store.OpenPositionsByAccount(ctx, accountID)
	if err != nil {
		return Snapshot{}, err
	}

	equity := acct.Balance
	running := decimal.Zero
	for _, p := range open {
		price, err := s.lastPrice(ctx, p.Symbol)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"account_id": accountID,
				"symbol":     p.Symbol,
			}).WithError(err).Warn("snapshot: skipping position without a quote")
			continue
		}
		pnl := money.Percent(unrealizedPnL(p.Side, p.OpenPrice, price, p.Volume))
		running = running.Add(pnl)
		equity = equity.Add(pnl)
	}

	margin := acct.Margin
	freeMargin := equity.Sub(margin)
	marginLevel := marginLevelFloor
	if margin.Sign() > 0 {
		if level, err := money.Ratio(equity, margin); err == nil {
			marginLevel = level
		}
	}

	return Snapshot{
		InitialBalance: acct.InitialBalance,
		Balance:        acct.Balance,
		Equity:         equity,
		Margin:         margin,
		FreeMargin:     freeMargin,
		MarginLevel:    marginLevel,
		PnL:            running,
		OpenPositions:  len(open),
	}, nil
}
