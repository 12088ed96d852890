package ledger

import (
	"time"

	"tradecrafter/internal/model"
	"tradecrafter/internal/money"
	"tradecrafter/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var marginLevelFloor = decimal.NewFromInt(100)

// NewAccount builds an active account. A nil balance falls back to
// defaultBalance; equity starts at the balance with nothing reserved.
func NewAccount(ownerID, name string, balance *decimal.Decimal, defaultBalance decimal.Decimal, leverage int, now time.Time) model.Account {
	b := defaultBalance
	if balance != nil {
		b = *balance
	}
	return model.Account{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Name:           name,
		Balance:        b,
		InitialBalance: b,
		Equity:         b,
		Margin:         decimal.Zero,
		FreeMargin:     b,
		MarginLevel:    marginLevelFloor,
		Leverage:       leverage,
		Status:         types.AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// UpdateEquity sets the account equity and re-derives free margin and margin
// level. Equity and margin are never computed from positions here; the caller
// passes in the aggregate.
func UpdateEquity(a *model.Account, newEquity decimal.Decimal, now time.Time) {
	a.Equity = newEquity
	deriveMargins(a)
	a.UpdatedAt = now
}

// UpdateMargin sets the reserved margin and re-derives the same fields.
func UpdateMargin(a *model.Account, newMargin decimal.Decimal, now time.Time) {
	a.Margin = newMargin
	deriveMargins(a)
	a.UpdatedAt = now
}

func deriveMargins(a *model.Account) {
	a.FreeMargin = a.Equity.Sub(a.Margin)
	if a.Margin.Sign() > 0 {
		level, err := money.Ratio(a.Equity, a.Margin)
		if err == nil {
			a.MarginLevel = level
		}
		return
	}
	// margin level is conventionally reported as 100 when nothing is reserved
	a.MarginLevel = marginLevelFloor
}
