package ledger

import (
	"context"

	"tradecrafter/internal/model"
)

// Store is the persistence contract the ledger runs against. All financial
// math happens in memory; records are handed to the store whole. Save methods
// upsert by id.
type Store interface {
	SaveAccount(ctx context.Context, a model.Account) error
	GetAccount(ctx context.Context, id string) (model.Account, error)
	AccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error)

	SaveOrder(ctx context.Context, o model.Order) error
	GetOrder(ctx context.Context, id string) (model.Order, error)
	OrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error)
	FillableOrders(ctx context.Context) ([]model.Order, error)

	SavePosition(ctx context.Context, p model.Position) error
	GetPosition(ctx context.Context, id string) (model.Position, error)
	PositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error)
	OpenPositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error)
	OpenPositionsBySymbol(ctx context.Context, symbol string) ([]model.Position, error)

	AppendTrade(ctx context.Context, t model.Trade) error
	TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error)
}
