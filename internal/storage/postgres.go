package storage

import (
	"context"
	"errors"
	"time"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/ledger"
	"tradecrafter/internal/model"
	"tradecrafter/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres persists ledger records via pgxpool. Records arrive whole from the
// ledger; every write is an upsert by id.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the schema when it does not exist yet.
func (s *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`create table if not exists users (
			id uuid primary key,
			email text not null unique,
			password_hash text not null,
			created_at timestamptz not null
		)`,
		`create table if not exists accounts (
			id uuid primary key,
			owner_id uuid not null,
			name text not null,
			balance numeric not null,
			initial_balance numeric not null,
			equity numeric not null,
			margin numeric not null,
			free_margin numeric not null,
			margin_level numeric not null,
			leverage int not null,
			status text not null,
			created_at timestamptz not null,
			updated_at timestamptz not null
		)`,
		`create index if not exists idx_accounts_owner on accounts (owner_id)`,
		`create table if not exists orders (
			id uuid primary key,
			account_id uuid not null references accounts (id),
			symbol text not null,
			type text not null,
			side text not null,
			volume numeric not null,
			price numeric,
			stop_price numeric,
			stop_loss numeric,
			take_profit numeric,
			filled_volume numeric not null,
			filled_price numeric not null,
			status text not null,
			created_at timestamptz not null,
			updated_at timestamptz not null,
			filled_at timestamptz,
			expires_at timestamptz
		)`,
		`create index if not exists idx_orders_account on orders (account_id)`,
		`create index if not exists idx_orders_status on orders (status)`,
		`create table if not exists positions (
			id uuid primary key,
			account_id uuid not null references accounts (id),
			order_id uuid,
			symbol text not null,
			side text not null,
			volume numeric not null,
			open_price numeric not null,
			current_price numeric not null,
			stop_loss numeric,
			take_profit numeric,
			unrealized_pnl numeric not null,
			realized_pnl numeric not null,
			margin numeric not null,
			status text not null,
			opened_at timestamptz not null,
			updated_at timestamptz not null,
			closed_at timestamptz
		)`,
		`create index if not exists idx_positions_account on positions (account_id)`,
		`create index if not exists idx_positions_symbol on positions (symbol, status)`,
		`create table if not exists trades (
			id uuid primary key,
			account_id uuid not null references accounts (id),
			position_id uuid,
			symbol text not null,
			side text not null,
			volume numeric not null,
			open_price numeric not null,
			close_price numeric not null,
			open_time timestamptz not null,
			close_time timestamptz not null,
			commission numeric not null,
			slippage numeric not null,
			pnl numeric not null,
			pnl_percent numeric,
			status text not null
		)`,
		`create index if not exists idx_trades_account on trades (account_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) SaveAccount(ctx context.Context, a model.Account) error {
	_, err := s.pool.Exec(ctx, `insert into accounts
		(id, owner_id, name, balance, initial_balance, equity, margin, free_margin, margin_level, leverage, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		on conflict (id) do update set
			balance = excluded.balance, equity = excluded.equity, margin = excluded.margin,
			free_margin = excluded.free_margin, margin_level = excluded.margin_level,
			name = excluded.name, status = excluded.status, updated_at = excluded.updated_at`,
		a.ID, a.OwnerID, a.Name, a.Balance, a.InitialBalance, a.Equity, a.Margin, a.FreeMargin, a.MarginLevel, a.Leverage, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return err
}

const accountColumns = "id, owner_id, name, balance, initial_balance, equity, margin, free_margin, margin_level, leverage, status, created_at, updated_at"

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	var status string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Balance, &a.InitialBalance, &a.Equity, &a.Margin, &a.FreeMargin, &a.MarginLevel, &a.Leverage, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Status = types.AccountStatus(status)
	return a, nil
}

func (s *Postgres) GetAccount(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, "select "+accountColumns+" from accounts where id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, ledger.ErrAccountNotFound
	}
	return a, err
}

func (s *Postgres) AccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, "select "+accountColumns+" from accounts where owner_id = $1 order by created_at", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveOrder(ctx context.Context, o model.Order) error {
	_, err := s.pool.Exec(ctx, `insert into orders
		(id, account_id, symbol, type, side, volume, price, stop_price, stop_loss, take_profit, filled_volume, filled_price, status, created_at, updated_at, filled_at, expires_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		on conflict (id) do update set
			filled_volume = excluded.filled_volume, filled_price = excluded.filled_price,
			status = excluded.status, updated_at = excluded.updated_at, filled_at = excluded.filled_at`,
		o.ID, o.AccountID, o.Symbol, string(o.Type), string(o.Side), o.Volume, o.Price, o.StopPrice, o.StopLoss, o.TakeProfit, o.FilledVolume, o.FilledPrice, string(o.Status), o.CreatedAt, o.UpdatedAt, o.FilledAt, o.ExpiresAt)
	return err
}

const orderColumns = "id, account_id, symbol, type, side, volume, price, stop_price, stop_loss, take_profit, filled_volume, filled_price, status, created_at, updated_at, filled_at, expires_at"

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var typ, side, status string
	var price, stopPrice, stopLoss, takeProfit *decimal.Decimal
	err := row.Scan(&o.ID, &o.AccountID, &o.Symbol, &typ, &side, &o.Volume, &price, &stopPrice, &stopLoss, &takeProfit, &o.FilledVolume, &o.FilledPrice, &status, &o.CreatedAt, &o.UpdatedAt, &o.FilledAt, &o.ExpiresAt)
	if err != nil {
		return o, err
	}
	o.Type = types.OrderType(typ)
	o.Side = types.OrderSide(side)
	o.Status = types.OrderStatus(status)
	o.Price = price
	o.StopPrice = stopPrice
	o.StopLoss = stopLoss
	o.TakeProfit = takeProfit
	return o, nil
}

func (s *Postgres) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, "select "+orderColumns+" from orders where id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, ledger.ErrOrderNotFound
	}
	return o, err
}

func (s *Postgres) queryOrders(ctx context.Context, sql string, args ...any) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Postgres) OrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	return s.queryOrders(ctx, "select "+orderColumns+" from orders where account_id = $1 order by created_at", accountID)
}

func (s *Postgres) FillableOrders(ctx context.Context) ([]model.Order, error) {
	return s.queryOrders(ctx, "select "+orderColumns+" from orders where status in ('pending','partially_filled') order by created_at")
}

func (s *Postgres) SavePosition(ctx context.Context, p model.Position) error {
	_, err := s.pool.Exec(ctx, `insert into positions
		(id, account_id, order_id, symbol, side, volume, open_price, current_price, stop_loss, take_profit, unrealized_pnl, realized_pnl, margin, status, opened_at, updated_at, closed_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		on conflict (id) do update set
			volume = excluded.volume, open_price = excluded.open_price, current_price = excluded.current_price,
			unrealized_pnl = excluded.unrealized_pnl, realized_pnl = excluded.realized_pnl,
			margin = excluded.margin, status = excluded.status,
			updated_at = excluded.updated_at, closed_at = excluded.closed_at`,
		p.ID, p.AccountID, nullableID(p.OrderID), p.Symbol, string(p.Side), p.Volume, p.OpenPrice, p.CurrentPrice, p.StopLoss, p.TakeProfit, p.UnrealizedPnL, p.RealizedPnL, p.Margin, string(p.Status), p.OpenedAt, p.UpdatedAt, p.ClosedAt)
	return err
}

const positionColumns = "id, account_id, order_id, symbol, side, volume, open_price, current_price, stop_loss, take_profit, unrealized_pnl, realized_pnl, margin, status, opened_at, updated_at, closed_at"

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var side, status string
	var orderID *string
	var stopLoss, takeProfit *decimal.Decimal
	err := row.Scan(&p.ID, &p.AccountID, &orderID, &p.Symbol, &side, &p.Volume, &p.OpenPrice, &p.CurrentPrice, &stopLoss, &takeProfit, &p.UnrealizedPnL, &p.RealizedPnL, &p.Margin, &status, &p.OpenedAt, &p.UpdatedAt, &p.ClosedAt)
	if err != nil {
		return p, err
	}
	if orderID != nil {
		p.OrderID = *orderID
	}
	p.Side = types.PositionSide(side)
	p.Status = types.PositionStatus(status)
	p.StopLoss = stopLoss
	p.TakeProfit = takeProfit
	return p, nil
}

func (s *Postgres) GetPosition(ctx context.Context, id string) (model.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx, "select "+positionColumns+" from positions where id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Position{}, ledger.ErrPositionNotFound
	}
	return p, err
}

func (s *Postgres) queryPositions(ctx context.Context, sql string, args ...any) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) PositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return s.queryPositions(ctx, "select "+positionColumns+" from positions where account_id = $1 order by opened_at", accountID)
}

func (s *Postgres) OpenPositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return s.queryPositions(ctx, "select "+positionColumns+" from positions where account_id = $1 and status in ('open','partially_closed') order by opened_at", accountID)
}

func (s *Postgres) OpenPositionsBySymbol(ctx context.Context, symbol string) ([]model.Position, error) {
	return s.queryPositions(ctx, "select "+positionColumns+" from positions where symbol = $1 and status in ('open','partially_closed') order by opened_at", symbol)
}

func (s *Postgres) AppendTrade(ctx context.Context, t model.Trade) error {
	_, err := s.pool.Exec(ctx, `insert into trades
		(id, account_id, position_id, symbol, side, volume, open_price, close_price, open_time, close_time, commission, slippage, pnl, pnl_percent, status)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		t.ID, t.AccountID, nullableID(t.PositionID), t.Symbol, string(t.Side), t.Volume, t.OpenPrice, t.ClosePrice, t.OpenTime, t.CloseTime, t.Commission, t.Slippage, t.PnL, t.PnLPercent, string(t.Status))
	return err
}

func (s *Postgres) TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, `select id, account_id, position_id, symbol, side, volume, open_price, close_price, open_time, close_time, commission, slippage, pnl, pnl_percent, status
		from trades where account_id = $1 order by close_time`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var side, status string
		var positionID *string
		var pnlPercent *decimal.Decimal
		if err := rows.Scan(&t.ID, &t.AccountID, &positionID, &t.Symbol, &side, &t.Volume, &t.OpenPrice, &t.ClosePrice, &t.OpenTime, &t.CloseTime, &t.Commission, &t.Slippage, &t.PnL, &pnlPercent, &status); err != nil {
			return nil, err
		}
		if positionID != nil {
			t.PositionID = *positionID
		}
		t.Side = types.TradeSide(side)
		t.Status = types.TradeStatus(status)
		t.PnLPercent = pnlPercent
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateUser(ctx context.Context, email, passwordHash string, now time.Time) (auth.User, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "select exists(select 1 from users where email = $1)", email).Scan(&exists); err != nil {
		return auth.User{}, err
	}
	if exists {
		return auth.User{}, auth.ErrEmailTaken
	}
	u := auth.User{Email: email, PasswordHash: passwordHash, CreatedAt: now}
	err := s.pool.QueryRow(ctx, "insert into users (id, email, password_hash, created_at) values (gen_random_uuid(), $1, $2, $3) returning id", email, passwordHash, now).Scan(&u.ID)
	return u, err
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := s.pool.QueryRow(ctx, "select id, email, password_hash, created_at from users where email = $1", email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

func (s *Postgres) UserByID(ctx context.Context, id string) (auth.User, error) {
	var u auth.User
	err := s.pool.QueryRow(ctx, "select id, email, password_hash, created_at from users where id = $1", id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

var _ ledger.Store = (*Postgres)(nil)
var _ auth.UserStore = (*Postgres)(nil)
