package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/ledger"
	"tradecrafter/internal/model"

	"github.com/google/uuid"
)

// Memory is an in-memory ledger.Store and auth.UserStore, used by tests and
// by dev mode when no DB_DSN is configured.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	orders       map[string]model.Order
	positions    map[string]model.Position
	trades       map[string][]model.Trade
	users        map[string]auth.User
	usersByEmail map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]model.Account),
		orders:       make(map[string]model.Order),
		positions:    make(map[string]model.Position),
		trades:       make(map[string][]model.Trade),
		users:        make(map[string]auth.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *Memory) SaveAccount(ctx context.Context, a model.Account) error {
	m.mu.Lock()
	m.accounts[a.ID] = a
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (model.Account, error) {
	m.mu.RLock()
	a, ok := m.accounts[id]
	m.mu.RUnlock()
	if !ok {
		return model.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (m *Memory) AccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Account
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SaveOrder(ctx context.Context, o model.Order) error {
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (model.Order, error) {
	m.mu.RLock()
	o, ok := m.orders[id]
	m.mu.RUnlock()
	if !ok {
		return model.Order{}, ledger.ErrOrderNotFound
	}
	return o, nil
}

func (m *Memory) OrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) FillableOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.Status.IsFillable() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SavePosition(ctx context.Context, p model.Position) error {
	m.mu.Lock()
	m.positions[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetPosition(ctx context.Context, id string) (model.Position, error) {
	m.mu.RLock()
	p, ok := m.positions[id]
	m.mu.RUnlock()
	if !ok {
		return model.Position{}, ledger.ErrPositionNotFound
	}
	return p, nil
}

func (m *Memory) PositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return m.listPositions(func(p model.Position) bool { return p.AccountID == accountID }), nil
}

func (m *Memory) OpenPositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return m.listPositions(func(p model.Position) bool {
		return p.AccountID == accountID && p.Status.IsOpen()
	}), nil
}

func (m *Memory) OpenPositionsBySymbol(ctx context.Context, symbol string) ([]model.Position, error) {
	return m.listPositions(func(p model.Position) bool {
		return p.Symbol == symbol && p.Status.IsOpen()
	}), nil
}

func (m *Memory) listPositions(match func(model.Position) bool) []model.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Position
	for _, p := range m.positions {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

func (m *Memory) AppendTrade(ctx context.Context, t model.Trade) error {
	m.mu.Lock()
	m.trades[t.AccountID] = append(m.trades[t.AccountID], t)
	m.mu.Unlock()
	return nil
}

func (m *Memory) TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Trade, len(m.trades[accountID]))
	copy(out, m.trades[accountID])
	return out, nil
}

func (m *Memory) CreateUser(ctx context.Context, email, passwordHash string, now time.Time) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usersByEmail[email]; exists {
		return auth.User{}, auth.ErrEmailTaken
	}
	u := auth.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: now}
	m.users[u.ID] = u
	m.usersByEmail[email] = u.ID
	return u, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByEmail[email]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

var _ ledger.Store = (*Memory)(nil)
var _ auth.UserStore = (*Memory)(nil)
