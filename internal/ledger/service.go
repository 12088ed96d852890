package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradecrafter/internal/marketdata"
	"tradecrafter/internal/model"
	"tradecrafter/internal/money"
	"tradecrafter/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MarketData supplies last prices. A zero or failed price means "unknown",
// never a real price of zero.
type MarketData interface {
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Publisher receives ledger events for the streaming layer.
type Publisher interface {
	Publish(evt marketdata.Event)
}

const (
	defaultLeverage     = 100
	defaultQuoteTimeout = 2 * time.Second
)

var defaultBalance = decimal.NewFromInt(10000)

type Options struct {
	DefaultBalance  decimal.Decimal
	DefaultLeverage int
	QuoteTimeout    time.Duration
	Publisher       Publisher
	Logger          logrus.FieldLogger
}

// Service orchestrates the accounting core. Every mutation that touches one
// account's balance, margin or equity runs under that account's lock, so two
// fills or a fill and a price tick cannot interleave.
type Service struct {
	store        Store
	market       MarketData
	pub          Publisher
	log          logrus.FieldLogger
	defBalance   decimal.Decimal
	defLeverage  int
	quoteTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, market MarketData, opts Options) *Service {
	s := &Service{
		store:        store,
		market:       market,
		pub:          opts.Publisher,
		log:          opts.Logger,
		defBalance:   opts.DefaultBalance,
		defLeverage:  opts.DefaultLeverage,
		quoteTimeout: opts.QuoteTimeout,
		locks:        make(map[string]*sync.Mutex),
	}
	if s.defBalance.IsZero() {
		s.defBalance = defaultBalance
	}
	if s.defLeverage <= 0 {
		s.defLeverage = defaultLeverage
	}
	if s.quoteTimeout <= 0 {
		s.quoteTimeout = defaultQuoteTimeout
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *Service) lockAccount(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Service) publish(typ string, data map[string]string) {
	if s.pub != nil {
		s.pub.Publish(marketdata.Event{Type: typ, Data: data})
	}
}

// lastPrice fetches a quote under the configured timeout. Zero and negative
// prices are sentinels for "unknown" and map to ErrMarketDataUnavailable.
func (s *Service) lastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	price, err := s.market.GetLastPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrMarketDataUnavailable, symbol, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMarketDataUnavailable, symbol)
	}
	return price, nil
}

func (s *Service) CreateAccount(ctx context.Context, ownerID, name string, balance *decimal.Decimal, now time.Time) (model.Account, error) {
	if ownerID == "" {
		return model.Account{}, errors.New("owner id is required")
	}
	if balance != nil && balance.Sign() <= 0 {
		return model.Account{}, errors.New("balance must be positive")
	}
	acct := NewAccount(ownerID, name, balance, s.defBalance, s.defLeverage, now)
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

// GetAccountForOwner loads an account and verifies ownership.
func (s *Service) GetAccountForOwner(ctx context.Context, ownerID, accountID string) (model.Account, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	if acct.OwnerID != ownerID {
		return model.Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *Service) AccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	return s.store.AccountsByOwner(ctx, ownerID)
}

type PlaceOrderRequest struct {
	OwnerID    string
	AccountID  string
	Symbol     string
	Type       types.OrderType
	Side       types.OrderSide
	Volume     decimal.Decimal
	Price      *decimal.Decimal
	StopPrice  *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	ExpiresAt  *time.Time
}

func (r PlaceOrderRequest) validate() error {
	if r.Symbol == "" {
		return errors.New("symbol is required")
	}
	if r.Side != types.OrderSideBuy && r.Side != types.OrderSideSell {
		return errors.New("invalid side")
	}
	switch r.Type {
	case types.OrderTypeMarket:
		if r.Price != nil {
			return errors.New("price not allowed for market order")
		}
	case types.OrderTypeLimit:
		if r.Price == nil || r.Price.Sign() <= 0 {
			return errors.New("price required for limit order")
		}
	case types.OrderTypeStop:
		if r.StopPrice == nil || r.StopPrice.Sign() <= 0 {
			return errors.New("stop price required for stop order")
		}
	case types.OrderTypeStopLimit:
		if r.Price == nil || r.Price.Sign() <= 0 || r.StopPrice == nil || r.StopPrice.Sign() <= 0 {
			return errors.New("price and stop price required for stop limit order")
		}
	default:
		return errors.New("invalid type")
	}
	if r.Volume.Sign() <= 0 {
		return errors.New("volume must be positive")
	}
	return nil
}

// PlaceOrder records a pending order. A market order executes immediately
// against the current last price for its full volume; if no usable price
// exists the order is rejected and ErrMarketDataUnavailable is returned with
// the rejected order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest, now time.Time) (model.Order, error) {
	if err := req.validate(); err != nil {
		return model.Order{}, err
	}
	acct, err := s.GetAccountForOwner(ctx, req.OwnerID, req.AccountID)
	if err != nil {
		return model.Order{}, err
	}

	unlock := s.lockAccount(acct.ID)
	defer unlock()

	// reload under the lock; a concurrent fill or close may have moved the
	// balance between the ownership check and lock acquisition
	acct, err = s.store.GetAccount(ctx, acct.ID)
	if err != nil {
		return model.Order{}, err
	}
	if acct.Status != types.AccountStatusActive {
		return model.Order{}, fmt.Errorf("account %s is %s", acct.ID, acct.Status)
	}

	o := model.Order{
		ID:           uuid.NewString(),
		AccountID:    acct.ID,
		Symbol:       req.Symbol,
		Type:         req.Type,
		Side:         req.Side,
		Volume:       req.Volume,
		Price:        req.Price,
		StopPrice:    req.StopPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		FilledVolume: decimal.Zero,
		FilledPrice:  decimal.Zero,
		Status:       types.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := s.store.SaveOrder(ctx, o); err != nil {
		return model.Order{}, err
	}

	if o.Type != types.OrderTypeMarket {
		return o, nil
	}

	price, err := s.lastPrice(ctx, o.Symbol)
	if err != nil {
		if rejErr := Reject(&o, now); rejErr == nil {
			if saveErr := s.store.SaveOrder(ctx, o); saveErr != nil {
				return o, saveErr
			}
		}
		return o, err
	}
	if err := s.applyFill(ctx, &acct, &o, o.Volume, price, now); err != nil {
		return o, err
	}
	return o, nil
}

// FillOrder applies an execution to a fillable order. This is the entry point
// for the simulated execution path; it runs the full fill-then-recompute
// sequence under the account lock.
func (s *Service) FillOrder(ctx context.Context, ownerID, orderID string, volume, price decimal.Decimal, now time.Time) (model.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	acct, err := s.GetAccountForOwner(ctx, ownerID, o.AccountID)
	if err != nil {
		return model.Order{}, err
	}

	unlock := s.lockAccount(acct.ID)
	defer unlock()

	// reload under the lock; a concurrent fill may have advanced the order
	o, err = s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	acct, err = s.store.GetAccount(ctx, acct.ID)
	if err != nil {
		return model.Order{}, err
	}
	if acct.Status != types.AccountStatusActive {
		return model.Order{}, fmt.Errorf("account %s is %s", acct.ID, acct.Status)
	}
	if err := s.applyFill(ctx, &acct, &o, volume, price, now); err != nil {
		return o, err
	}
	return o, nil
}

// applyFill mutates the order, nets the fill into positions, posts realized
// PnL to the balance and re-derives the account aggregates. The caller holds
// the account lock. Nothing is persisted if the fill itself is invalid.
func (s *Service) applyFill(ctx context.Context, acct *model.Account, o *model.Order, volume, price decimal.Decimal, now time.Time) error {
	if err := Fill(o, volume, price, now); err != nil {
		return err
	}

	open, err := s.store.OpenPositionsByAccount(ctx, acct.ID)
	if err != nil {
		return err
	}
	var existing *model.Position
	for i := range open {
		if open[i].Symbol == o.Symbol {
			existing = &open[i]
			break
		}
	}

	balanceDelta := decimal.Zero
	var closedTrades []model.Trade
	fillSide := positionSideFor(o.Side)

	switch {
	case existing == nil:
		opened := s.openPosition(acct, o, fillSide, volume, price, now)
		open = append(open, opened)

	case existing.Side == fillSide:
		if err := Increase(existing, volume, price, now); err != nil {
			return err
		}
		existing.Margin = marginFor(existing.OpenPrice, existing.Volume, acct.Leverage)

	default:
		// opposite side: net against the open position first, then open the
		// excess in the new direction
		switch {
		case volume.LessThan(existing.Volume):
			realized, err := Reduce(existing, volume, price, now)
			if err != nil {
				return err
			}
			balanceDelta = balanceDelta.Add(realized)

		default:
			excess := volume.Sub(existing.Volume)
			before := existing.RealizedPnL
			if err := Close(existing, price, now); err != nil {
				return err
			}
			balanceDelta = balanceDelta.Add(existing.RealizedPnL.Sub(before))
			closedTrades = append(closedTrades, TradeFromPosition(*existing, decimal.Zero, decimal.Zero, now))
			if excess.Sign() > 0 {
				opened := s.openPosition(acct, o, fillSide, excess, price, now)
				open = append(open, opened)
			}
		}
	}

	for i := range open {
		if err := s.store.SavePosition(ctx, open[i]); err != nil {
			return err
		}
	}
	for _, t := range closedTrades {
		if err := s.store.AppendTrade(ctx, t); err != nil {
			return err
		}
	}

	acct.Balance = acct.Balance.Add(balanceDelta)
	s.recomputeAccount(acct, open, now)
	if err := s.store.SaveAccount(ctx, *acct); err != nil {
		return err
	}
	if err := s.store.SaveOrder(ctx, *o); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": acct.ID,
		"order_id":   o.ID,
		"symbol":     o.Symbol,
		"volume":     volume.String(),
		"price":      price.String(),
		"status":     string(o.Status),
	}).Info("order fill applied")
	s.publish("order_filled", map[string]string{
		"account_id": acct.ID,
		"order_id":   o.ID,
		"symbol":     o.Symbol,
		"volume":     volume.String(),
		"price":      price.String(),
		"status":     string(o.Status),
	})
	for _, t := range closedTrades {
		s.publish("position_closed", map[string]string{
			"account_id": acct.ID,
			"trade_id":   t.ID,
			"symbol":     t.Symbol,
			"pnl":        t.PnL.String(),
		})
	}
	return nil
}

func (s *Service) openPosition(acct *model.Account, o *model.Order, side types.PositionSide, volume, price decimal.Decimal, now time.Time) model.Position {
	return model.Position{
		ID:            uuid.NewString(),
		AccountID:     acct.ID,
		OrderID:       o.ID,
		Symbol:        o.Symbol,
		Side:          side,
		Volume:        volume,
		OpenPrice:     price,
		CurrentPrice:  price,
		StopLoss:      o.StopLoss,
		TakeProfit:    o.TakeProfit,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Margin:        marginFor(price, volume, acct.Leverage),
		Status:        types.PositionStatusOpen,
		OpenedAt:      now,
		UpdatedAt:     now,
	}
}

// recomputeAccount sums live position margin and unrealized PnL and feeds the
// aggregates through the equity/margin calculator. Closed positions in the
// slice are skipped.
func (s *Service) recomputeAccount(acct *model.Account, positions []model.Position, now time.Time) {
	totalMargin := decimal.Zero
	totalUnrealized := decimal.Zero
	for i := range positions {
		if !positions[i].Status.IsOpen() {
			continue
		}
		totalMargin = totalMargin.Add(positions[i].Margin)
		totalUnrealized = totalUnrealized.Add(positions[i].UnrealizedPnL)
	}
	UpdateMargin(acct, totalMargin, now)
	UpdateEquity(acct, acct.Balance.Add(totalUnrealized), now)
}

func positionSideFor(side types.OrderSide) types.PositionSide {
	if side == types.OrderSideBuy {
		return types.PositionSideLong
	}
	return types.PositionSideShort
}

// marginFor reserves notional divided by leverage. Leverage below one means
// unleveraged: the full notional is reserved.
func marginFor(openPrice, volume decimal.Decimal, leverage int) decimal.Decimal {
	notional := openPrice.Mul(volume)
	if leverage <= 1 {
		return notional
	}
	return notional.DivRound(decimal.NewFromInt(int64(leverage)), money.PriceScale)
}

func (s *Service) CancelOrder(ctx context.Context, ownerID, orderID string, now time.Time) (model.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if _, err := s.GetAccountForOwner(ctx, ownerID, o.AccountID); err != nil {
		return model.Order{}, err
	}

	unlock := s.lockAccount(o.AccountID)
	defer unlock()

	o, err = s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := Cancel(&o, now); err != nil {
		return o, err
	}
	if err := s.store.SaveOrder(ctx, o); err != nil {
		return o, err
	}
	return o, nil
}

// ClosePosition closes the whole position. With a nil closePrice the current
// last price is used; close requires a real price, so a missing quote is a
// hard error here, unlike in snapshots.
func (s *Service) ClosePosition(ctx context.Context, ownerID, positionID string, closePrice *decimal.Decimal, commission, slippage decimal.Decimal, now time.Time) (model.Trade, error) {
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return model.Trade{}, err
	}
	acct, err := s.GetAccountForOwner(ctx, ownerID, p.AccountID)
	if err != nil {
		return model.Trade{}, err
	}

	unlock := s.lockAccount(acct.ID)
	defer unlock()

	p, err = s.store.GetPosition(ctx, positionID)
	if err != nil {
		return model.Trade{}, err
	}
	acct, err = s.store.GetAccount(ctx, acct.ID)
	if err != nil {
		return model.Trade{}, err
	}
	if acct.Status != types.AccountStatusActive {
		return model.Trade{}, fmt.Errorf("account %s is %s", acct.ID, acct.Status)
	}

	price := decimal.Zero
	if closePrice != nil {
		price = *closePrice
	} else {
		price, err = s.lastPrice(ctx, p.Symbol)
		if err != nil {
			return model.Trade{}, err
		}
	}

	before := p.RealizedPnL
	if err := Close(&p, price, now); err != nil {
		return model.Trade{}, err
	}
	trade := TradeFromPosition(p, commission, slippage, now)

	if err := s.store.SavePosition(ctx, p); err != nil {
		return model.Trade{}, err
	}
	if err := s.store.AppendTrade(ctx, trade); err != nil {
		return model.Trade{}, err
	}

	// book the newly realized slice net of costs; earlier partial reductions
	// already posted theirs
	delta := p.RealizedPnL.Sub(before).Sub(commission).Sub(slippage)
	acct.Balance = acct.Balance.Add(delta)
	open, err := s.store.OpenPositionsByAccount(ctx, acct.ID)
	if err != nil {
		return model.Trade{}, err
	}
	s.recomputeAccount(&acct, open, now)
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return model.Trade{}, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id":  acct.ID,
		"position_id": p.ID,
		"symbol":      p.Symbol,
		"pnl":         trade.PnL.String(),
	}).Info("position closed")
	s.publish("position_closed", map[string]string{
		"account_id": acct.ID,
		"trade_id":   trade.ID,
		"symbol":     trade.Symbol,
		"pnl":        trade.PnL.String(),
	})
	return trade, nil
}

// OnPriceTick revalues every open position on the symbol and re-derives the
// owning accounts' aggregates. Accounts are processed independently; one
// failing account does not stop the others.
func (s *Service) OnPriceTick(ctx context.Context, symbol string, price decimal.Decimal, now time.Time) error {
	if price.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrMarketDataUnavailable, symbol)
	}
	positions, err := s.store.OpenPositionsBySymbol(ctx, symbol)
	if err != nil {
		return err
	}
	accountIDs := make([]string, 0, len(positions))
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.AccountID]; !ok {
			seen[p.AccountID] = struct{}{}
			accountIDs = append(accountIDs, p.AccountID)
		}
	}

	for _, accountID := range accountIDs {
		if err := s.revalueAccount(ctx, accountID, symbol, price, now); err != nil {
			s.log.WithFields(logrus.Fields{
				"account_id": accountID,
				"symbol":     symbol,
			}).WithError(err).Warn("revaluation failed")
		}
	}
	s.publish("price_tick", map[string]string{"symbol": symbol, "price": price.String()})
	return nil
}

func (s *Service) revalueAccount(ctx context.Context, accountID, symbol string, price decimal.Decimal, now time.Time) error {
	unlock := s.lockAccount(accountID)
	defer unlock()

	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	open, err := s.store.OpenPositionsByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for i := range open {
		if open[i].Symbol != symbol {
			continue
		}
		UpdateCurrentPrice(&open[i], price, now)
		if err := s.store.SavePosition(ctx, open[i]); err != nil {
			return err
		}
	}
	s.recomputeAccount(&acct, open, now)
	return s.store.SaveAccount(ctx, acct)
}

// ExpireOrders sweeps fillable orders past their deadline. Returns the number
// of orders expired.
func (s *Service) ExpireOrders(ctx context.Context, now time.Time) (int, error) {
	orders, err := s.store.FillableOrders(ctx)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range orders {
		if !ExpireIfPastDeadline(&orders[i], now) {
			continue
		}
		if err := s.store.SaveOrder(ctx, orders[i]); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *Service) OrdersByAccount(ctx context.Context, ownerID, accountID string) ([]model.Order, error) {
	if _, err := s.GetAccountForOwner(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	return s.store.OrdersByAccount(ctx, accountID)
}

func (s *Service) PositionsByAccount(ctx context.Context, ownerID, accountID string) ([]model.Position, error) {
	if _, err := s.GetAccountForOwner(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	return s.store.PositionsByAccount(ctx, accountID)
}

func (s *Service) TradesByAccount(ctx context.Context, ownerID, accountID string) ([]model.Trade, error) {
	if _, err := s.GetAccountForOwner(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	return s.store.TradesByAccount(ctx, accountID)
}
