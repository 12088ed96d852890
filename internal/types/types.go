package types

type OrderSide string

type OrderType string

type OrderStatus string

type PositionSide string

type PositionStatus string

type TradeSide string

type TradeStatus string

type AccountStatus string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

const (
	PositionStatusOpen            PositionStatus = "open"
	PositionStatusPartiallyClosed PositionStatus = "partially_closed"
	PositionStatusClosed          PositionStatus = "closed"
)

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)

// IsTerminal reports whether no further order transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// IsFillable reports whether the order can still accept executions.
func (s OrderStatus) IsFillable() bool {
	return s == OrderStatusPending || s == OrderStatusPartiallyFilled
}

// IsOpen reports whether the position still carries live volume.
func (s PositionStatus) IsOpen() bool {
	return s == PositionStatusOpen || s == PositionStatusPartiallyClosed
}
