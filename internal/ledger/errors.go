package ledger

import "errors"

var (
	// ErrInvalidStateTransition means the order or position is already in a
	// terminal state and rejects the attempted transition.
	ErrInvalidStateTransition = errors.New("state transition not allowed")
	// ErrOverFill means the fill volume exceeds the order's remaining volume.
	ErrOverFill = errors.New("fill exceeds remaining order volume")
	// ErrAlreadyClosed means a second close was attempted on a position.
	ErrAlreadyClosed = errors.New("position already closed")
	// ErrMarketDataUnavailable means no usable last price exists for a symbol.
	ErrMarketDataUnavailable = errors.New("market data unavailable")

	ErrAccountNotFound  = errors.New("account not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPositionNotFound = errors.New("position not found")
)
