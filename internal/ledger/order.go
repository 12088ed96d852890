package ledger

import (
	"errors"
	"fmt"
	"time"

	"tradecrafter/internal/model"
	"tradecrafter/internal/money"
	"tradecrafter/internal/types"

	"github.com/shopspring/decimal"
)

// Fill applies an execution of fillVolume at fillPrice to the order. The
// filled price becomes the volume-weighted average across all fills so far,
// and the status moves to filled or partially_filled accordingly. Terminal
// orders reject the fill; volume beyond the remainder is an over-fill.
func Fill(o *model.Order, fillVolume, fillPrice decimal.Decimal, now time.Time) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", ErrInvalidStateTransition, o.ID, o.Status)
	}
	if fillVolume.Sign() <= 0 {
		return errors.New("fill volume must be positive")
	}
	if fillPrice.Sign() <= 0 {
		return errors.New("fill price must be positive")
	}
	newFilled := o.FilledVolume.Add(fillVolume)
	if newFilled.GreaterThan(o.Volume) {
		return fmt.Errorf("%w: order %s has %s remaining, got %s",
			ErrOverFill, o.ID, o.RemainingVolume(), fillVolume)
	}

	vwap, err := money.VWAP(o.FilledVolume, o.FilledPrice, fillVolume, fillPrice)
	if err != nil {
		return err
	}
	o.FilledPrice = vwap
	o.FilledVolume = newFilled
	o.FilledAt = &now
	o.UpdatedAt = now

	if o.IsFullyFilled() {
		o.Status = types.OrderStatusFilled
	} else {
		o.Status = types.OrderStatusPartiallyFilled
	}
	return nil
}

// Cancel voids the order's remaining volume. A partially filled order keeps
// its fills and becomes cancelled; a terminal order rejects the transition.
func Cancel(o *model.Order, now time.Time) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", ErrInvalidStateTransition, o.ID, o.Status)
	}
	o.Status = types.OrderStatusCancelled
	o.UpdatedAt = now
	return nil
}

// Reject marks a pending order as rejected.
func Reject(o *model.Order, now time.Time) error {
	if o.Status != types.OrderStatusPending {
		return fmt.Errorf("%w: order %s is %s", ErrInvalidStateTransition, o.ID, o.Status)
	}
	o.Status = types.OrderStatusRejected
	o.UpdatedAt = now
	return nil
}

// ExpireIfPastDeadline transitions a still-fillable order whose deadline has
// passed to expired. It reports whether the order was expired; terminal
// orders and orders without a deadline are left alone.
func ExpireIfPastDeadline(o *model.Order, now time.Time) bool {
	if !o.Status.IsFillable() || o.ExpiresAt == nil {
		return false
	}
	if now.Before(*o.ExpiresAt) {
		return false
	}
	o.Status = types.OrderStatusExpired
	o.UpdatedAt = now
	return true
}
