package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
)

type ItemNotFoundError struct {
	MotorbikeID int64
}

func (e ItemNotFoundError) Error() string {
	return fmt.Sprintf("motorbike %d not found", e.MotorbikeID)
}

type InsufficientStockError struct {
	MotorbikeID int64
	Requested   int
	Available   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for motorbike %d: requested %d, available %d",
		e.MotorbikeID, e.Requested, e.Available)
}

type InvalidQuantityError struct {
	MotorbikeID int64
	Quantity    int
}

func (e InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for motorbike %d", e.Quantity, e.MotorbikeID)
}

type IllegalTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// StorageError wraps transport and transaction-layer failures so raw pgx
// errors never cross the package boundary. A non-ambiguous StorageError is
// safe to retry: nothing was committed. Ambiguous means the failure happened
// after the commit request was sent and the outcome is unknown; the caller
// must check for the order before retrying to avoid duplicates.
type StorageError struct {
	Ambiguous bool
	Err       error
}

func (e *StorageError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("storage failure, commit outcome unknown: %v", e.Err)
	}
	return fmt.Sprintf("storage unavailable: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
