package domain

import (
	"errors"
	"strconv"
)

var (
	// ErrNotFound is returned when an account, holding, order or quote does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStateTransition is returned when completing or cancelling a terminal order.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidOrder is returned when a trade request is rejected before any state changed.
	ErrInvalidOrder = errors.New("invalid order request")
)

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string // Operation that failed (e.g., "get quote", "credit balance")
	Err error  // Underlying error
}

func (e *PersistenceError) Error() string {
	return "persistence error [" + e.Op + "]: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a persistence error for the given operation.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// StateTransitionError reports an attempt to move an order out of a terminal
// state. It unwraps to ErrInvalidStateTransition.
type StateTransitionError struct {
	OrderID uint
	From    OrderStatus
	To      OrderStatus
}

func (e *StateTransitionError) Error() string {
	return "order " + strconv.FormatUint(uint64(e.OrderID), 10) +
		": cannot transition " + string(e.From) + " -> " + string(e.To)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// CompensationError means the primary operation failed AND the compensating
// cancellation failed too. Money may have moved without a matching terminal
// order state, so callers must surface this loudly.
type CompensationError struct {
	OrderID      uint
	Primary      error // why the primary path failed
	Compensation error // why the cancel failed
}

func (e *CompensationError) Error() string {
	return "order " + strconv.FormatUint(uint64(e.OrderID), 10) +
		": compensation failed: " + e.Compensation.Error() +
		" (primary failure: " + e.Primary.Error() + ")"
}

func (e *CompensationError) Unwrap() error {
	return e.Compensation
}
