package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound and ErrInvalidInput are the umbrella kinds. The specific
	// errors below match one of them through errors.Is.
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrProductNotFound   error = kindError{kind: ErrNotFound, msg: "product not found"}
	ErrOrderNotFound     error = kindError{kind: ErrNotFound, msg: "order not found"}
	ErrEmptyOrder        error = kindError{kind: ErrInvalidInput, msg: "order must have at least one item"}
	ErrMissingLineItemID error = kindError{kind: ErrInvalidInput, msg: "line item has no product id"}
	ErrInvalidAmount     error = kindError{kind: ErrInvalidInput, msg: "amount must be positive"}
	ErrInvalidStatus     error = kindError{kind: ErrInvalidInput, msg: "unknown order status"}
	ErrInvalidOrderID    error = kindError{kind: ErrInvalidInput, msg: "order id is reserved"}
	ErrTotalMismatch     error = kindError{kind: ErrInvalidInput, msg: "client total does not match computed total"}

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrVersionConflict   = errors.New("version conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Is(target error) bool { return target == e.kind }

// IsNotFound reports whether err is a missing product or order.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err was caused by a malformed request.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// InsufficientStockError is returned when a reservation asks for more than
// the product holds.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available float64
	Requested float64 // in stock units
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): available %g %s, requested %g %s",
		e.Name, e.ProductID, e.Available, e.Unit, e.Requested, e.Unit)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TransitionError is returned for an edge missing from the lifecycle table.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition from %s to %s is not allowed", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
