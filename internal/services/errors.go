package services

import (
	"errors"
	"fmt"

	"github.com/example/bozor/internal/models"
)

// Sentinel errors surfaced by the order and shipment services. Handlers map
// these onto HTTP status codes; none of them leave partial state behind.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrUnauthorized     = errors.New("actor is not allowed to modify this order")
	ErrInvalidSignature = errors.New("payment signature mismatch")
	ErrAlreadyPaid      = errors.New("order is already paid")
)

// InvalidTransitionError rejects a status change that is not an edge of the
// fulfillment state machine. The order is left untouched.
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError rejects a malformed request before it reaches the state
// machine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AdapterFailureError wraps a failed call to an external adapter. During the
// SHIPPED transition it is logged and swallowed rather than propagated; the
// seller's declaration of shipment is authoritative.
type AdapterFailureError struct {
	Adapter string
	Err     error
}

func (e *AdapterFailureError) Error() string {
	return fmt.Sprintf("%s adapter failure: %v", e.Adapter, e.Err)
}

func (e *AdapterFailureError) Unwrap() error {
	return e.Err
}
