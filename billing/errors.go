/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every engine operation fails fast and synchronously with one of these
  typed errors, and guarantees state is unchanged on any rejection.

ERROR CATEGORIES:
  1. State errors       - mutating a closed session
  2. Argument errors    - negative deltas, non-positive quantities
  3. Invariant errors   - would empty a session or strip the main client
  4. Stock errors       - reservation shortfall (never conflated with
                          store failures, which propagate as-is)
  5. Exit errors        - malformed or disallowed exit selections
  6. Invoice errors     - missing or already-split items

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, billing.ErrInsufficientStock) {
        // surface "quantity exceeds available stock"
    }

  Structured variants carry details and unwrap to the sentinel.
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSessionClosed is returned when mutating a session whose status is
	// closed. Closed is terminal.
	ErrSessionClosed = errors.New("session is closed")

	// ErrInvalidArgument is returned for malformed inputs: negative time
	// deltas, zero-or-negative quantities, blank ids.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvariantViolation is returned when a mutation would leave the
	// session individual-less with unsettled items, or remove the main
	// client while other individuals remain.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInsufficientStock is returned when a stock reservation cannot be
	// satisfied. Store failures are NOT mapped to this error.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidExit is returned for a malformed or disallowed exit
	// selection (empty set, unknown individuals, main client leaving
	// before everyone else, quantities exceeding what remains).
	ErrInvalidExit = errors.New("invalid exit selection")

	// ErrNotFound is returned when a referenced session, invoice, item,
	// product, or client does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadySplit is returned when splitting an invoice item that was
	// already moved to a derived invoice.
	ErrAlreadySplit = errors.New("item already split")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports a reservation shortfall.
type InsufficientStockError struct {
	ProductID ProductID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidExitError reports why an exit selection was rejected.
type InvalidExitError struct {
	Reason string
}

func (e *InvalidExitError) Error() string {
	return fmt.Sprintf("invalid exit selection: %s", e.Reason)
}

func (e *InvalidExitError) Unwrap() error { return ErrInvalidExit }

// InvariantViolationError reports which referential invariant a mutation
// would have broken.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Reason)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine or store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrInvalidExit) ||
		errors.Is(err, ErrSessionClosed)
}

// IsConflict returns true for errors that map to a conflicting state
// (stock races, double splits).
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrAlreadySplit)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
