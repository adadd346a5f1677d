/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should wrap these errors with additional context, never invent
  parallel taxonomies.

ERROR CATEGORIES:
  1. Validation errors  - Malformed schedules, unknown sort fields. Rejected
     immediately, never retried automatically.
  2. Consistency errors - A reservation commit discovering it would over-
     allocate. Retryable: the caller may re-query and try again.
  3. Not-found          - Unknown item/branch is NOT an error for ledger
     reads (absence of stock is a normal state); sentinels here cover the
     cases where a caller explicitly required the entity to exist.
  4. Infrastructure     - Store failures propagate wrapped; the sweep
     isolates them per branch.

USAGE:
  if errors.Is(err, engine.ErrInsufficientAvailability) {
      // client-correctable; re-query availability and retry
  }

SEE ALSO:
  - availability.go: Emits InsufficientAvailabilityError from the commit path
  - api/handlers.go: Maps these categories to HTTP status classes
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedSchedule is returned when a schedule entry cannot be parsed
	// or violates the start-before-end invariant.
	ErrMalformedSchedule = errors.New("malformed schedule")

	// ErrInvalidSortField is returned when a search names a sort key outside
	// the supported set. Client error, not a server fault.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInsufficientAvailability is returned when a reservation commit would
	// drive availability negative. Retryable after a fresh availability read.
	ErrInsufficientAvailability = errors.New("insufficient availability")

	// ErrLotNotFound is returned when a caller required a specific lot to exist.
	ErrLotNotFound = errors.New("stock lot not found")

	// ErrTransferNotFound is returned when a referenced transfer doesn't exist.
	ErrTransferNotFound = errors.New("transfer request not found")

	// ErrInvalidQuantity is returned for zero or negative reservation amounts.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrStoreRequired is returned when an operation needs a transactional
	// store but was wired with a plain one.
	ErrStoreRequired = errors.New("operation requires transactional store")

	// ErrTxConflict is returned when a unit of work loses a serialization
	// conflict against a concurrent commit. The work was rolled back cleanly;
	// retrying against fresh state is safe.
	ErrTxConflict = errors.New("concurrent transaction conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedScheduleError reports which part of a schedule entry failed.
type MalformedScheduleError struct {
	Field string // "day", "startTime", "endTime"
	Value string
	Err   error
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("malformed schedule: %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedScheduleError) Unwrap() error { return ErrMalformedSchedule }

// InvalidSortFieldError names the rejected key and the supported set.
type InvalidSortFieldError struct {
	Key       string
	Supported []string
}

func (e *InvalidSortFieldError) Error() string {
	return fmt.Sprintf("invalid sort field %q (supported: %v)", e.Key, e.Supported)
}

func (e *InvalidSortFieldError) Unwrap() error { return ErrInvalidSortField }

// InsufficientAvailabilityError reports the shortfall a commit would create.
type InsufficientAvailabilityError struct {
	ItemID    ItemID
	BranchID  BranchID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability for %s at %s: requested %s, available %s",
		e.ItemID, e.BranchID, e.Requested, e.Available)
}

func (e *InsufficientAvailabilityError) Unwrap() error { return ErrInsufficientAvailability }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInsufficientAvailability) || errors.Is(err, ErrTxConflict)
}

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedSchedule) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientAvailability)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLotNotFound) || errors.Is(err, ErrTransferNotFound)
}
