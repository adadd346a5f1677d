/*
reservations.go - Pending reservation tracking

PURPOSE:
  Tracks quantity already committed to pending outbound transfers per
  item/branch, netted against the ledger to produce available quantity.

DESIGN:
  A reservation is a quantity budget, not a lock on specific lots. Binding a
  reservation to a lot that might expire before fulfillment would strand
  stock; instead availability is recomputed fresh against current valid lots
  on every read. The pending figure must reflect reservations created up to
  the instant of the call — no eventual-consistency window is acceptable
  inside a single allocation decision.

SEE ALSO:
  - availability.go: Nets this against the ledger
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// ReservationSource reads the live pending-quantity view.
type ReservationSource interface {
	// PendingQuantity sums quantities across all transfers for item/branch
	// whose status is non-terminal, as of this call.
	PendingQuantity(ctx context.Context, itemID ItemID, branchID BranchID) (decimal.Decimal, error)
}

// =============================================================================
// TRACKER - Implementation over Store
// =============================================================================

type Tracker struct {
	Store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{Store: store}
}

func (t *Tracker) PendingQuantity(ctx context.Context, itemID ItemID, branchID BranchID) (decimal.Decimal, error) {
	return t.Store.PendingQuantity(ctx, itemID, branchID)
}
