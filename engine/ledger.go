/*
ledger.go - The stock ledger: valid-quantity queries over perishable lots

PURPOSE:
  Per branch, per item, the ledger is a set of lots each with a quantity and
  an expiration date. It answers "how much VALID stock is usable on or after
  a given date" and owns the single status transition lots ever make.

THE ONE-DAY MARGIN:
  ValidQuantityUsableFrom counts a lot only when its expiration is on or
  after cutoff + 1 day. A lot expiring on the window's own end date could
  spoil in transit, so it contributes nothing — lots are included whole or
  not at all, never partially.

FAILURE SEMANTICS:
  Querying an unknown item/branch returns quantity zero. Absence of stock is
  a normal state, not a fault.

SEE ALSO:
  - store.go: The persistence contract underneath
  - sweep.go: The only caller of MarkExpired
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockLedger is the read/transition surface over a branch's lots.
type StockLedger interface {
	// ValidQuantityUsableFrom sums VALID lots for item/branch whose
	// expiration is on or after cutoff + 1 day. Date-granularity compare.
	ValidQuantityUsableFrom(ctx context.Context, itemID ItemID, branchID BranchID, cutoff time.Time) (decimal.Decimal, error)

	// MarkExpired transitions the listed VALID lots to EXPIRED. Idempotent;
	// returns the count actually transitioned.
	MarkExpired(ctx context.Context, lotIDs []LotID) (int, error)

	// ExpiringOn lists VALID lots at the branch expiring on the given day.
	ExpiringOn(ctx context.Context, branchID BranchID, day time.Time) ([]StockLot, error)

	// Branches lists every branch with ledger entries.
	Branches(ctx context.Context) ([]BranchID, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation over Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) ValidQuantityUsableFrom(ctx context.Context, itemID ItemID, branchID BranchID, cutoff time.Time) (decimal.Decimal, error) {
	lots, err := l.Store.Lots(ctx, itemID, branchID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, lot := range lots {
		if lot.Status != LotValid {
			continue
		}
		if !lot.UsableFrom(cutoff) {
			continue
		}
		total = total.Add(lot.Quantity)
	}
	return total, nil
}

func (l *DefaultLedger) MarkExpired(ctx context.Context, lotIDs []LotID) (int, error) {
	return l.Store.MarkExpired(ctx, lotIDs)
}

func (l *DefaultLedger) ExpiringOn(ctx context.Context, branchID BranchID, day time.Time) ([]StockLot, error) {
	return l.Store.LotsExpiringOn(ctx, branchID, day)
}

func (l *DefaultLedger) Branches(ctx context.Context) ([]BranchID, error) {
	return l.Store.Branches(ctx)
}
