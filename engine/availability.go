/*
availability.go - The availability calculator and the reservation commit path

PURPOSE:
  Composes the window resolver, stock ledger, and reservation tracker to
  answer "how much of item X can branch B guarantee for window W?", and owns
  the only write path that may act on that answer.

THE COMPUTATION:
  1. windowEnd = latest upcoming end of the schedule; none -> quantity 0
     with the NoUpcomingWindow annotation (not an error)
  2. raw     = ledger.ValidQuantityUsableFrom(item, branch, date(windowEnd))
  3. pending = reservations.PendingQuantity(item, branch)
  4. available = max(0, raw - pending)

NO DOUBLE ALLOCATION:
  An availability read is NOT a reservation. Two concurrent check-then-
  reserve sequences may both observe the same available quantity; the commit
  step therefore re-derives availability inside the store's unit of work and
  aborts with a retryable InsufficientAvailabilityError if the write would
  now over-allocate. The unit of work serializes against concurrent commits
  and against the expiration sweep's VALID->EXPIRED writes, so a lot retired
  between read and commit is no longer counted at commit time.

SEE ALSO:
  - store.go: TxStore.WithTx, the unit-of-work boundary
  - sweep.go: The concurrent writer this path must not race
*/
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

var transferSeq atomic.Uint64

// Calculator answers availability queries and commits reservations.
type Calculator struct {
	Store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{Store: store}
}

// AvailableQuantity computes the netted availability of one item at a branch
// for the given schedule, as of now. The lot read and the pending read feed
// one decision, so they are taken from one unit of work when the store
// supports it, never interleaved with a concurrent commit or sweep.
func (c *Calculator) AvailableQuantity(ctx context.Context, itemID ItemID, branchID BranchID, windows []ScheduledWindow, now time.Time) (AvailabilityResult, error) {
	var result AvailabilityResult
	err := c.snapshot(ctx, func(st Store) error {
		var err error
		result, err = availableOn(ctx, st, itemID, branchID, windows, now)
		return err
	})
	return result, err
}

// AvailableQuantityBatch applies the same computation per item, all against
// one snapshot. An item whose lookup fails is omitted from the result rather
// than aborting the batch.
func (c *Calculator) AvailableQuantityBatch(ctx context.Context, itemIDs []ItemID, branchID BranchID, windows []ScheduledWindow, now time.Time) ([]AvailabilityResult, error) {
	results := make([]AvailabilityResult, 0, len(itemIDs))
	err := c.snapshot(ctx, func(st Store) error {
		for _, id := range itemIDs {
			res, err := availableOn(ctx, st, id, branchID, windows, now)
			if err != nil {
				if IsClientError(err) {
					// A malformed schedule poisons the whole batch;
					// per-item absence does not.
					return err
				}
				continue
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// snapshot runs fn inside the store's unit of work when available. All reads
// in fn then share one consistent view; a plain Store runs fn directly.
func (c *Calculator) snapshot(ctx context.Context, fn func(Store) error) error {
	if tx, ok := c.Store.(TxStore); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(c.Store)
}

// Reserve commits a reservation for qty units of item at branch, valid for
// the given schedule. The availability re-validation and the transfer write
// run inside one unit of work; a concurrent commit that consumed the margin
// first causes this one to abort with InsufficientAvailabilityError.
//
// Requires a TxStore; a plain Store cannot serialize the commit.
func (c *Calculator) Reserve(ctx context.Context, t TransferRequest, windows []ScheduledWindow, now time.Time) (TransferRequest, error) {
	tx, ok := c.Store.(TxStore)
	if !ok {
		return TransferRequest{}, ErrStoreRequired
	}
	if !t.Quantity.IsPositive() {
		return TransferRequest{}, ErrInvalidQuantity
	}
	if t.ID == "" {
		// now alone is not unique under an injected clock; the sequence
		// keeps concurrent commits from colliding.
		t.ID = TransferID(fmt.Sprintf("tr-%d-%d", now.UnixNano(), transferSeq.Add(1)))
	}
	t.Status = TransferPending
	t.CreatedAt = now

	err := tx.WithTx(ctx, func(st Store) error {
		res, err := availableOn(ctx, st, t.ItemID, t.BranchID, windows, now)
		if err != nil {
			return err
		}
		if res.NoUpcomingWindow || t.Quantity.GreaterThan(res.Available) {
			return &InsufficientAvailabilityError{
				ItemID:    t.ItemID,
				BranchID:  t.BranchID,
				Requested: t.Quantity,
				Available: res.Available,
			}
		}
		return st.CreateTransfer(ctx, t)
	})
	if err != nil {
		return TransferRequest{}, err
	}
	return t, nil
}

// availableOn runs the netting computation against the given store view.
// The commit path passes a transactional view so both reads and the write
// share one snapshot.
func availableOn(ctx context.Context, st Store, itemID ItemID, branchID BranchID, windows []ScheduledWindow, now time.Time) (AvailabilityResult, error) {
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return AvailabilityResult{}, err
		}
	}

	last := LatestUpcoming(windows, now)
	if last == nil {
		return AvailabilityResult{ItemID: itemID, NoUpcomingWindow: true}, nil
	}
	windowEnd := last.EndInstant()

	raw, err := NewLedger(st).ValidQuantityUsableFrom(ctx, itemID, branchID, DateOf(windowEnd))
	if err != nil {
		return AvailabilityResult{}, err
	}
	pending, err := st.PendingQuantity(ctx, itemID, branchID)
	if err != nil {
		return AvailabilityResult{}, err
	}

	return AvailabilityResult{
		ItemID:    itemID,
		Available: ClampNonNegative(raw.Sub(pending)),
		WindowEnd: windowEnd,
	}, nil
}
