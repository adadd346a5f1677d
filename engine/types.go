/*
Package engine provides the core inventory reservation engine.

PURPOSE:
  This package contains the types and algorithms for answering one hard
  question correctly under concurrency: "how much of item X can branch B
  guarantee for a future time window?" — net of expiring stock lots and
  in-flight reservations — plus the urgency arithmetic that decides which
  outstanding aid requests that stock should be routed to first.

KEY CONCEPTS IN THIS FILE (types.go):
  - StockLot: A discrete batch of an item at a branch with one expiration date
  - TransferRequest: An outbound commitment of stock (the reservation unit)
  - AvailabilityResult: The computed, never-stored answer to an availability query
  - Urgency: Coarse tiers derived from a request's last usable window

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all quantities — no float drift
  2. Explicit time: Every computation takes `now` as input; nothing reads a
     global clock, so tests are deterministic and parallel-safe
  3. Type Safety: Strong typing for item/branch/lot identifiers
  4. Derived state is never cached: availability, urgency, and match scores
     are pure functions of (ledger, reservations, now) at call time

LIFECYCLE:
  StockLot is the only durable mutable entity here. It is created by stock
  intake, transitions exactly once from VALID to EXPIRED (terminal), and is
  never deleted — historical lots persist as EXPIRED.

SEE ALSO:
  - window.go: Scheduled windows and instant resolution
  - ledger.go: Valid-quantity queries and expiration transitions
  - availability.go: The netting computation and reservation commit path
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type BranchID string
type LotID string
type TransferID string

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

// Qty builds a decimal quantity from a float. Test and seed convenience.
func Qty(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ClampNonNegative floors a quantity at zero. Availability is never negative,
// no matter how large the pending reservations are relative to raw stock.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// STOCK LOT - Durable ledger entry for a batch of perishable stock
// =============================================================================

type LotStatus string

const (
	LotValid   LotStatus = "valid"
	LotExpired LotStatus = "expired" // terminal
)

// StockLot is a discrete batch of a given item at a branch with a single
// expiration date. Created by stock intake; status is mutated only by the
// expiration sweep (VALID -> EXPIRED, exactly once). Quantity never goes
// negative.
type StockLot struct {
	ID             LotID
	ItemID         ItemID
	BranchID       BranchID
	Quantity       decimal.Decimal
	ExpirationDate time.Time // date-granularity, UTC midnight
	CreatedAt      time.Time
	Status         LotStatus
}

// UsableFrom reports whether the lot can serve a request whose window ends on
// cutoff. The lot must outlive the window by a full day — a one-day transit
// buffer, so same-day expiry during delivery never counts as stock.
func (l StockLot) UsableFrom(cutoff time.Time) bool {
	return !DateOf(l.ExpirationDate).Before(DateOf(cutoff).AddDate(0, 0, 1))
}

// =============================================================================
// TRANSFER REQUEST - The reservation unit
// =============================================================================

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferFulfilled TransferStatus = "fulfilled"
	TransferCancelled TransferStatus = "cancelled"
	TransferRejected  TransferStatus = "rejected"
)

// Terminal reports whether the status releases its quantity budget.
func (s TransferStatus) Terminal() bool {
	return s == TransferFulfilled || s == TransferCancelled || s == TransferRejected
}

// TransferRequest is an in-flight commitment to move a quantity of an item
// out of a branch's stock. Reservations are a quantity budget netted against
// the ledger total, not locks on specific lots — a reserved lot may expire
// before fulfillment, and availability is recomputed fresh against current
// valid lots each time.
type TransferRequest struct {
	ID        TransferID
	ItemID    ItemID
	BranchID  BranchID
	Quantity  decimal.Decimal
	Status    TransferStatus
	CreatedAt time.Time
}

// =============================================================================
// AVAILABILITY RESULT - Computed, never stored
// =============================================================================

// AvailabilityResult answers "how much of this item can the branch guarantee
// for the requested schedule". Invariant: Available >= 0.
//
// NoUpcomingWindow is an annotation, not an error: a schedule whose windows
// have all closed is simply not requestable (quantity zero).
type AvailabilityResult struct {
	ItemID           ItemID
	Available        decimal.Decimal
	WindowEnd        time.Time
	NoUpcomingWindow bool
}

// =============================================================================
// URGENCY - Derived tiers, recomputed on every read because "now" moves
// =============================================================================

type Urgency string

const (
	VeryUrgent Urgency = "very_urgent" // last window ends within 3 days
	Urgent     Urgency = "urgent"      // within 7 days
	NotUrgent  Urgency = "not_urgent"
	Expired    Urgency = "expired" // no actionable window remains
)
