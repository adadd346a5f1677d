/*
store.go - Persistence interface for lots and transfer requests

PURPOSE:
  Defines the boundary between the engine and the durable store. Different
  implementations back it with SQLite, PostgreSQL, or memory. All mutation
  goes through this narrow contract — no component reaches into lot or
  reservation storage directly.

MUTATION CONTRACT:
  Lots:      AddLot creates; MarkExpired is the ONLY status mutation
             (VALID -> EXPIRED, idempotent). Lots are never deleted.
  Transfers: CreateTransfer opens a PENDING reservation;
             SetTransferStatus moves it to a terminal state, releasing
             its quantity budget. No other update exists.

CONSISTENCY:
  The valid-stock read and the pending-reservation read that feed one
  availability decision must come from one consistent view. Read-only
  callers get that by issuing both reads against the same store call
  sequence; the reservation COMMIT path must use TxStore.WithTx so the
  re-validation and the write share a single serialized unit of work.

IMPLEMENTATIONS:
  - store/sqlite:       Production SQLite (WAL)
  - store/postgres:     PostgreSQL via the pgx driver
  - engine/store:       In-memory for tests/dev

SEE ALSO:
  - ledger.go: Quantity queries layered on these reads
  - availability.go: The WithTx commit path
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Durable lots and transfers
// =============================================================================

type Store interface {
	// AddLot records a stock intake as a new VALID lot.
	AddLot(ctx context.Context, lot StockLot) error

	// Lots returns all lots (any status) for an item at a branch.
	// Unknown item/branch yields an empty slice, not an error.
	Lots(ctx context.Context, itemID ItemID, branchID BranchID) ([]StockLot, error)

	// LotsExpiringOn returns VALID lots at the branch whose expiration date
	// falls exactly on the given calendar day.
	LotsExpiringOn(ctx context.Context, branchID BranchID, day time.Time) ([]StockLot, error)

	// MarkExpired transitions the listed lots VALID -> EXPIRED and returns
	// the number actually transitioned. Re-marking an EXPIRED lot is a no-op.
	MarkExpired(ctx context.Context, lotIDs []LotID) (int, error)

	// Branches returns every branch known to the ledger.
	Branches(ctx context.Context) ([]BranchID, error)

	// CreateTransfer opens a reservation. Status must be TransferPending.
	CreateTransfer(ctx context.Context, t TransferRequest) error

	// SetTransferStatus moves a transfer to a new status.
	// Returns ErrTransferNotFound for unknown IDs.
	SetTransferStatus(ctx context.Context, id TransferID, status TransferStatus) error

	// PendingQuantity sums quantities across all non-terminal transfers for
	// the item/branch pair, as of this call. Unknown pairs yield zero.
	PendingQuantity(ctx context.Context, itemID ItemID, branchID BranchID) (decimal.Decimal, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Serialized availability-check-then-reserve
// =============================================================================

// TxStore wraps Store with a unit-of-work boundary. WithTx covers exactly the
// ledger-read + reservation-read + reservation-write sequence of one commit;
// concurrent units of work against the same store are serialized (transaction
// isolation or an explicit lock — implementation's choice).
type TxStore interface {
	Store

	// WithTx executes fn within one unit of work. If fn returns an error the
	// work is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
