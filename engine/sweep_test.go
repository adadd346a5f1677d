package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/engine/store"
)

// recordingNotifier captures emitted notices per branch.
type recordingNotifier struct {
	notices map[engine.BranchID][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notices: make(map[engine.BranchID][]string)}
}

func (n *recordingNotifier) Notify(_ context.Context, branchID engine.BranchID, message string) error {
	n.notices[branchID] = append(n.notices[branchID], message)
	return nil
}

func newSweeper(st engine.Store, notifier engine.Notifier) *engine.Sweeper {
	return engine.NewSweeper(st, notifier, engine.DefaultCatalog())
}

func TestSweep_WarnsAboutUnreservedLotsExpiringTomorrow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	notifier := newRecordingNotifier()

	// now is 2024-06-01; tomorrow is 06-02.
	now := at("2024-06-01", 8, 0)
	addLot(t, st, "lot-1", "milk", "b1", 6, "2024-06-02") // unreserved -> warn
	addLot(t, st, "lot-2", "rice", "b1", 5, "2024-06-02") // reserved -> presumed consumed
	addLot(t, st, "lot-3", "rice", "b1", 9, "2024-06-20") // not expiring
	pendingTransfer(t, st, "tr-1", "rice", "b1", 2)

	report, err := newSweeper(st, notifier).Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Warned)
	assert.Equal(t, 0, report.Retired)
	require.Len(t, notifier.notices["b1"], 1)
	assert.Contains(t, notifier.notices["b1"][0], "1 stock lot(s)")
	assert.Contains(t, notifier.notices["b1"][0], "expire tomorrow")
}

func TestSweep_RetiresLotsExpiringToday(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	notifier := newRecordingNotifier()

	now := at("2024-06-01", 8, 0)
	addLot(t, st, "lot-1", "milk", "b1", 6, "2024-06-01")
	addLot(t, st, "lot-2", "rice", "b1", 5, "2024-06-01")
	addLot(t, st, "lot-3", "rice", "b1", 9, "2024-06-20")

	report, err := newSweeper(st, notifier).Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Retired)
	require.Len(t, notifier.notices["b1"], 1)
	assert.Contains(t, notifier.notices["b1"][0], "2 stock lot(s)")
	assert.Contains(t, notifier.notices["b1"][0], "expired today")

	// The lots actually transitioned and no longer count as stock.
	total, err := engine.NewLedger(st).ValidQuantityUsableFrom(ctx, "rice", "b1", day("2024-06-01"))
	require.NoError(t, err)
	assert.True(t, engine.Qty(9).Equal(total), "got %s", total)
}

func TestSweep_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	notifier := newRecordingNotifier()
	now := at("2024-06-01", 8, 0)

	addLot(t, st, "lot-1", "milk", "b1", 6, "2024-06-01")

	sweeper := newSweeper(st, notifier)
	report, err := sweeper.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retired)

	// Second run converges: nothing left to retire, no second notice.
	report, err = sweeper.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Retired)
	assert.Len(t, notifier.notices["b1"], 1)
}

func TestSweep_NoNotificationsWhenNothingExpires(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	notifier := newRecordingNotifier()

	addLot(t, st, "lot-1", "rice", "b1", 5, "2024-12-01")

	report, err := newSweeper(st, notifier).Run(ctx, at("2024-06-01", 8, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Warned)
	assert.Equal(t, 0, report.Retired)
	assert.Empty(t, notifier.notices)
}

// =============================================================================
// PER-BRANCH FAILURE ISOLATION
// =============================================================================

// faultyStore fails every read for one poisoned branch.
type faultyStore struct {
	engine.Store
	poisoned engine.BranchID
}

var errStoreDown = errors.New("store unreachable")

func (f *faultyStore) LotsExpiringOn(ctx context.Context, branchID engine.BranchID, dayStart time.Time) ([]engine.StockLot, error) {
	if branchID == f.poisoned {
		return nil, errStoreDown
	}
	return f.Store.LotsExpiringOn(ctx, branchID, dayStart)
}

func (f *faultyStore) PendingQuantity(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	if branchID == f.poisoned {
		return decimal.Zero, errStoreDown
	}
	return f.Store.PendingQuantity(ctx, itemID, branchID)
}

func TestSweep_OneBranchFailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	notifier := newRecordingNotifier()
	now := at("2024-06-01", 8, 0)

	addLot(t, mem, "lot-1", "milk", "b-bad", 6, "2024-06-01")
	addLot(t, mem, "lot-2", "rice", "b-good", 5, "2024-06-01")

	report, err := newSweeper(&faultyStore{Store: mem, poisoned: "b-bad"}, notifier).Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []engine.BranchID{"b-bad"}, report.FailedBranches)
	assert.Equal(t, 1, report.Retired)
	assert.Len(t, notifier.notices["b-good"], 1)
	assert.Empty(t, notifier.notices["b-bad"])
}
