/*
sqlite_test.go - Store contract tests against an in-memory database

Exercises the SQLite store through the same surface the engine uses:
lot queries, the status-guarded idempotent expiry UPDATE, pending
aggregation, the unit-of-work path, and the aid candidate join.
*/
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedLot(t *testing.T, s *Store, id, item, branch string, qty float64, expiration string) {
	t.Helper()
	exp, err := engine.ParseDay(expiration)
	require.NoError(t, err)
	require.NoError(t, s.AddLot(context.Background(), engine.StockLot{
		ID:             engine.LotID(id),
		ItemID:         engine.ItemID(item),
		BranchID:       engine.BranchID(branch),
		Quantity:       engine.Qty(qty),
		ExpirationDate: exp,
		CreatedAt:      time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Status:         engine.LotValid,
	}))
}

func TestLots_RoundTripOrderedByExpiration(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedLot(t, s, "lot-2", "rice", "b1", 3, "2024-06-20")
	seedLot(t, s, "lot-1", "rice", "b1", 5, "2024-06-10")
	seedLot(t, s, "lot-3", "rice", "b2", 9, "2024-06-05")

	lots, err := s.Lots(ctx, "rice", "b1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, engine.LotID("lot-1"), lots[0].ID)
	assert.True(t, engine.Qty(5).Equal(lots[0].Quantity))
	assert.Equal(t, "2024-06-10", engine.FormatDay(lots[0].ExpirationDate))
	assert.Equal(t, engine.LotValid, lots[0].Status)
	assert.Equal(t, engine.LotID("lot-2"), lots[1].ID)

	// Unknown item/branch is empty, not an error.
	lots, err = s.Lots(ctx, "rice", "b9")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestMarkExpired_StatusGuardIsIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedLot(t, s, "lot-1", "rice", "b1", 5, "2024-06-10")
	seedLot(t, s, "lot-2", "milk", "b1", 4, "2024-06-10")

	n, err := s.MarkExpired(ctx, []engine.LotID{"lot-1", "lot-2", "lot-missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-marking matches zero rows.
	n, err = s.MarkExpired(ctx, []engine.LotID{"lot-1", "lot-2"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	lots, err := s.Lots(ctx, "rice", "b1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, engine.LotExpired, lots[0].Status)
}

func TestLotsExpiringOn_ValidLotsForTheDayOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedLot(t, s, "lot-1", "rice", "b1", 5, "2024-06-10")
	seedLot(t, s, "lot-2", "milk", "b1", 4, "2024-06-10")
	seedLot(t, s, "lot-3", "rice", "b1", 9, "2024-06-11")
	_, err := s.MarkExpired(ctx, []engine.LotID{"lot-2"})
	require.NoError(t, err)

	day, err := engine.ParseDay("2024-06-10")
	require.NoError(t, err)
	lots, err := s.LotsExpiringOn(ctx, "b1", day)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, engine.LotID("lot-1"), lots[0].ID)
}

func TestPendingQuantity_SumsPendingTransfersOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	create := func(id string, qty float64, status engine.TransferStatus) {
		require.NoError(t, s.CreateTransfer(ctx, engine.TransferRequest{
			ID:        engine.TransferID(id),
			ItemID:    "rice",
			BranchID:  "b1",
			Quantity:  engine.Qty(qty),
			Status:    status,
			CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		}))
	}
	create("tr-1", 2, engine.TransferPending)
	create("tr-2", 3, engine.TransferPending)
	create("tr-3", 7, engine.TransferFulfilled)

	pending, err := s.PendingQuantity(ctx, "rice", "b1")
	require.NoError(t, err)
	assert.True(t, engine.Qty(5).Equal(pending), "got %s", pending)

	// A terminal transition releases its budget.
	require.NoError(t, s.SetTransferStatus(ctx, "tr-2", engine.TransferCancelled))
	pending, err = s.PendingQuantity(ctx, "rice", "b1")
	require.NoError(t, err)
	assert.True(t, engine.Qty(2).Equal(pending), "got %s", pending)

	err = s.SetTransferStatus(ctx, "tr-missing", engine.TransferCancelled)
	assert.True(t, errors.Is(err, engine.ErrTransferNotFound))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	boom := errors.New("abort")
	err := s.WithTx(ctx, func(st engine.Store) error {
		if err := st.CreateTransfer(ctx, engine.TransferRequest{
			ID: "tr-1", ItemID: "rice", BranchID: "b1",
			Quantity: engine.Qty(2), Status: engine.TransferPending,
			CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := s.PendingQuantity(ctx, "rice", "b1")
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

// A read arriving on another goroutine while a unit of work pins the sole
// in-memory connection must wait for the commit and still see the migrated
// schema, never a fresh empty database.
func TestMemoryDatabase_SharedAcrossConcurrentUse(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedLot(t, s, "lot-1", "rice", "b1", 5, "2024-06-10")

	readDone := make(chan error, 1)
	err := s.WithTx(ctx, func(st engine.Store) error {
		go func() {
			lots, err := s.Lots(ctx, "rice", "b1")
			if err == nil && len(lots) != 1 {
				err = fmt.Errorf("expected 1 lot, got %d", len(lots))
			}
			readDone <- err
		}()
		_, err := st.Lots(ctx, "rice", "b1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, <-readDone)
}

func TestReserve_OverAllocationRejectedAgainstSQLite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	seedLot(t, s, "lot-1", "rice", "b1", 10, "2024-06-20")
	windows := []engine.ScheduledWindow{mustWindow(t, "2024-06-05", "09:00", "17:00")}
	calc := engine.NewCalculator(s)

	_, err := calc.Reserve(ctx, engine.TransferRequest{
		ItemID: "rice", BranchID: "b1", Quantity: engine.Qty(7),
	}, windows, now)
	require.NoError(t, err)

	_, err = calc.Reserve(ctx, engine.TransferRequest{
		ItemID: "rice", BranchID: "b1", Quantity: engine.Qty(7),
	}, windows, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInsufficientAvailability))

	pending, err := s.PendingQuantity(ctx, "rice", "b1")
	require.NoError(t, err)
	assert.True(t, engine.Qty(7).Equal(pending), "got %s", pending)
}

func mustWindow(t *testing.T, day, start, end string) engine.ScheduledWindow {
	t.Helper()
	w, err := engine.ParseWindow(day, start, end)
	require.NoError(t, err)
	return w
}

func TestAidCandidates_JoinsScheduleAndAttributes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-05", "09:00", "12:00"),
		mustWindow(t, "2024-06-08", "14:00", "17:00"),
	}
	require.NoError(t, s.SaveAidRequest(ctx, "req-1", "b1", windows, created))
	require.NoError(t, s.SaveAidItem(ctx, aidItem("aid-1", "req-1", "b1", "Rice 5kg", []string{"White", "Long Grain"}, created)))
	require.NoError(t, s.SaveAidItem(ctx, aidItem("aid-2", "req-1", "b1", "Milk 1L", nil, created.Add(time.Minute))))

	require.NoError(t, s.SaveAidRequest(ctx, "req-2", "b2", windows[:1], created))
	require.NoError(t, s.SaveAidItem(ctx, aidItem("aid-3", "req-2", "b2", "Blankets", nil, created)))

	candidates, err := s.AidCandidates(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "aid-1", first.Item.ID)
	assert.Equal(t, "Rice 5kg", first.Item.TemplateName)
	assert.Equal(t, []string{"White", "Long Grain"}, first.Item.Attributes)
	require.Len(t, first.Windows, 2)
	assert.Equal(t, "2024-06-05", engine.FormatDay(first.Windows[0].Day))
	assert.Equal(t, "09:00", first.Windows[0].Start.String())
	assert.Equal(t, "17:00", first.Windows[1].End.String())
	assert.Equal(t, "aid-2", candidates[1].Item.ID)
}

func aidItem(id, requestID, branch, name string, attrs []string, created time.Time) matching.AidItem {
	return matching.AidItem{
		ID:           id,
		RequestID:    requestID,
		BranchID:     engine.BranchID(branch),
		TemplateName: name,
		Attributes:   attrs,
		Quantity:     engine.Qty(1),
		Status:       matching.ItemOpen,
		CreatedAt:    created,
	}
}
