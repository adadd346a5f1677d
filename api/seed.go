/*
seed.go - Demo seed data for local runs

Populates a fresh store with a small, deterministic scenario: two branches,
perishable lots at staggered expirations, one pending transfer, and a handful
of aid requests at different urgency tiers. Development/demo only.
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

// Seeder is the storage surface the demo seed needs.
type Seeder interface {
	engine.Store
	SaveAidRequest(ctx context.Context, id string, branchID engine.BranchID, windows []engine.ScheduledWindow, createdAt time.Time) error
	SaveAidItem(ctx context.Context, item matching.AidItem) error
}

// SeedDemo loads the demo scenario relative to now.
func SeedDemo(ctx context.Context, st Seeder, now time.Time) error {
	today := engine.DateOf(now)
	day := func(offset int) time.Time { return today.AddDate(0, 0, offset) }

	lots := []engine.StockLot{
		{ID: "lot-rice-1", ItemID: "item-rice", BranchID: "branch-central", Quantity: engine.Qty(25), ExpirationDate: day(30)},
		{ID: "lot-rice-2", ItemID: "item-rice", BranchID: "branch-central", Quantity: engine.Qty(10), ExpirationDate: day(2)},
		{ID: "lot-milk-1", ItemID: "item-milk", BranchID: "branch-central", Quantity: engine.Qty(12), ExpirationDate: day(1)},
		{ID: "lot-milk-2", ItemID: "item-milk", BranchID: "branch-north", Quantity: engine.Qty(8), ExpirationDate: day(5)},
		{ID: "lot-flour-1", ItemID: "item-flour", BranchID: "branch-north", Quantity: engine.Qty(40), ExpirationDate: day(60)},
	}
	for _, lot := range lots {
		lot.Status = engine.LotValid
		lot.CreatedAt = now
		if err := st.AddLot(ctx, lot); err != nil {
			return fmt.Errorf("seed lot %s: %w", lot.ID, err)
		}
	}

	if err := st.CreateTransfer(ctx, engine.TransferRequest{
		ID:        "tr-seed-1",
		ItemID:    "item-rice",
		BranchID:  "branch-central",
		Quantity:  engine.Qty(5),
		Status:    engine.TransferPending,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed transfer: %w", err)
	}

	window := func(offset int, start, end string) engine.ScheduledWindow {
		s, _ := engine.ParseClock(start)
		e, _ := engine.ParseClock(end)
		return engine.ScheduledWindow{Day: day(offset), Start: s, End: e}
	}

	type seedRequest struct {
		id      string
		branch  engine.BranchID
		windows []engine.ScheduledWindow
		items   []matching.AidItem
	}
	requests := []seedRequest{
		{
			id:      "req-family-a",
			branch:  "branch-central",
			windows: []engine.ScheduledWindow{window(2, "09:00", "12:00")},
			items: []matching.AidItem{
				{ID: "aid-1", TemplateName: "Rice 5kg", Attributes: []string{"White"}, Quantity: engine.Qty(2), Status: matching.ItemOpen},
				{ID: "aid-2", TemplateName: "Milk 1L", Attributes: []string{"Whole"}, Quantity: engine.Qty(6), Status: matching.ItemOpen},
			},
		},
		{
			id:      "req-family-b",
			branch:  "branch-central",
			windows: []engine.ScheduledWindow{window(6, "14:00", "17:00"), window(10, "09:00", "11:00")},
			items: []matching.AidItem{
				{ID: "aid-3", TemplateName: "Flour 2kg", Attributes: []string{"Wheat"}, Quantity: engine.Qty(3), Status: matching.ItemOpen},
			},
		},
		{
			id:      "req-shelter",
			branch:  "branch-north",
			windows: []engine.ScheduledWindow{window(20, "08:00", "18:00")},
			items: []matching.AidItem{
				{ID: "aid-4", TemplateName: "Rice 10kg", Attributes: []string{"Brown", "Organic"}, Quantity: engine.Qty(10), Status: matching.ItemOpen},
				{ID: "aid-5", TemplateName: "Canned Beans", Attributes: []string{}, Quantity: engine.Qty(24), Status: matching.ItemFulfilled},
			},
		},
	}

	for _, req := range requests {
		if err := st.SaveAidRequest(ctx, req.id, req.branch, req.windows, now); err != nil {
			return fmt.Errorf("seed request %s: %w", req.id, err)
		}
		for _, item := range req.items {
			item.RequestID = req.id
			item.BranchID = req.branch
			item.CreatedAt = now
			if err := st.SaveAidItem(ctx, item); err != nil {
				return fmt.Errorf("seed item %s: %w", item.ID, err)
			}
		}
	}

	return nil
}
