/*
sweep.go - The daily expiration sweep

PURPOSE:
  Once per scheduling tick, per branch:
    1. Find lots expiring TOMORROW. Those with zero pending reservations for
       their item are presumed to go to waste; emit one aggregated warning
       to the branch administrator when that count is positive.
    2. Find lots expiring TODAY and unconditionally retire them
       (VALID -> EXPIRED); emit one aggregated "expired today" notice when
       any transitioned.

OWNERSHIP:
  The sweep is a pure function of (ledger state, now) invoked by an external
  timer — it owns no ticker or goroutine of its own. api/scheduler.go drives
  it daily; POST /api/admin/sweep drives it manually.

FAILURE ISOLATION:
  Each branch is an independent unit of work. A failure mid-sweep for one
  branch is logged and skipped; remaining branches still run. The per-lot
  VALID->EXPIRED write is atomic and idempotent, so a retried sweep converges
  to the same terminal state.

SEE ALSO:
  - ledger.go: ExpiringOn / MarkExpired
  - api/scheduler.go: The timer that calls Run
*/
package engine

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sweeper runs the expiration sweep across all branches.
type Sweeper struct {
	Ledger       StockLedger
	Reservations ReservationSource
	Notifier     Notifier
	Catalog      MessageCatalog
}

func NewSweeper(store Store, notifier Notifier, catalog MessageCatalog) *Sweeper {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Sweeper{
		Ledger:       NewLedger(store),
		Reservations: NewTracker(store),
		Notifier:     notifier,
		Catalog:      catalog,
	}
}

// SweepReport summarizes one full run.
type SweepReport struct {
	Branches       int
	Warned         int // lots flagged as going to waste tomorrow
	Retired        int // lots transitioned to EXPIRED today
	FailedBranches []BranchID
}

// Run executes one sweep pass over every branch, as of now.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (SweepReport, error) {
	branches, err := s.Ledger.Branches(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("sweep: list branches: %w", err)
	}

	report := SweepReport{Branches: len(branches)}
	for _, branch := range branches {
		warned, retired, err := s.sweepBranch(ctx, branch, now)
		if err != nil {
			// One branch's failure must not block the rest.
			log.Printf("[Sweep] branch=%s failed: %v", branch, err)
			report.FailedBranches = append(report.FailedBranches, branch)
			continue
		}
		report.Warned += warned
		report.Retired += retired
	}
	return report, nil
}

func (s *Sweeper) sweepBranch(ctx context.Context, branch BranchID, now time.Time) (warned, retired int, err error) {
	today := DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)

	// Tomorrow's lots: warn only about those nothing is reserved against.
	// A lot whose item has any pending reservation is presumed to be
	// consumed before expiry.
	expiringTomorrow, err := s.Ledger.ExpiringOn(ctx, branch, tomorrow)
	if err != nil {
		return 0, 0, fmt.Errorf("query lots expiring tomorrow: %w", err)
	}
	for _, lot := range expiringTomorrow {
		pending, err := s.Reservations.PendingQuantity(ctx, lot.ItemID, branch)
		if err != nil {
			return 0, 0, fmt.Errorf("pending quantity for %s: %w", lot.ItemID, err)
		}
		if pending.IsZero() {
			warned++
		}
	}
	if warned > 0 {
		msg := fmt.Sprintf(s.Catalog.Lookup(MsgExpiringTomorrow), warned)
		if err := s.Notifier.Notify(ctx, branch, msg); err != nil {
			log.Printf("[Sweep] branch=%s warning notification failed: %v", branch, err)
		}
	}

	// Today's lots: retire unconditionally.
	expiringToday, err := s.Ledger.ExpiringOn(ctx, branch, today)
	if err != nil {
		return warned, 0, fmt.Errorf("query lots expiring today: %w", err)
	}
	ids := make([]LotID, 0, len(expiringToday))
	for _, lot := range expiringToday {
		ids = append(ids, lot.ID)
	}
	if len(ids) > 0 {
		retired, err = s.Ledger.MarkExpired(ctx, ids)
		if err != nil {
			return warned, 0, fmt.Errorf("mark expired: %w", err)
		}
	}
	if retired > 0 {
		msg := fmt.Sprintf(s.Catalog.Lookup(MsgExpiredToday), retired)
		if err := s.Notifier.Notify(ctx, branch, msg); err != nil {
			log.Printf("[Sweep] branch=%s expiry notification failed: %v", branch, err)
		}
	}

	return warned, retired, nil
}
