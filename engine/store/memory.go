// Package store provides engine.Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aidlink/inventory-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	lots      map[itemKey][]engine.LotID
	lotsByID  map[engine.LotID]engine.StockLot
	transfers map[engine.TransferID]engine.TransferRequest
	branches  map[engine.BranchID]bool
}

type itemKey struct {
	ItemID   engine.ItemID
	BranchID engine.BranchID
}

func NewMemory() *Memory {
	return &Memory{
		lots:      make(map[itemKey][]engine.LotID),
		lotsByID:  make(map[engine.LotID]engine.StockLot),
		transfers: make(map[engine.TransferID]engine.TransferRequest),
		branches:  make(map[engine.BranchID]bool),
	}
}

func (m *Memory) AddLot(_ context.Context, lot engine.StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLotLocked(lot)
	return nil
}

func (m *Memory) addLotLocked(lot engine.StockLot) {
	if lot.Status == "" {
		lot.Status = engine.LotValid
	}
	lot.ExpirationDate = engine.DateOf(lot.ExpirationDate)
	k := itemKey{ItemID: lot.ItemID, BranchID: lot.BranchID}
	m.lots[k] = append(m.lots[k], lot.ID)
	m.lotsByID[lot.ID] = lot
	m.branches[lot.BranchID] = true
}

func (m *Memory) Lots(_ context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := itemKey{ItemID: itemID, BranchID: branchID}
	result := make([]engine.StockLot, 0, len(m.lots[k]))
	for _, id := range m.lots[k] {
		result = append(result, m.lotsByID[id])
	}
	return result, nil
}

func (m *Memory) LotsExpiringOn(_ context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.StockLot
	for _, lot := range m.lotsByID {
		if lot.BranchID != branchID || lot.Status != engine.LotValid {
			continue
		}
		if engine.SameDate(lot.ExpirationDate, day) {
			result = append(result, lot)
		}
	}
	return result, nil
}

func (m *Memory) MarkExpired(_ context.Context, lotIDs []engine.LotID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markExpiredLocked(lotIDs), nil
}

func (m *Memory) markExpiredLocked(lotIDs []engine.LotID) int {
	count := 0
	for _, id := range lotIDs {
		lot, ok := m.lotsByID[id]
		if !ok || lot.Status == engine.LotExpired {
			continue // idempotent: re-marking is a no-op
		}
		lot.Status = engine.LotExpired
		m.lotsByID[id] = lot
		count++
	}
	return count
}

func (m *Memory) Branches(_ context.Context) ([]engine.BranchID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.BranchID, 0, len(m.branches))
	for b := range m.branches {
		result = append(result, b)
	}
	return result, nil
}

func (m *Memory) CreateTransfer(_ context.Context, t engine.TransferRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	m.branches[t.BranchID] = true
	return nil
}

func (m *Memory) SetTransferStatus(_ context.Context, id engine.TransferID, status engine.TransferStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return engine.ErrTransferNotFound
	}
	t.Status = status
	m.transfers[id] = t
	return nil
}

func (m *Memory) PendingQuantity(_ context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingLocked(itemID, branchID), nil
}

func (m *Memory) pendingLocked(itemID engine.ItemID, branchID engine.BranchID) decimal.Decimal {
	total := decimal.Zero
	for _, t := range m.transfers {
		if t.ItemID == itemID && t.BranchID == branchID && !t.Status.Terminal() {
			total = total.Add(t.Quantity)
		}
	}
	return total
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with unit-of-work support. The store lock is held for
// the whole unit, so concurrent check-then-reserve sequences serialize — the
// property the availability commit path depends on.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a unit of work, simulated with a snapshot and
// rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	lots      map[itemKey][]engine.LotID
	lotsByID  map[engine.LotID]engine.StockLot
	transfers map[engine.TransferID]engine.TransferRequest
	branches  map[engine.BranchID]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		lots:      make(map[itemKey][]engine.LotID, len(tm.lots)),
		lotsByID:  make(map[engine.LotID]engine.StockLot, len(tm.lotsByID)),
		transfers: make(map[engine.TransferID]engine.TransferRequest, len(tm.transfers)),
		branches:  make(map[engine.BranchID]bool, len(tm.branches)),
	}
	for k, v := range tm.lots {
		s.lots[k] = append([]engine.LotID{}, v...)
	}
	for k, v := range tm.lotsByID {
		s.lotsByID[k] = v
	}
	for k, v := range tm.transfers {
		s.transfers[k] = v
	}
	for k, v := range tm.branches {
		s.branches[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.lots = s.lots
	tm.lotsByID = s.lotsByID
	tm.transfers = s.transfers
	tm.branches = s.branches
}

// txMemoryView reuses the parent's *Locked helpers; the parent lock is
// already held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) AddLot(_ context.Context, lot engine.StockLot) error {
	tv.parent.addLotLocked(lot)
	return nil
}

func (tv *txMemoryView) Lots(_ context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	k := itemKey{ItemID: itemID, BranchID: branchID}
	result := make([]engine.StockLot, 0, len(tv.parent.lots[k]))
	for _, id := range tv.parent.lots[k] {
		result = append(result, tv.parent.lotsByID[id])
	}
	return result, nil
}

func (tv *txMemoryView) LotsExpiringOn(_ context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	var result []engine.StockLot
	for _, lot := range tv.parent.lotsByID {
		if lot.BranchID == branchID && lot.Status == engine.LotValid && engine.SameDate(lot.ExpirationDate, day) {
			result = append(result, lot)
		}
	}
	return result, nil
}

func (tv *txMemoryView) MarkExpired(_ context.Context, lotIDs []engine.LotID) (int, error) {
	return tv.parent.markExpiredLocked(lotIDs), nil
}

func (tv *txMemoryView) Branches(_ context.Context) ([]engine.BranchID, error) {
	result := make([]engine.BranchID, 0, len(tv.parent.branches))
	for b := range tv.parent.branches {
		result = append(result, b)
	}
	return result, nil
}

func (tv *txMemoryView) CreateTransfer(_ context.Context, t engine.TransferRequest) error {
	tv.parent.transfers[t.ID] = t
	tv.parent.branches[t.BranchID] = true
	return nil
}

func (tv *txMemoryView) SetTransferStatus(_ context.Context, id engine.TransferID, status engine.TransferStatus) error {
	t, ok := tv.parent.transfers[id]
	if !ok {
		return engine.ErrTransferNotFound
	}
	t.Status = status
	tv.parent.transfers[id] = t
	return nil
}

func (tv *txMemoryView) PendingQuantity(_ context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	return tv.parent.pendingLocked(itemID, branchID), nil
}
