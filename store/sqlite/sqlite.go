/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.TxStore plus the aid-request candidate queries using
  SQLite. The same patterns apply to PostgreSQL — see store/postgres for the
  pgx-driver variant with only dialect differences.

KEY TABLES:
  stock_lots:    Perishable lots; status flips VALID -> EXPIRED exactly once,
                 rows are never deleted
  transfers:     Outbound reservations; pending rows are the live quantity
                 budget netted against the lots
  aid_requests:  Requests with their schedule windows (JSON)
  aid_items:     Requested items searched by the matching engine

STATUS DISCIPLINE:
  The only UPDATE statements in this package move statuses forward:
  - stock_lots:  status = 'expired' WHERE status = 'valid' (idempotent; the
                 WHERE clause is what makes re-marking a no-op)
  - transfers:   status transitions to terminal states
  No DELETE statements exist on either table.

CONCURRENCY:
  Uses sync.Mutex around the unit-of-work path so an availability
  re-validation and its reservation write never interleave with a concurrent
  commit or the sweep's expiry write. SQLite is opened with WAL for readers.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()
  calc := engine.NewCalculator(store)

SEE ALSO:
  - engine/store.go: Interface contracts
  - engine/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

// Store implements engine.TxStore and the matching candidate source.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to ":memory:" is its own empty database; the
	// migrated schema only exists on the first one. A single connection keeps
	// every caller on the migrated database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Perishable stock lots. Never deleted; EXPIRED rows are history.
	CREATE TABLE IF NOT EXISTS stock_lots (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		expiration_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'valid',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lots_item_branch
		ON stock_lots(item_id, branch_id);
	CREATE INDEX IF NOT EXISTS idx_lots_branch_expiration
		ON stock_lots(branch_id, expiration_date) WHERE status = 'valid';

	-- Outbound transfer requests (reservations).
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);

	-- Hot path: pending-quantity aggregation per item/branch.
	CREATE INDEX IF NOT EXISTS idx_transfers_item_branch_status
		ON transfers(item_id, branch_id, status);

	-- Aid requests with their schedule windows.
	CREATE TABLE IF NOT EXISTS aid_requests (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		windows_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_aid_requests_branch
		ON aid_requests(branch_id);

	-- Requested items inside aid requests.
	CREATE TABLE IF NOT EXISTS aid_items (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES aid_requests(id),
		branch_id TEXT NOT NULL,
		template_name TEXT NOT NULL,
		attributes_json TEXT NOT NULL DEFAULT '[]',
		quantity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_aid_items_branch_status
		ON aid_items(branch_id, status);
	CREATE INDEX IF NOT EXISTS idx_aid_items_request
		ON aid_items(request_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOT STORE (engine.Store)
// =============================================================================

func (s *Store) AddLot(ctx context.Context, lot engine.StockLot) error {
	return addLot(ctx, s.db, lot)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func addLot(ctx context.Context, db execer, lot engine.StockLot) error {
	if lot.Status == "" {
		lot.Status = engine.LotValid
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO stock_lots (id, item_id, branch_id, quantity, expiration_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.ItemID, lot.BranchID,
		lot.Quantity.String(),
		engine.FormatDay(lot.ExpirationDate),
		lot.Status,
		lot.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

func (s *Store) Lots(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	return queryLots(ctx, s.db, `
		SELECT id, item_id, branch_id, quantity, expiration_date, status, created_at
		FROM stock_lots
		WHERE item_id = ? AND branch_id = ?
		ORDER BY expiration_date ASC`,
		itemID, branchID)
}

func (s *Store) LotsExpiringOn(ctx context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	return queryLots(ctx, s.db, `
		SELECT id, item_id, branch_id, quantity, expiration_date, status, created_at
		FROM stock_lots
		WHERE branch_id = ? AND status = 'valid' AND expiration_date = ?
		ORDER BY id ASC`,
		branchID, engine.FormatDay(day))
}

func (s *Store) MarkExpired(ctx context.Context, lotIDs []engine.LotID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markExpired(ctx, s.db, lotIDs)
}

func markExpired(ctx context.Context, db execer, lotIDs []engine.LotID) (int, error) {
	if len(lotIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(lotIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(lotIDs))
	for i, id := range lotIDs {
		args[i] = id
	}

	// The status guard makes this idempotent: already-EXPIRED rows match
	// zero rows and the returned count reflects actual transitions only.
	res, err := db.ExecContext(ctx,
		`UPDATE stock_lots SET status = 'expired' WHERE status = 'valid' AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark lots expired: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Branches(ctx context.Context) ([]engine.BranchID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT branch_id FROM stock_lots ORDER BY branch_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer rows.Close()

	var branches []engine.BranchID
	for rows.Next() {
		var b engine.BranchID
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func queryLots(ctx context.Context, db querier, query string, args ...any) ([]engine.StockLot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []engine.StockLot
	for rows.Next() {
		var (
			lot        engine.StockLot
			qty        string
			expiration string
			createdAt  string
		)
		if err := rows.Scan(&lot.ID, &lot.ItemID, &lot.BranchID, &qty, &expiration, &lot.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		if lot.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad quantity for lot %s: %w", lot.ID, err)
		}
		if lot.ExpirationDate, err = engine.ParseDay(expiration); err != nil {
			return nil, fmt.Errorf("bad expiration for lot %s: %w", lot.ID, err)
		}
		lot.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// =============================================================================
// TRANSFER STORE (engine.Store)
// =============================================================================

func (s *Store) CreateTransfer(ctx context.Context, t engine.TransferRequest) error {
	return createTransfer(ctx, s.db, t)
}

func createTransfer(ctx context.Context, db execer, t engine.TransferRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transfers (id, item_id, branch_id, quantity, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, t.BranchID, t.Quantity.String(), t.Status,
		t.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

func (s *Store) SetTransferStatus(ctx context.Context, id engine.TransferID, status engine.TransferStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transfers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrTransferNotFound
	}
	return nil
}

func (s *Store) PendingQuantity(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	return pendingQuantity(ctx, s.db, itemID, branchID)
}

func pendingQuantity(ctx context.Context, db querier, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT quantity FROM transfers
		WHERE item_id = ? AND branch_id = ? AND status = 'pending'`,
		itemID, branchID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query pending transfers: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var qty string
		if err := rows.Scan(&qty); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad transfer quantity: %w", err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// =============================================================================
// UNIT OF WORK (engine.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. The store mutex is held
// for the whole unit so concurrent check-then-reserve sequences serialize.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txView adapts an open sql.Tx to engine.Store.
type txView struct {
	tx *sql.Tx
}

func (v *txView) AddLot(ctx context.Context, lot engine.StockLot) error {
	return addLot(ctx, v.tx, lot)
}

func (v *txView) Lots(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	return queryLots(ctx, v.tx, `
		SELECT id, item_id, branch_id, quantity, expiration_date, status, created_at
		FROM stock_lots
		WHERE item_id = ? AND branch_id = ?
		ORDER BY expiration_date ASC`,
		itemID, branchID)
}

func (v *txView) LotsExpiringOn(ctx context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	return queryLots(ctx, v.tx, `
		SELECT id, item_id, branch_id, quantity, expiration_date, status, created_at
		FROM stock_lots
		WHERE branch_id = ? AND status = 'valid' AND expiration_date = ?
		ORDER BY id ASC`,
		branchID, engine.FormatDay(day))
}

func (v *txView) MarkExpired(ctx context.Context, lotIDs []engine.LotID) (int, error) {
	return markExpired(ctx, v.tx, lotIDs)
}

func (v *txView) Branches(ctx context.Context) ([]engine.BranchID, error) {
	rows, err := v.tx.QueryContext(ctx, `SELECT DISTINCT branch_id FROM stock_lots ORDER BY branch_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []engine.BranchID
	for rows.Next() {
		var b engine.BranchID
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (v *txView) CreateTransfer(ctx context.Context, t engine.TransferRequest) error {
	return createTransfer(ctx, v.tx, t)
}

func (v *txView) SetTransferStatus(ctx context.Context, id engine.TransferID, status engine.TransferStatus) error {
	res, err := v.tx.ExecContext(ctx, `UPDATE transfers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrTransferNotFound
	}
	return nil
}

func (v *txView) PendingQuantity(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	return pendingQuantity(ctx, v.tx, itemID, branchID)
}

// =============================================================================
// AID REQUEST / ITEM STORE (matching candidate source)
// =============================================================================

// windowRecord is the JSON shape of one schedule entry.
type windowRecord struct {
	Day   string `json:"day"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// SaveAidRequest persists a request and its schedule windows.
func (s *Store) SaveAidRequest(ctx context.Context, id string, branchID engine.BranchID, windows []engine.ScheduledWindow, createdAt time.Time) error {
	records := make([]windowRecord, len(windows))
	for i, w := range windows {
		records[i] = windowRecord{
			Day:   engine.FormatDay(w.Day),
			Start: w.Start.String(),
			End:   w.End.String(),
		}
	}
	windowsJSON, err := json.Marshal(records)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aid_requests (id, branch_id, windows_json, created_at)
		VALUES (?, ?, ?, ?)`,
		id, branchID, string(windowsJSON), createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert aid request: %w", err)
	}
	return nil
}

// SaveAidItem persists one requested item.
func (s *Store) SaveAidItem(ctx context.Context, item matching.AidItem) error {
	attrsJSON, err := json.Marshal(item.Attributes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aid_items (id, request_id, branch_id, template_name, attributes_json, quantity, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.RequestID, item.BranchID, item.TemplateName,
		string(attrsJSON), item.Quantity.String(), item.Status,
		item.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert aid item: %w", err)
	}
	return nil
}

// AidCandidates loads every item at the branch joined with its parent
// request's schedule, ready for the matching pipeline.
func (s *Store) AidCandidates(ctx context.Context, branchID engine.BranchID) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.request_id, i.branch_id, i.template_name, i.attributes_json,
		       i.quantity, i.status, i.created_at, r.windows_json
		FROM aid_items i
		JOIN aid_requests r ON r.id = i.request_id
		WHERE i.branch_id = ?
		ORDER BY i.created_at ASC, i.id ASC`,
		branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aid candidates: %w", err)
	}
	defer rows.Close()

	var candidates []matching.Candidate
	for rows.Next() {
		var (
			item        matching.AidItem
			attrsJSON   string
			qty         string
			createdAt   string
			windowsJSON string
		)
		if err := rows.Scan(&item.ID, &item.RequestID, &item.BranchID, &item.TemplateName,
			&attrsJSON, &qty, &item.Status, &createdAt, &windowsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan aid item: %w", err)
		}
		if err := json.Unmarshal([]byte(attrsJSON), &item.Attributes); err != nil {
			return nil, fmt.Errorf("bad attributes for item %s: %w", item.ID, err)
		}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad quantity for item %s: %w", item.ID, err)
		}
		item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		var records []windowRecord
		if err := json.Unmarshal([]byte(windowsJSON), &records); err != nil {
			return nil, fmt.Errorf("bad windows for request %s: %w", item.RequestID, err)
		}
		windows := make([]engine.ScheduledWindow, 0, len(records))
		for _, rec := range records {
			w, err := engine.ParseWindow(rec.Day, rec.Start, rec.End)
			if err != nil {
				return nil, fmt.Errorf("bad window for request %s: %w", item.RequestID, err)
			}
			windows = append(windows, w)
		}

		candidates = append(candidates, matching.Candidate{Item: item, Windows: windows})
	}
	return candidates, rows.Err()
}
