// Package postgres implements the storage interfaces over PostgreSQL using
// the pgx stdlib driver. Same contracts as store/sqlite; only dialect and
// concurrency control differ — serialization of the unit-of-work path relies
// on database transactions rather than a process-local mutex, so multiple
// service instances can share one database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

type Store struct {
	db *sql.DB
}

// Open connects with pool settings tuned for short availability queries.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stock_lots (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		quantity NUMERIC NOT NULL,
		expiration_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'valid',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_lots_item_branch ON stock_lots(item_id, branch_id);
	CREATE INDEX IF NOT EXISTS idx_lots_branch_expiration
		ON stock_lots(branch_id, expiration_date) WHERE status = 'valid';

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		quantity NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_item_branch_status
		ON transfers(item_id, branch_id, status);

	CREATE TABLE IF NOT EXISTS aid_requests (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		windows_json TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_aid_requests_branch ON aid_requests(branch_id);

	CREATE TABLE IF NOT EXISTS aid_items (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES aid_requests(id),
		branch_id TEXT NOT NULL,
		template_name TEXT NOT NULL,
		attributes_json TEXT NOT NULL DEFAULT '[]',
		quantity NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_aid_items_branch_status ON aid_items(branch_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// engine.Store
// =============================================================================

func (s *Store) AddLot(ctx context.Context, lot engine.StockLot) error {
	return addLot(ctx, s.db, lot)
}

func addLot(ctx context.Context, db querier, lot engine.StockLot) error {
	if lot.Status == "" {
		lot.Status = engine.LotValid
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO stock_lots (id, item_id, branch_id, quantity, expiration_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		lot.ID, lot.ItemID, lot.BranchID, lot.Quantity.String(),
		engine.FormatDay(lot.ExpirationDate), lot.Status, lot.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (s *Store) Lots(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	return queryLots(ctx, s.db, lotsByItemSQL, itemID, branchID)
}

func (s *Store) LotsExpiringOn(ctx context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	return queryLots(ctx, s.db, lotsExpiringSQL, branchID, engine.FormatDay(day))
}

const lotsByItemSQL = `
	SELECT id, item_id, branch_id, quantity::text, expiration_date::text, status, created_at
	FROM stock_lots
	WHERE item_id = $1 AND branch_id = $2
	ORDER BY expiration_date ASC`

const lotsExpiringSQL = `
	SELECT id, item_id, branch_id, quantity::text, expiration_date::text, status, created_at
	FROM stock_lots
	WHERE branch_id = $1 AND status = 'valid' AND expiration_date = $2::date
	ORDER BY id ASC`

func queryLots(ctx context.Context, db querier, query string, args ...any) ([]engine.StockLot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()

	var lots []engine.StockLot
	for rows.Next() {
		var (
			lot        engine.StockLot
			qty        string
			expiration string
		)
		if err := rows.Scan(&lot.ID, &lot.ItemID, &lot.BranchID, &qty, &expiration, &lot.Status, &lot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		if lot.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad quantity for lot %s: %w", lot.ID, err)
		}
		if lot.ExpirationDate, err = engine.ParseDay(expiration); err != nil {
			return nil, fmt.Errorf("bad expiration for lot %s: %w", lot.ID, err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (s *Store) MarkExpired(ctx context.Context, lotIDs []engine.LotID) (int, error) {
	return markExpired(ctx, s.db, lotIDs)
}

func markExpired(ctx context.Context, db querier, lotIDs []engine.LotID) (int, error) {
	if len(lotIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(lotIDs))
	for i, id := range lotIDs {
		ids[i] = string(id)
	}
	idsJSON, _ := json.Marshal(ids)

	// Idempotent: the status guard excludes already-expired rows from the count.
	res, err := db.ExecContext(ctx, `
		UPDATE stock_lots SET status = 'expired'
		WHERE status = 'valid'
		  AND id IN (SELECT json_array_elements_text($1::json))`,
		string(idsJSON))
	if err != nil {
		return 0, fmt.Errorf("mark lots expired: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Branches(ctx context.Context) ([]engine.BranchID, error) {
	return branches(ctx, s.db)
}

func branches(ctx context.Context, db querier) ([]engine.BranchID, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT branch_id FROM stock_lots ORDER BY branch_id`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	var result []engine.BranchID
	for rows.Next() {
		var b engine.BranchID
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) CreateTransfer(ctx context.Context, t engine.TransferRequest) error {
	return createTransfer(ctx, s.db, t)
}

func createTransfer(ctx context.Context, db querier, t engine.TransferRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transfers (id, item_id, branch_id, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.ItemID, t.BranchID, t.Quantity.String(), t.Status, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *Store) SetTransferStatus(ctx context.Context, id engine.TransferID, status engine.TransferStatus) error {
	return setTransferStatus(ctx, s.db, id, status)
}

func setTransferStatus(ctx context.Context, db querier, id engine.TransferID, status engine.TransferStatus) error {
	res, err := db.ExecContext(ctx, `UPDATE transfers SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
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
		SELECT COALESCE(SUM(quantity), 0)::text FROM transfers
		WHERE item_id = $1 AND branch_id = $2 AND status = 'pending'`,
		itemID, branchID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query pending quantity: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	if rows.Next() {
		var sum string
		if err := rows.Scan(&sum); err != nil {
			return decimal.Zero, err
		}
		if total, err = decimal.NewFromString(sum); err != nil {
			return decimal.Zero, fmt.Errorf("bad pending sum: %w", err)
		}
	}
	return total, rows.Err()
}

// =============================================================================
// engine.TxStore
// =============================================================================

// WithTx runs fn inside a SERIALIZABLE transaction. Two concurrent commits
// against the same item/branch cannot both read the old pending total and
// both write; one aborts at the database level with SQLSTATE 40001 and
// surfaces as the engine's retryable conflict condition.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{tx: sqlTx}); err != nil {
		return asConflict(err)
	}
	return asConflict(sqlTx.Commit())
}

// serializationFailure is the SQLSTATE Postgres raises when a SERIALIZABLE
// transaction loses against a concurrent one.
const serializationFailure = "40001"

// asConflict maps a serialization abort to engine.ErrTxConflict so callers
// see a retryable condition instead of an opaque driver error.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
		return fmt.Errorf("%w: %v", engine.ErrTxConflict, err)
	}
	return err
}

type txView struct {
	tx *sql.Tx
}

func (v *txView) AddLot(ctx context.Context, lot engine.StockLot) error {
	return addLot(ctx, v.tx, lot)
}

func (v *txView) Lots(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) ([]engine.StockLot, error) {
	return queryLots(ctx, v.tx, lotsByItemSQL, itemID, branchID)
}

func (v *txView) LotsExpiringOn(ctx context.Context, branchID engine.BranchID, day time.Time) ([]engine.StockLot, error) {
	return queryLots(ctx, v.tx, lotsExpiringSQL, branchID, engine.FormatDay(day))
}

func (v *txView) MarkExpired(ctx context.Context, lotIDs []engine.LotID) (int, error) {
	return markExpired(ctx, v.tx, lotIDs)
}

func (v *txView) Branches(ctx context.Context) ([]engine.BranchID, error) {
	return branches(ctx, v.tx)
}

func (v *txView) CreateTransfer(ctx context.Context, t engine.TransferRequest) error {
	return createTransfer(ctx, v.tx, t)
}

func (v *txView) SetTransferStatus(ctx context.Context, id engine.TransferID, status engine.TransferStatus) error {
	return setTransferStatus(ctx, v.tx, id, status)
}

func (v *txView) PendingQuantity(ctx context.Context, itemID engine.ItemID, branchID engine.BranchID) (decimal.Decimal, error) {
	return pendingQuantity(ctx, v.tx, itemID, branchID)
}

// =============================================================================
// AID REQUEST / ITEM STORE
// =============================================================================

type windowRecord struct {
	Day   string `json:"day"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

func (s *Store) SaveAidRequest(ctx context.Context, id string, branchID engine.BranchID, windows []engine.ScheduledWindow, createdAt time.Time) error {
	records := make([]windowRecord, len(windows))
	for i, w := range windows {
		records[i] = windowRecord{Day: engine.FormatDay(w.Day), Start: w.Start.String(), End: w.End.String()}
	}
	windowsJSON, err := json.Marshal(records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aid_requests (id, branch_id, windows_json, created_at)
		VALUES ($1, $2, $3, $4)`,
		id, branchID, string(windowsJSON), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("insert aid request: %w", err)
	}
	return nil
}

func (s *Store) SaveAidItem(ctx context.Context, item matching.AidItem) error {
	attrsJSON, err := json.Marshal(item.Attributes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aid_items (id, request_id, branch_id, template_name, attributes_json, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.RequestID, item.BranchID, item.TemplateName,
		string(attrsJSON), item.Quantity.String(), item.Status, item.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert aid item: %w", err)
	}
	return nil
}

func (s *Store) AidCandidates(ctx context.Context, branchID engine.BranchID) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.request_id, i.branch_id, i.template_name, i.attributes_json,
		       i.quantity::text, i.status, i.created_at, r.windows_json
		FROM aid_items i
		JOIN aid_requests r ON r.id = i.request_id
		WHERE i.branch_id = $1
		ORDER BY i.created_at ASC, i.id ASC`,
		branchID)
	if err != nil {
		return nil, fmt.Errorf("query aid candidates: %w", err)
	}
	defer rows.Close()

	var candidates []matching.Candidate
	for rows.Next() {
		var (
			item        matching.AidItem
			attrsJSON   string
			qty         string
			windowsJSON string
		)
		if err := rows.Scan(&item.ID, &item.RequestID, &item.BranchID, &item.TemplateName,
			&attrsJSON, &qty, &item.Status, &item.CreatedAt, &windowsJSON); err != nil {
			return nil, fmt.Errorf("scan aid item: %w", err)
		}
		if err := json.Unmarshal([]byte(attrsJSON), &item.Attributes); err != nil {
			return nil, fmt.Errorf("bad attributes for item %s: %w", item.ID, err)
		}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad quantity for item %s: %w", item.ID, err)
		}

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
