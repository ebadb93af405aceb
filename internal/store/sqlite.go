package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Journal = (*SQLiteJournal)(nil)

// SQLiteJournal persists the audit trail in a SQLite database. Every write
// is a single autocommitted statement; the journal never holds engine locks.
type SQLiteJournal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	type             TEXT NOT NULL,
	quantity         REAL NOT NULL,
	price            REAL NOT NULL,
	status           TEXT NOT NULL,
	reason           TEXT NOT NULL DEFAULT '',
	venue            TEXT NOT NULL DEFAULT '',
	filled_quantity  REAL NOT NULL DEFAULT 0,
	filled_avg_price REAL NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS fills (
	order_id  TEXT NOT NULL,
	symbol    TEXT NOT NULL,
	quantity  REAL NOT NULL,
	price     REAL NOT NULL,
	venue     TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS reconciliations (
	venue           TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	local_quantity  REAL NOT NULL,
	remote_quantity REAL NOT NULL,
	at              INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS alerts (
	at       INTEGER NOT NULL,
	severity TEXT NOT NULL,
	message  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`

// NewSQLiteJournal opens (or creates) the journal database at dbPath and
// applies the schema.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// RecordOrder upserts an order record. Orders are journaled once when
// created and again at each status transition; the latest state wins.
func (j *SQLiteJournal) RecordOrder(ctx context.Context, o domain.Order) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO orders (id, symbol, side, type, quantity, price, status, reason, venue, filled_quantity, filled_avg_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			venue = excluded.venue,
			filled_quantity = excluded.filled_quantity,
			filled_avg_price = excluded.filled_avg_price`,
		o.ID, o.Symbol, string(o.Side), string(o.Type), o.Quantity, o.Price,
		string(o.Status), o.Reason, o.Venue, o.FilledQuantity, o.FilledAvgPrice,
		o.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording order %s: %w", o.ID, err)
	}
	return nil
}

// RecordFill appends an execution report.
func (j *SQLiteJournal) RecordFill(ctx context.Context, f domain.Fill) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO fills (order_id, symbol, quantity, price, venue, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.OrderID, f.Symbol, f.Quantity, f.Price, f.Venue, f.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording fill for %s: %w", f.OrderID, err)
	}
	return nil
}

// RecordReconciliation appends one row per position delta found when
// adopting venue state.
func (j *SQLiteJournal) RecordReconciliation(ctx context.Context, venueName string, deltas []ledger.Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting reconciliation tx: %w", err)
	}
	for _, d := range deltas {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reconciliations (venue, symbol, local_quantity, remote_quantity, at)
			VALUES (?, ?, ?, ?, ?)`,
			venueName, d.Symbol, d.LocalQuantity, d.RemoteQuantity, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording reconciliation delta for %s: %w", d.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecordAlert appends one operator alert.
func (j *SQLiteJournal) RecordAlert(ctx context.Context, at time.Time, severity, message string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO alerts (at, severity, message) VALUES (?, ?, ?)`,
		at.UnixMilli(), severity, message)
	if err != nil {
		return fmt.Errorf("recording alert: %w", err)
	}
	return nil
}

// GetOrder retrieves a single journaled order by id.
func (j *SQLiteJournal) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, symbol, side, type, quantity, price, status, reason, venue, filled_quantity, filled_avg_price, created_at
		FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// ListOrders returns journaled orders with the given status, oldest first.
// An empty status returns everything.
func (j *SQLiteJournal) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT id, symbol, side, type, quantity, price, status, reason, venue, filled_quantity, filled_avg_price, created_at
		FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListFills returns journaled fills for a symbol, oldest first.
func (j *SQLiteJournal) ListFills(ctx context.Context, symbol string) ([]domain.Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, symbol, quantity, price, venue, timestamp
		FROM fills WHERE symbol = ? ORDER BY timestamp`, symbol)
	if err != nil {
		return nil, fmt.Errorf("listing fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var ts int64
		if err := rows.Scan(&f.OrderID, &f.Symbol, &f.Quantity, &f.Price, &f.Venue, &ts); err != nil {
			return nil, fmt.Errorf("scanning fill: %w", err)
		}
		f.Timestamp = time.UnixMilli(ts)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (domain.Order, error) {
	var o domain.Order
	var side, typ, status string
	var createdAt int64
	err := r.Scan(&o.ID, &o.Symbol, &side, &typ, &o.Quantity, &o.Price,
		&status, &o.Reason, &o.Venue, &o.FilledQuantity, &o.FilledAvgPrice, &createdAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("scanning order: %w", err)
	}
	o.Side = domain.OrderSide(side)
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = time.UnixMilli(createdAt)
	return o, nil
}
