package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cryptobot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite persists fills to a SQLite database for analysis and resume.
// synchronous=FULL so each insert is durable before the next trade decision.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens (or creates) the fill journal database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite journal open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		ts            TEXT NOT NULL,
		symbol        TEXT NOT NULL,
		side          TEXT NOT NULL,
		qty           REAL NOT NULL,
		price         REAL NOT NULL,
		fee           REAL NOT NULL,
		notional      REAL NOT NULL,
		realized_pnl  REAL NOT NULL DEFAULT 0,
		cash_after    REAL NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills(ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite journal schema: %w", err)
	}

	slog.Info("opened fill journal", "path", dbPath)
	return &SQLite{db: db}, nil
}

// Append persists one fill.
func (j *SQLite) Append(fill model.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO fills (ts, symbol, side, qty, price, fee, notional, realized_pnl, cash_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fill.TS.UTC().Format(time.RFC3339Nano),
		fill.Symbol,
		string(fill.Side),
		fill.Qty,
		fill.Price,
		fill.Fee,
		fill.Notional,
		fill.RealizedPnL,
		fill.CashAfter,
	)
	return err
}

// Fills returns all persisted fills in append order. limit <= 0 means all.
func (j *SQLite) Fills(limit int) ([]model.Fill, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	q := `SELECT ts, symbol, side, qty, price, fee, notional, realized_pnl, cash_after
	      FROM fills ORDER BY id ASC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = j.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = j.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite journal query: %w", err)
	}
	defer rows.Close()

	var fills []model.Fill
	for rows.Next() {
		var f model.Fill
		var ts, side string
		if err := rows.Scan(&ts, &f.Symbol, &side, &f.Qty, &f.Price, &f.Fee,
			&f.Notional, &f.RealizedPnL, &f.CashAfter); err != nil {
			return nil, fmt.Errorf("sqlite journal scan: %w", err)
		}
		f.Side = model.Side(side)
		if f.TS, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("sqlite journal: bad ts %q: %w", ts, err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// LastCash returns the cash balance after the most recent fill. ok is false
// when the journal is empty.
func (j *SQLite) LastCash() (cash float64, ok bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	row := j.db.QueryRow(`SELECT cash_after FROM fills ORDER BY id DESC LIMIT 1`)
	switch err := row.Scan(&cash); err {
	case nil:
		return cash, true, nil
	case sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("sqlite journal last cash: %w", err)
	}
}

// Close closes the journal database.
func (j *SQLite) Close() error {
	return j.db.Close()
}
