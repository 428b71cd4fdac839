// Package sqlite provides a SQLite-backed ledger store. Entries are
// appended one row at a time, so the ledger never rewrites history on
// record.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fableforge/storyforge/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS cost_entries (
	id TEXT PRIMARY KEY,
	ts TEXT NOT NULL,
	tier TEXT NOT NULL,
	input_units INTEGER NOT NULL,
	output_units INTEGER NOT NULL,
	cost REAL NOT NULL,
	kind TEXT NOT NULL,
	success INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cost_entries_ts ON cost_entries(ts);

CREATE TABLE IF NOT EXISTS daily_budgets (
	date TEXT PRIMARY KEY,
	budget_limit REAL NOT NULL,
	current_spend REAL NOT NULL,
	requests_made INTEGER NOT NULL,
	requests_failed INTEGER NOT NULL
);
`

// Store is a SQLite ledger store.
type Store struct {
	db    *sql.DB
	limit int
}

var (
	_ ledger.Store    = (*Store)(nil)
	_ ledger.Appender = (*Store)(nil)
)

// New opens (creating if needed) a SQLite ledger store at path. At most
// limit entries are returned by Load; limit <= 0 means 1000.
func New(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = 1000
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger/sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger/sqlite: init schema: %w", err)
	}
	return &Store{db: db, limit: limit}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the most recent entries and all daily budgets.
func (s *Store) Load() (ledger.Snapshot, error) {
	snap := ledger.Snapshot{DailyBudgets: make(map[string]ledger.DailyBudget)}

	rows, err := s.db.Query(`
		SELECT id, ts, tier, input_units, output_units, cost, kind, success
		FROM (
			SELECT * FROM cost_entries ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC`, s.limit)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ledger.CostEntry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Tier, &e.InputUnits, &e.OutputUnits, &e.Cost, &e.Kind, &e.Success); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: scan entry: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: parse timestamp %q: %w", ts, err)
		}
		snap.CostHistory = append(snap.CostHistory, e)
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: load entries: %w", err)
	}

	days, err := s.db.Query(`
		SELECT date, budget_limit, current_spend, requests_made, requests_failed
		FROM daily_budgets`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: load daily budgets: %w", err)
	}
	defer days.Close()

	for days.Next() {
		var d ledger.DailyBudget
		if err := days.Scan(&d.Date, &d.Limit, &d.Spend, &d.Requests, &d.Failed); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: scan daily budget: %w", err)
		}
		snap.DailyBudgets[d.Date] = d
	}
	if err := days.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ledger/sqlite: load daily budgets: %w", err)
	}

	return snap, nil
}

// Append inserts one entry and upserts its day in a single transaction.
func (s *Store) Append(entry ledger.CostEntry, day ledger.DailyBudget) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ledger/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO cost_entries (id, ts, tier, input_units, output_units, cost, kind, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), string(entry.Tier),
		entry.InputUnits, entry.OutputUnits, entry.Cost, entry.Kind, entry.Success)
	if err != nil {
		return fmt.Errorf("ledger/sqlite: insert entry: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO daily_budgets (date, budget_limit, current_spend, requests_made, requests_failed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			budget_limit = excluded.budget_limit,
			current_spend = excluded.current_spend,
			requests_made = excluded.requests_made,
			requests_failed = excluded.requests_failed`,
		day.Date, day.Limit, day.Spend, day.Requests, day.Failed)
	if err != nil {
		return fmt.Errorf("ledger/sqlite: upsert daily budget: %w", err)
	}

	return tx.Commit()
}

// Save replaces all stored state with the snapshot.
func (s *Store) Save(snap ledger.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ledger/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cost_entries`); err != nil {
		return fmt.Errorf("ledger/sqlite: clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM daily_budgets`); err != nil {
		return fmt.Errorf("ledger/sqlite: clear daily budgets: %w", err)
	}

	for _, e := range snap.CostHistory {
		_, err := tx.Exec(`
			INSERT INTO cost_entries (id, ts, tier, input_units, output_units, cost, kind, success)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Tier),
			e.InputUnits, e.OutputUnits, e.Cost, e.Kind, e.Success)
		if err != nil {
			return fmt.Errorf("ledger/sqlite: insert entry: %w", err)
		}
	}
	for _, d := range snap.DailyBudgets {
		_, err := tx.Exec(`
			INSERT INTO daily_budgets (date, budget_limit, current_spend, requests_made, requests_failed)
			VALUES (?, ?, ?, ?, ?)`,
			d.Date, d.Limit, d.Spend, d.Requests, d.Failed)
		if err != nil {
			return fmt.Errorf("ledger/sqlite: insert daily budget: %w", err)
		}
	}

	return tx.Commit()
}
