/*
Package sqlite provides a SQLite-backed attendance.Store.

PURPOSE:
  Persists the evaluated record set and the evaluation audit log. The engine
  works on whole record sets, so the store does too: LoadAll reads every row,
  SaveAll replaces every row inside one transaction.

INTERFACES IMPLEMENTED:
  attendance.Store:       record persistence
  attendance.RunRecorder: evaluation run audit log

KEY TABLES:
  attendance_records: one row per (employee_id, date), derived fields included
  evaluation_runs:    one row per recompute

STORAGE FORMAT:
  date          TEXT     YYYY-MM-DD
  punch_in/out  INTEGER  minutes since midnight, NULL when missing
  hours         TEXT     decimal string, exact round trip
  tour          TEXT     '', 'local' or 'out'

ATOMICITY:
  SaveAll runs DELETE + INSERT in a single transaction. Readers see the old
  set or the new set, never a mix. Duplicate keys within one SaveAll resolve
  through ON CONFLICT, so the last occurrence wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  register := attendance.NewRegister(store, engine, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - attendance/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// runTimeLayout is fixed-width so created_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements attendance.Store and attendance.RunRecorder using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance_records (
		employee_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		class TEXT NOT NULL,
		punch_in INTEGER,
		punch_out INTEGER,
		tour TEXT NOT NULL DEFAULT '',
		closed_holiday INTEGER NOT NULL DEFAULT 0,
		special_leave INTEGER NOT NULL DEFAULT 0,
		hours TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	-- Month-scoped reads and deletes
	CREATE INDEX IF NOT EXISTS idx_attendance_records_date
		ON attendance_records(date);

	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		trigger_kind TEXT NOT NULL,
		records INTEGER NOT NULL,
		compliant INTEGER NOT NULL,
		non_compliant INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluation_runs_created
		ON evaluation_runs(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE (attendance.Store interface)
// =============================================================================

// LoadAll returns every stored record ordered by date, then employee.
func (s *Store) LoadAll(ctx context.Context) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, class, punch_in, punch_out, tour,
		       closed_holiday, special_leave, hours, status, reason
		FROM attendance_records
		ORDER BY date ASC, employee_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []attendance.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveAll atomically replaces the stored set.
func (s *Store) SaveAll(ctx context.Context, records []attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM attendance_records"); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO attendance_records
		(employee_id, date, class, punch_in, punch_out, tour,
		 closed_holiday, special_leave, hours, status, reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			class = excluded.class,
			punch_in = excluded.punch_in,
			punch_out = excluded.punch_out,
			tour = excluded.tour,
			closed_holiday = excluded.closed_holiday,
			special_leave = excluded.special_leave,
			hours = excluded.hours,
			status = excluded.status,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.EmployeeID,
			calendar.FormatDate(r.Date),
			string(r.Class),
			nullMinutes(r.PunchIn),
			nullMinutes(r.PunchOut),
			string(r.Tour),
			r.ClosedHoliday,
			r.SpecialLeave,
			r.Hours.String(),
			string(r.Status),
			string(r.Reason),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save record %s: %w", calendar.FormatDate(r.Date), err)
		}
	}

	return sqlTx.Commit()
}

func scanRecord(rows *sql.Rows) (attendance.Record, error) {
	var (
		rec               attendance.Record
		date              string
		class, tour       string
		punchIn, punchOut sql.NullInt64
		hours             string
		status, reason    string
	)

	err := rows.Scan(
		&rec.EmployeeID, &date, &class, &punchIn, &punchOut, &tour,
		&rec.ClosedHoliday, &rec.SpecialLeave, &hours, &status, &reason,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Date, err = calendar.ParseDate(date)
	if err != nil {
		return rec, fmt.Errorf("stored record has bad date %q: %w", date, err)
	}
	rec.Class = attendance.Class(class)
	rec.Tour = attendance.Tour(tour)
	rec.PunchIn = minutesPtr(punchIn)
	rec.PunchOut = minutesPtr(punchOut)
	rec.Hours, err = decimal.NewFromString(hours)
	if err != nil {
		return rec, fmt.Errorf("stored record %s has bad hours %q: %w", date, hours, err)
	}
	rec.Status = attendance.Status(status)
	rec.Reason = attendance.Reason(reason)

	return rec, nil
}

// =============================================================================
// RUN LOG (attendance.RunRecorder interface)
// =============================================================================

// RecordRun appends an evaluation run.
func (s *Store) RecordRun(ctx context.Context, run attendance.EvaluationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_runs (id, trigger_kind, records, compliant, non_compliant, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID, string(run.Trigger), run.Records, run.Compliant, run.NonCompliant,
		run.CreatedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the newest runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]attendance.EvaluationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, trigger_kind, records, compliant, non_compliant, created_at
		FROM evaluation_runs
		ORDER BY created_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []attendance.EvaluationRun{}
	for rows.Next() {
		var (
			run       attendance.EvaluationRun
			trigger   string
			createdAt string
		)
		if err := rows.Scan(&run.ID, &trigger, &run.Records, &run.Compliant, &run.NonCompliant, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Trigger = attendance.Trigger(trigger)
		run.CreatedAt, err = time.Parse(runTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("stored run %s has bad created_at %q: %w", run.ID, createdAt, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Helper functions

func nullMinutes(m *clock.Minutes) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func minutesPtr(v sql.NullInt64) *clock.Minutes {
	if !v.Valid {
		return nil
	}
	return clock.Minutes(v.Int64).Ptr()
}
