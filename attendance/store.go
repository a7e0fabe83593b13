/*
store.go - Persistence contract for attendance records

PURPOSE:
  The engine is a batch function over the full record set, so the store
  contract is equally coarse: load everything, save everything.

ATOMICITY:
  SaveAll replaces the whole set atomically. A reader never observes a
  partially written set. Duplicate keys in the saved slice overwrite earlier
  ones (last write wins).

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and development
  - store/sqlite: SQLite, also implements RunRecorder
*/
package attendance

import (
	"context"
	"time"
)

// Store persists the record set.
type Store interface {
	// LoadAll returns every record, ordered by date then employee.
	LoadAll(ctx context.Context) ([]Record, error)

	// SaveAll atomically replaces the stored set with records.
	SaveAll(ctx context.Context, records []Record) error
}

// EvaluationRun is an audit entry written after every recompute.
type EvaluationRun struct {
	ID           string
	Trigger      Trigger
	Records      int
	Compliant    int
	NonCompliant int
	CreatedAt    time.Time
}

type Trigger string

const (
	TriggerUpsert      Trigger = "upsert"
	TriggerDelete      Trigger = "delete"
	TriggerDeleteMonth Trigger = "delete_month"
	TriggerClear       Trigger = "clear"
	TriggerImport      Trigger = "import"
	TriggerRecompute   Trigger = "recompute"
)

// RunRecorder is implemented by stores that keep an evaluation audit log.
type RunRecorder interface {
	RecordRun(ctx context.Context, run EvaluationRun) error
	ListRuns(ctx context.Context, limit int) ([]EvaluationRun, error)
}
