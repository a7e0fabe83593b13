/*
register.go - Single-writer orchestration over Store and Engine

PURPOSE:
  The Register is the only component that mutates stored records. Every
  write follows the same full-recompute path:

    load all -> apply edit -> Engine.Evaluate -> SaveAll -> record run

  Incremental re-evaluation is never attempted: quota counters depend on every
  earlier day of the month, so any edit can change any later outcome.

CONCURRENCY:
  Writers are serialised by a mutex. Readers go straight to the store, which
  guarantees they see either the old or the new set.

SEE ALSO:
  - engine.go: evaluation
  - store.go: Store and RunRecorder contracts
*/
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/calendar"
)

// Register applies edits to the stored record set.
type Register struct {
	store  Store
	engine *Engine
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewRegister wires a store and engine. A nil logger uses slog.Default().
func NewRegister(store Store, engine *Engine, logger *slog.Logger) *Register {
	if logger == nil {
		logger = slog.Default()
	}
	return &Register{
		store:  store,
		engine: engine,
		logger: logger.With(slog.String("component", "register")),
		now:    time.Now,
	}
}

func (r *Register) Engine() *Engine { return r.engine }

// ImportResult describes a merged batch.
type ImportResult struct {
	Received int
	Inserted int
	Replaced int
	Run      EvaluationRun
}

// ValidateRecord rejects records the engine must never see.
func ValidateRecord(rec Record) error {
	if rec.Date.IsZero() {
		return ErrInvalidDate
	}
	exemptions := 0
	for _, set := range []bool{rec.ClosedHoliday, rec.SpecialLeave, rec.Tour != TourNone} {
		if set {
			exemptions++
		}
	}
	if exemptions > 1 {
		return fmt.Errorf("%s: %w", calendar.FormatDate(rec.Date), ErrConflictingExemptions)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Records returns stored records matching f, sorted by date then employee.
func (r *Register) Records(ctx context.Context, f Filter) ([]Record, error) {
	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	var out []Record
	for _, rec := range all {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	SortByDate(out)
	return out, nil
}

// Summary tallies one employee's month for a class.
func (r *Register) Summary(ctx context.Context, employeeID string, month calendar.Month, class Class) (Summary, error) {
	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load records: %w", err)
	}
	return Summarize(r.engine.Policy(), all, employeeID, month, class), nil
}

// Runs lists recent evaluation runs when the store keeps them.
func (r *Register) Runs(ctx context.Context, limit int) ([]EvaluationRun, error) {
	rec, ok := r.store.(RunRecorder)
	if !ok {
		return []EvaluationRun{}, nil
	}
	return rec.ListRuns(ctx, limit)
}

// =============================================================================
// WRITES
// =============================================================================

// Upsert stores rec, overwriting any record with the same key, and returns
// the record as evaluated in context of its month.
func (r *Register) Upsert(ctx context.Context, rec Record) (Record, error) {
	if err := ValidateRecord(rec); err != nil {
		return Record{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("load records: %w", err)
	}

	evaluated, _, err := r.commit(ctx, TriggerUpsert, append(all, rec))
	if err != nil {
		return Record{}, err
	}

	key := rec.Key()
	for _, e := range evaluated {
		if e.Key() == key {
			return e, nil
		}
	}
	return Record{}, ErrRecordNotFound
}

// Delete removes the record for (employeeID, date).
func (r *Register) Delete(ctx context.Context, employeeID string, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	key := Key{EmployeeID: employeeID, Date: calendar.FormatDate(date)}
	kept := all[:0]
	for _, rec := range all {
		if rec.Key() != key {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(all) {
		return ErrRecordNotFound
	}

	_, _, err = r.commit(ctx, TriggerDelete, kept)
	return err
}

// DeleteMonth removes every record in month, limited to one employee when
// employeeID is non-nil. It returns the number removed.
func (r *Register) DeleteMonth(ctx context.Context, employeeID *string, month calendar.Month) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	f := Filter{EmployeeID: employeeID, Month: month}
	var kept []Record
	for _, rec := range all {
		if !f.Match(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if _, _, err := r.commit(ctx, TriggerDeleteMonth, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes every record.
func (r *Register) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _, err := r.commit(ctx, TriggerClear, nil)
	return err
}

// Import merges a fully parsed batch. Batch records overwrite stored records
// with the same key, and later batch entries overwrite earlier ones.
func (r *Register) Import(ctx context.Context, batch []Record) (ImportResult, error) {
	for _, rec := range batch {
		if err := ValidateRecord(rec); err != nil {
			return ImportResult{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load records: %w", err)
	}

	existing := make(map[Key]bool, len(all))
	for _, rec := range all {
		existing[rec.Key()] = true
	}
	result := ImportResult{Received: len(batch)}
	counted := make(map[Key]bool, len(batch))
	for _, rec := range batch {
		k := rec.Key()
		if counted[k] {
			continue
		}
		counted[k] = true
		if existing[k] {
			result.Replaced++
		} else {
			result.Inserted++
		}
	}

	_, run, err := r.commit(ctx, TriggerImport, append(all, batch...))
	if err != nil {
		return ImportResult{}, err
	}
	result.Run = run
	return result, nil
}

// Recompute re-evaluates and re-saves the stored set, e.g. after a policy change.
func (r *Register) Recompute(ctx context.Context) (EvaluationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return EvaluationRun{}, fmt.Errorf("load records: %w", err)
	}
	_, run, err := r.commit(ctx, TriggerRecompute, all)
	return run, err
}

// commit evaluates, saves and audits. Callers hold r.mu.
func (r *Register) commit(ctx context.Context, trigger Trigger, records []Record) ([]Record, EvaluationRun, error) {
	evaluated := r.engine.Evaluate(records)

	if err := r.store.SaveAll(ctx, evaluated); err != nil {
		return nil, EvaluationRun{}, fmt.Errorf("save records: %w", err)
	}

	run := EvaluationRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Records:   len(evaluated),
		CreatedAt: r.now().UTC(),
	}
	for _, rec := range evaluated {
		if rec.IsCompliant() {
			run.Compliant++
		} else {
			run.NonCompliant++
		}
	}

	if recorder, ok := r.store.(RunRecorder); ok {
		if err := recorder.RecordRun(ctx, run); err != nil {
			// The record set is already saved; a missing audit row is not fatal.
			r.logger.Warn("failed to record evaluation run", slog.String("run_id", run.ID), slog.Any("error", err))
		}
	}

	r.logger.Info("records evaluated",
		slog.String("run_id", run.ID),
		slog.String("trigger", string(trigger)),
		slog.Int("records", run.Records),
		slog.Int("compliant", run.Compliant),
		slog.Int("non_compliant", run.NonCompliant),
	)
	return evaluated, run, nil
}

// SortByDate orders records by date, then employee. Display helper; the
// engine itself never re-sorts its output.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].EmployeeID < records[j].EmployeeID
	})
}
