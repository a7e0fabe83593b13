/*
Package inbox imports attendance files dropped into a watched directory.

PURPOSE:
  Biometric terminals and spreadsheet exports land as files. The watcher
  picks up every .csv (transfer.ParseCSV) or .json (transfer.ParseQR) file
  created or written in the directory and merges it through
  Register.Import, which re-evaluates the affected months.

BEHAVIOUR:
  - Events for the same file are debounced on the trailing edge: a file is
    read only after it has been quiet for the debounce window, so a copy
    written in several chunks is imported once, whole.
  - A freshly created file can read as empty while the writer is still
    flushing, so reads are retried a bounded number of times.
  - A malformed file is logged and skipped. Parsing happens before Import,
    so the store is never touched by a bad file.
  - Other extensions are ignored.
*/
package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/transfer"
)

var (
	// ErrUnsupportedFile is returned for extensions other than .csv / .json.
	ErrUnsupportedFile = errors.New("unsupported inbox file type")

	// ErrEmptyFile is returned when a file stays empty through every retry.
	ErrEmptyFile = errors.New("inbox file is empty")
)

// Importer is the part of attendance.Register the watcher needs.
type Importer interface {
	Import(ctx context.Context, batch []attendance.Record) (attendance.ImportResult, error)
}

// Watcher imports files dropped into a directory.
type Watcher struct {
	dir      string
	importer Importer
	logger   *slog.Logger

	debounce   time.Duration
	retries    int
	retryDelay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for dir. A nil logger uses slog.Default().
func NewWatcher(dir string, importer Importer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:        dir,
		importer:   importer,
		logger:     logger.With(slog.String("component", "inbox"), slog.String("dir", dir)),
		debounce:   time.Second,
		retries:    50,
		retryDelay: 100 * time.Millisecond,
		pending:    make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("inbox watcher started")

	ready := make(chan string)
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if Supported(event.Name) {
				w.schedule(ctx, event.Name, ready)
			}

		case path := <-ready:
			if _, err := w.ProcessFile(ctx, path); err != nil {
				w.logger.Error("inbox import failed",
					slog.String("file", filepath.Base(path)),
					slog.Any("error", err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

// schedule (re)starts the quiet timer for path. When it fires, path is sent
// on ready and processed by the Run loop.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[path] != timer {
			// Superseded by a later event.
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Supported reports whether the watcher imports files named like path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

// ProcessFile parses one file and merges it into the register.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (attendance.ImportResult, error) {
	if !Supported(path) {
		return attendance.ImportResult{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}

	data, err := w.readLoop(ctx, path)
	if err != nil {
		return attendance.ImportResult{}, err
	}

	var batch []attendance.Record
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		batch, err = transfer.ParseCSV(bytes.NewReader(data))
	} else {
		batch, err = transfer.ParseQR(data)
	}
	if err != nil {
		return attendance.ImportResult{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	result, err := w.importer.Import(ctx, batch)
	if err != nil {
		return attendance.ImportResult{}, fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}

	w.logger.Info("inbox file imported",
		slog.String("file", filepath.Base(path)),
		slog.Int("received", result.Received),
		slog.Int("inserted", result.Inserted),
		slog.Int("replaced", result.Replaced),
		slog.String("run_id", result.Run.ID),
	)
	return result, nil
}

// readLoop reads path, retrying while it is still empty.
func (w *Watcher) readLoop(ctx context.Context, path string) ([]byte, error) {
	for i := 0; i < w.retries; i++ {
		b, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 {
			return b, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.retryDelay):
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyFile)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}
	return b, nil
}
