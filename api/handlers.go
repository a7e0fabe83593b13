/*
handlers.go - HTTP API handlers for the attendance compliance engine

PURPOSE:
  Exposes the attendance register via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the register,
  which owns evaluation and persistence.

ENDPOINTS:
  Records:
    GET    /api/records?employee=&month=&class=   List evaluated records
    PUT    /api/records                           Upsert one record
    DELETE /api/records                           Clear every record
    DELETE /api/records/{date}?employee=          Delete one record
    DELETE /api/months/{month}?employee=          Clear a month

  Evaluation:
    POST   /api/evaluate                          Dry-run a posted batch
    POST   /api/recompute                         Re-evaluate the stored set
    GET    /api/summary?employee=&month=&class=   Monthly tally
    GET    /api/runs?limit=                       Evaluation-run audit log
    GET    /api/policy                            Effective thresholds

  Import / export:
    POST   /api/import/csv                        CSV body
    POST   /api/import/qr                         QR JSON body
    GET    /api/export/csv?employee=&month=
    GET    /api/export/qr?employee=&month=

  Scenarios:
    GET    /api/scenarios                         List demo data sets
    GET    /api/scenarios/current                 Currently loaded data set
    POST   /api/scenarios/load                    Load a demo data set

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Register: the single writer over store and engine
  - PolicyFactory: renders the active policy as a document
  - Logger: structured logger for 5xx details

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (toRecord, parseFilter, transfer parsers)
  3. Call the register (every write is a full recompute)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid date/month/time, conflicting exemptions, malformed import row
  - 404: Record not found
  - 413: Import or dry-run body too large
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/transfer"
)

const (
	// maxUploadBytes bounds import and dry-run bodies.
	maxUploadBytes = 10 << 20

	defaultRunLimit = 50
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Register      *attendance.Register
	PolicyFactory *factory.PolicyFactory

	logger *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given register.
func NewHandler(register *attendance.Register, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Register:      register,
		PolicyFactory: factory.NewPolicyFactory(),
		logger:        logger.With(slog.String("component", "api")),
	}
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns stored records, filtered by employee, month and class.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	records, err := h.Register.Records(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list records", err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// UpsertRecord stores one record and returns it as evaluated in context of
// its month.
func (h *Handler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := toRecord(req)
	if err != nil {
		writeInvalid(w, "Invalid record", err)
		return
	}

	saved, err := h.Register.Upsert(r.Context(), rec)
	if err != nil {
		h.writeDomainError(w, "Failed to save record", err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordDTO(saved))
}

// DeleteRecord removes the record for (employee, date).
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	employee := r.URL.Query().Get("employee")
	if err := h.Register.Delete(r.Context(), employee, date); err != nil {
		h.writeDomainError(w, "Failed to delete record", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "deleted",
		"date":     calendar.FormatDate(date),
		"employee": employee,
	})
}

// DeleteMonth clears every record in a month, optionally for one employee.
func (h *Handler) DeleteMonth(w http.ResponseWriter, r *http.Request) {
	month, err := calendar.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	var employee *string
	if q := r.URL.Query(); q.Has("employee") {
		e := q.Get("employee")
		employee = &e
	}

	removed, err := h.Register.DeleteMonth(r.Context(), employee, month)
	if err != nil {
		h.writeDomainError(w, "Failed to delete month", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "deleted",
		"month":   month.String(),
		"removed": removed,
	})
}

// ClearRecords removes every stored record.
func (h *Handler) ClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.Register.Clear(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to clear records", err)
		return
	}
	h.setCurrentScenario("")

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// Evaluate runs the engine over a posted batch without storing it. The
// response is grouped by employee, class and month, in date order within
// each group, exactly as the engine returns it.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var reqs []RecordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&reqs); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.writeDomainError(w, "Request body too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	batch := make([]attendance.Record, 0, len(reqs))
	for i, req := range reqs {
		rec, err := toRecord(req)
		if err != nil {
			writeInvalid(w, fmt.Sprintf("Invalid record at index %d", i), err)
			return
		}
		batch = append(batch, rec)
	}

	writeJSON(w, http.StatusOK, toRecordDTOs(h.Register.Engine().Evaluate(batch)))
}

// Recompute re-evaluates the stored set under the active policy.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	run, err := h.Register.Recompute(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to recompute", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// GetSummary returns the monthly tally for one employee and class.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := calendar.ParseMonth(q.Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	summary, err := h.Register.Summary(r.Context(), q.Get("employee"), month, attendance.NormalizeClass(q.Get("class")))
	if err != nil {
		h.writeDomainError(w, "Failed to build summary", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ListRuns returns recent evaluation runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Register.Runs(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns the thresholds the engine is evaluating with.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToDocument(h.Register.Engine().Policy()))
}

// =============================================================================
// IMPORT / EXPORT HANDLERS
// =============================================================================

// ImportCSV merges a CSV body. The whole payload is parsed first; one bad
// row rejects the request and leaves the store untouched.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	batch, err := transfer.ParseCSV(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.writeDomainError(w, "Invalid CSV payload", err)
		return
	}
	h.importBatch(w, r, batch)
}

// ImportQR merges a QR JSON body, compact or verbose.
func (h *Handler) ImportQR(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.writeDomainError(w, "Failed to read body", err)
		return
	}

	batch, err := transfer.ParseQR(data)
	if err != nil {
		h.writeDomainError(w, "Invalid QR payload", err)
		return
	}
	h.importBatch(w, r, batch)
}

func (h *Handler) importBatch(w http.ResponseWriter, r *http.Request, batch []attendance.Record) {
	result, err := h.Register.Import(r.Context(), batch)
	if err != nil {
		h.writeDomainError(w, "Failed to import records", err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResultDTO(result))
}

// ExportCSV writes the filtered records as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, records, ok := h.exportRecords(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := transfer.WriteCSV(&buf, records); err != nil {
		h.writeDomainError(w, "Failed to encode CSV", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(filter, "csv")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportQR writes the filtered records in the compact QR form.
func (h *Handler) ExportQR(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.exportRecords(w, r)
	if !ok {
		return
	}

	data, err := transfer.EncodeQR(records)
	if err != nil {
		h.writeDomainError(w, "Failed to encode QR payload", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) exportRecords(w http.ResponseWriter, r *http.Request) (attendance.Filter, []attendance.Record, bool) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return filter, nil, false
	}

	records, err := h.Register.Records(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to load records", err)
		return filter, nil, false
	}
	return filter, records, true
}

func exportName(f attendance.Filter, ext string) string {
	parts := []string{"attendance"}
	if f.EmployeeID != nil && *f.EmployeeID != "" {
		parts = append(parts, *f.EmployeeID)
	}
	if !f.Month.IsZero() {
		parts = append(parts, f.Month.String())
	}
	return strings.Join(parts, "-") + "." + ext
}

// =============================================================================
// HELPERS
// =============================================================================

// parseFilter reads ?employee=&month=&class=. An absent employee parameter
// matches every employee; a present but empty one matches the unnamed
// single-employee records.
func parseFilter(r *http.Request) (attendance.Filter, error) {
	q := r.URL.Query()
	var f attendance.Filter

	if q.Has("employee") {
		e := q.Get("employee")
		f.EmployeeID = &e
	}
	if s := q.Get("month"); s != "" {
		month, err := calendar.ParseMonth(s)
		if err != nil {
			return f, fmt.Errorf("%w: %v", attendance.ErrInvalidMonth, err)
		}
		f.Month = month
	}
	if s := q.Get("class"); s != "" {
		f.Class = attendance.NormalizeClass(s)
	}
	return f, nil
}

// writeDomainError maps register, store and transfer errors to a status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var (
		rowErr   *transfer.RowError
		maxBytes *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	case attendance.IsNotFound(err):
		status = http.StatusNotFound
	case attendance.IsClientError(err),
		errors.As(err, &rowErr),
		errors.Is(err, transfer.ErrMissingHeader),
		errors.Is(err, transfer.ErrInvalidTime),
		errors.Is(err, transfer.ErrInvalidFlag),
		errors.Is(err, transfer.ErrInvalidQR):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, slog.Any("error", err))
	}
	writeError(w, status, message, err)
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) getCurrentScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
