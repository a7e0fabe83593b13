/*
handlers_test.go - HTTP tests for the attendance API

Tests for:
- Record upsert / list / delete, including quota effects on later days
- Month clear and full clear
- Dry-run evaluation
- CSV and QR import (whole-payload rejection) and export
- Summary, runs and policy endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/store/memory"
	"github.com/warp/attendance-engine/transfer"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := attendance.NewRegister(memory.New(), attendance.NewEngine(attendance.DefaultPolicy()), logger)
	h := NewHandler(reg, logger)
	srv := httptest.NewServer(NewRouter(h, RouterOptions{Logger: logger}))
	t.Cleanup(srv.Close)
	return srv, h
}

func do(t *testing.T, srv *httptest.Server, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return do(t, srv, method, path, "application/json", payload)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func put(t *testing.T, srv *httptest.Server, req RecordRequest) RecordDTO {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPut, "/api/records", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[RecordDTO](t, resp)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// RECORDS
// =============================================================================

func TestUpsertRecord_ReturnsEvaluated(t *testing.T) {
	srv, _ := newTestServer(t)

	// WHEN: a faculty late-compensation day is stored
	got := put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "fac-1", Class: "Teaching", In: "09:45 AM", Out: "06:15 PM"})

	// THEN: derived fields come back with it
	assert.Equal(t, "2025-03-03", got.Date)
	assert.Equal(t, "faculty", got.Class)
	assert.Equal(t, "Teaching", got.ClassLabel)
	assert.Equal(t, "8.50", got.Hours)
	assert.Equal(t, "Compliant", got.Status)
	assert.Equal(t, "Late Compensation", got.Reason)
}

func TestUpsertRecord_ReplacesSameKeyAndReevaluatesMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	// GIVEN: three relaxation-eligible faculty days; the third is rejected
	for _, d := range []string{"2025-03-03", "2025-03-04", "2025-03-05"} {
		put(t, srv, RecordRequest{Date: d, Employee: "fac-1", In: "09:30 AM", Out: "05:30 PM"})
	}
	resp := doJSON(t, srv, http.MethodGet, "/api/records?employee=fac-1", nil)
	records := decode[[]RecordDTO](t, resp)
	require.Len(t, records, 3)
	assert.Equal(t, "Reject", records[2].Reason)

	// WHEN: the first day is corrected to on time
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "fac-1", In: "09:00 AM", Out: "05:30 PM"})

	// THEN: the freed quota flows to the third day and no duplicate appears
	resp = doJSON(t, srv, http.MethodGet, "/api/records?employee=fac-1", nil)
	records = decode[[]RecordDTO](t, resp)
	require.Len(t, records, 3)
	assert.Equal(t, "On-Time", records[0].Reason)
	assert.Equal(t, "Semimonthly Relaxation", records[1].Reason)
	assert.Equal(t, "Semimonthly Relaxation", records[2].Reason)
}

func TestUpsertRecord_Rejections(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body any
	}{
		{"bad json", "not-an-object"},
		{"missing date", RecordRequest{In: "09:00 AM"}},
		{"bad date", RecordRequest{Date: "03/03/2025"}},
		{"bad punch", RecordRequest{Date: "2025-03-03", In: "nine"}},
		{"two exemptions", RecordRequest{Date: "2025-03-03", ClosedHoliday: true, SpecialLeave: true}},
	}
	for _, tc := range cases {
		resp := doJSON(t, srv, http.MethodPut, "/api/records", tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.name)
		errResp := decode[ErrorResponse](t, resp)
		assert.NotEmpty(t, errResp.Error, tc.name)
	}
}

func TestUpsertRecord_ValidationFieldsUseJSONNames(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPut, "/api/records", RecordRequest{Date: "2025/03/03", Employee: strings.Repeat("x", 65)})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "datetime", errResp.Fields["date"])
	assert.Equal(t, "max", errResp.Fields["employee"])
}

func TestListRecords_Filters(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-04-01", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "b", Class: "staff", In: "09:00 AM", Out: "05:30 PM"})

	count := func(query string) int {
		resp := doJSON(t, srv, http.MethodGet, "/api/records"+query, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, query)
		return len(decode[[]RecordDTO](t, resp))
	}

	assert.Equal(t, 3, count(""))
	assert.Equal(t, 2, count("?employee=a"))
	assert.Equal(t, 2, count("?month=2025-03"))
	assert.Equal(t, 1, count("?month=2025-03&class=Non-Teaching"))
	assert.Equal(t, 0, count("?employee="))

	resp := doJSON(t, srv, http.MethodGet, "/api/records?month=March", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRecord(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})

	resp := doJSON(t, srv, http.MethodDelete, "/api/records/2025-03-03?employee=a", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodDelete, "/api/records/2025-03-03?employee=a", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodDelete, "/api/records/yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteMonthAndClear(t *testing.T) {
	srv, h := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-03-04", Employee: "b", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-04-01", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})

	// WHEN: one employee's March is cleared
	resp := doJSON(t, srv, http.MethodDelete, "/api/months/2025-03?employee=a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, body["removed"])

	// THEN: the other employee and other months remain
	remaining, err := h.Register.Records(context.Background(), attendance.Filter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	resp = doJSON(t, srv, http.MethodDelete, "/api/months/2025-13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// WHEN: everything is cleared
	resp = doJSON(t, srv, http.MethodDelete, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	remaining, err = h.Register.Records(context.Background(), attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestEvaluate_DryRunDoesNotStore(t *testing.T) {
	srv, h := newTestServer(t)

	batch := []RecordRequest{
		{Date: "2025-03-05", In: "09:30 AM", Out: "05:30 PM"},
		{Date: "2025-03-03", In: "09:30 AM", Out: "05:30 PM"},
		{Date: "2025-03-04", In: "09:30 AM", Out: "05:30 PM"},
	}
	resp := doJSON(t, srv, http.MethodPost, "/api/evaluate", batch)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]RecordDTO](t, resp)
	require.Len(t, got, 3)
	// The quota is spent in date order regardless of the posted order.
	assert.Equal(t, "2025-03-03", got[0].Date)
	assert.Equal(t, "Semimonthly Relaxation", got[0].Reason)
	assert.Equal(t, "Semimonthly Relaxation", got[1].Reason)
	assert.Equal(t, "2025-03-05", got[2].Date)
	assert.Equal(t, "Reject", got[2].Reason)

	stored, err := h.Register.Records(context.Background(), attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEvaluate_RejectsBadRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/evaluate", []RecordRequest{{Date: "2025-03-03"}, {Date: ""}})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Error, "index 1")
}

func TestEvaluate_OversizedBodyIsRejected(t *testing.T) {
	_, h := newTestServer(t)

	// GIVEN: a batch just past the upload cap
	body := `[{"date":"` + strings.Repeat("x", maxUploadBytes) + `"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	// WHEN
	h.Evaluate(rec, req)

	// THEN
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "s", Class: "staff", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-03-04", Employee: "s", Class: "staff", ClosedHoliday: true})

	resp := doJSON(t, srv, http.MethodGet, "/api/summary?employee=s&month=2025-03&class=staff", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decode[SummaryDTO](t, resp)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.OnTime)
	assert.Equal(t, 1, s.ClosedHoliday)
	assert.Equal(t, 21, s.WorkingDays)
	assert.Equal(t, 6, s.TypeIILimit)
	assert.Equal(t, 2, s.RelaxationLimit)
	assert.Equal(t, "8.50", s.TotalHours)

	resp = doJSON(t, srv, http.MethodGet, "/api/summary?employee=s", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunsAndRecompute(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", In: "09:00 AM", Out: "05:30 PM"})

	resp := doJSON(t, srv, http.MethodPost, "/api/recompute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[RunDTO](t, resp)
	assert.Equal(t, "recompute", run.Trigger)
	assert.Equal(t, 1, run.Compliant)

	resp = doJSON(t, srv, http.MethodGet, "/api/runs?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runs := decode[[]RunDTO](t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	resp = doJSON(t, srv, http.MethodGet, "/api/runs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPolicy(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/policy", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decode[factory.PolicyDocument](t, resp)
	require.NotNil(t, doc.Faculty)
	require.NotNil(t, doc.Staff)
	assert.Equal(t, "09:10 AM", doc.Faculty.GraceEnd)
	assert.Equal(t, "10:00 AM", doc.Staff.TypeIICeiling)
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

func TestImportCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", In: "10:45 AM", Out: "05:30 PM"})

	csvBody := "Date,Emp,In,Out\n2025-03-03,Teaching,09:00 AM,05:30 PM\n2025-03-04,Teaching,09:05 AM,05:30 PM\n"
	resp := do(t, srv, http.MethodPost, "/api/import/csv", "text/csv", []byte(csvBody))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[ImportResultDTO](t, resp)
	assert.Equal(t, 2, res.Received)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, "import", res.Run.Trigger)
	assert.Equal(t, 2, res.Run.Records)
}

func TestImportCSV_BadRowRejectsWholePayload(t *testing.T) {
	srv, h := newTestServer(t)

	csvBody := "Date,In,Out\n2025-03-03,09:00 AM,05:30 PM\n2025-03-04,soon,05:30 PM\n"
	resp := do(t, srv, http.MethodPost, "/api/import/csv", "text/csv", []byte(csvBody))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Details, "row 3")

	stored, err := h.Register.Records(context.Background(), attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, stored)

	resp = do(t, srv, http.MethodPost, "/api/import/csv", "text/csv", []byte("Employee,In\nx,09:00 AM\n"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportQR(t *testing.T) {
	srv, _ := newTestServer(t)

	payload := `[["2025-03-03","s-1","S","09:45 AM","06:15 PM","",0],{"date":"2025-03-04","employee":"s-1","empType":"S","closedHoliday":true}]`
	resp := do(t, srv, http.MethodPost, "/api/import/qr", "application/json", []byte(payload))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[ImportResultDTO](t, resp).Inserted)

	resp = doJSON(t, srv, http.MethodGet, "/api/records?employee=s-1", nil)
	records := decode[[]RecordDTO](t, resp)
	require.Len(t, records, 2)
	assert.Equal(t, "Late Compensation Type II", records[0].Reason)
	assert.Equal(t, "Closed Holiday", records[1].Reason)

	resp = do(t, srv, http.MethodPost, "/api/import/qr", "application/json", []byte(`{"not":"a list"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportCSV_RoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "a", In: "09:00 AM", Out: "05:30 PM"})
	put(t, srv, RecordRequest{Date: "2025-03-04", Employee: "a", Tour: "L", In: "09:00 AM"})

	resp := do(t, srv, http.MethodGet, "/api/export/csv?employee=a&month=2025-03", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attendance-a-2025-03.csv")

	records, err := transfer.ParseCSV(resp.Body)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.TourLocal, records[1].Tour)
}

func TestExportQR(t *testing.T) {
	srv, _ := newTestServer(t)
	put(t, srv, RecordRequest{Date: "2025-03-03", Employee: "a", Class: "staff", In: "09:00 AM", Out: "05:30 PM"})

	resp := do(t, srv, http.MethodGet, "/api/export/qr", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	records, err := transfer.ParseQR(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.ClassStaff, records[0].Class)
}
