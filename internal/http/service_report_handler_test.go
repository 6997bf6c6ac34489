package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gocloud.dev/blob/memblob"

	"ici-report/internal/service"
	"ici-report/internal/storage"
	"ici-report/internal/store"
)

type fakeReports struct {
	got service.GenerateRequest
	err error
}

func (f *fakeReports) GenerateServiceReportPdf(_ context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.GenerateResult{Success: true, DownloadURL: "https://files/a.pdf", SizeBytes: 1234, ObjectKey: "a.pdf"}, nil
}

func (f *fakeReports) ExportWorkbook(_ context.Context, req service.GenerateRequest) ([]byte, string, error) {
	f.got = req
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("PK\x03\x04"), "pol-1_2025-01.xlsx", nil
}

type fakeJobs struct {
	statuses map[string]*store.JobStatus
}

func (f *fakeJobs) Submit(_ context.Context, req service.GenerateRequest) (*store.JobStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	st := &store.JobStatus{ID: "job-1", State: store.JobPending, ReportID: req.ReportID}
	f.statuses[st.ID] = st
	return st, nil
}

func (f *fakeJobs) Status(_ context.Context, id string) (*store.JobStatus, error) {
	if st, ok := f.statuses[id]; ok {
		return st, nil
	}
	return nil, &service.ReportError{Code: service.CodeNotFound, Message: "Trabajo no encontrado."}
}

func (f *fakeJobs) Run(context.Context, service.JobMessage) error { return nil }

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Result  json.RawMessage `json:"result"`
}

func newTestRouter(reports service.ReportService, jobs service.JobService) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterHealthRoutes()
	r.RegisterServiceReportRoutes(NewServiceReportHandler(reports, jobs, zap.NewNop()))
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestGeneratePdf_OK(t *testing.T) {
	reports := &fakeReports{}
	r := newTestRouter(reports, nil)

	rec, env := do(t, r, http.MethodPost, serviceReportsBase+"/pdf", `{"policyId":"pol-1","dateStr":"2025-01"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, "pol-1", reports.got.PolicyID)

	var res service.GenerateResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "https://files/a.pdf", res.DownloadURL)
	assert.Equal(t, 1234, res.SizeBytes)
}

func TestGeneratePdf_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"invalid", &service.ReportError{Code: service.CodeInvalidArgument, Message: "Proporciona reportId o (policyId + dateStr)."}, http.StatusBadRequest, service.CodeInvalidArgument},
		{"not found", &service.ReportError{Code: service.CodeNotFound, Message: "Reporte no encontrado."}, http.StatusNotFound, service.CodeNotFound},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, service.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeReports{err: tt.err}, nil)
			rec, env := do(t, r, http.MethodPost, serviceReportsBase+"/pdf", `{"reportId":"x"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, ResultError, env.Code)
			assert.Equal(t, tt.reason, env.Reason)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestGeneratePdf_BadBodyAndMethod(t *testing.T) {
	r := newTestRouter(&fakeReports{}, nil)

	rec, env := do(t, r, http.MethodPost, serviceReportsBase+"/pdf", `{"reportId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.CodeInvalidArgument, env.Reason)

	rec, _ = do(t, r, http.MethodPost, serviceReportsBase+"/pdf", `{"reportId":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec, _ = do(t, r, http.MethodGet, serviceReportsBase+"/pdf", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestExportXlsx_Attachment(t *testing.T) {
	r := newTestRouter(&fakeReports{}, nil)

	rec, _ := do(t, r, http.MethodPost, serviceReportsBase+"/xlsx", `{"reportId":"rep-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="pol-1_2025-01.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", rec.Body.String())
}

func TestJobs_SubmitAndPoll(t *testing.T) {
	jobs := &fakeJobs{statuses: map[string]*store.JobStatus{}}
	r := newTestRouter(&fakeReports{}, jobs)

	rec, env := do(t, r, http.MethodPost, serviceReportsBase+"/jobs", `{"reportId":"rep-1"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"jobId":"job-1","state":"pending"}`, string(env.Result))

	rec, env = do(t, r, http.MethodGet, serviceReportsBase+"/jobs/job-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var st store.JobStatus
	require.NoError(t, json.Unmarshal(env.Result, &st))
	assert.Equal(t, "rep-1", st.ReportID)

	rec, env = do(t, r, http.MethodGet, serviceReportsBase+"/jobs/other", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.CodeNotFound, env.Reason)

	rec, _ = do(t, r, http.MethodGet, serviceReportsBase+"/jobs/a/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobs_Disabled(t *testing.T) {
	r := newTestRouter(&fakeReports{}, nil)

	rec, env := do(t, r, http.MethodPost, serviceReportsBase+"/jobs", `{"reportId":"rep-1"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ResultError, env.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeReports{}, nil)

	rec, env := do(t, r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Result))
}

func TestFiles_ServeStoredDocument(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	docs := storage.NewDocumentStore(bucket, "", "", zap.NewNop())
	key, err := docs.Save(context.Background(), "generated_pdfs/pol-1/2025-01_1.pdf", []byte("%PDF-1.3 test"), "application/pdf")
	require.NoError(t, err)

	r := NewRouter(zap.NewNop())
	r.RegisterFileRoutes(NewFileHandler(docs, zap.NewNop()))

	rec, _ := do(t, r, http.MethodGet, "/files/"+key, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3 test", rec.Body.String())

	rec, _ = do(t, r, http.MethodGet, "/files/generated_pdfs/missing.pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodDelete, "/files/"+key, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
