package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ici-report/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ServiceReportHandler exposes report generation over HTTP. jobs may be nil
// when the queue is disabled.
type ServiceReportHandler struct {
	reports service.ReportService
	jobs    service.JobService
	logger  *zap.Logger
}

func NewServiceReportHandler(reports service.ReportService, jobs service.JobService, logger *zap.Logger) *ServiceReportHandler {
	return &ServiceReportHandler{reports: reports, jobs: jobs, logger: logger}
}

func (h *ServiceReportHandler) GeneratePdf(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	res, err := h.reports.GenerateServiceReportPdf(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *ServiceReportHandler) ExportXlsx(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	data, name, err := h.reports.ExportWorkbook(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ServiceReportHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("Cola de trabajos deshabilitada."))
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	st, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(map[string]any{"jobId": st.ID, "state": st.State}))
}

func (h *ServiceReportHandler) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	if h.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("Cola de trabajos deshabilitada."))
		return
	}
	st, err := h.jobs.Status(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *ServiceReportHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (service.GenerateRequest, bool) {
	var req service.GenerateRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, FailWithReason("Cuerpo de la solicitud inválido.", service.CodeInvalidArgument))
		return req, false
	}
	return req, true
}

func (h *ServiceReportHandler) writeError(w http.ResponseWriter, err error) {
	code := service.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case service.CodeInvalidArgument:
		status = http.StatusBadRequest
	case service.CodeNotFound:
		status = http.StatusNotFound
	default:
		h.logger.Error("Service report request failed", zap.Error(err))
	}
	writeJSON(w, status, FailWithReason(service.MessageOf(err), code))
}
