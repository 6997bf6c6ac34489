package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ici-report/internal/assets"
	"ici-report/internal/domain"
	"ici-report/internal/export"
	"ici-report/internal/render"
	"ici-report/internal/repository"
	"ici-report/internal/storage"
)

const pdfContentType = "application/pdf"

// GenerateRequest selects a report by id, or by policy and period.
type GenerateRequest struct {
	ReportID string `json:"reportId"`
	PolicyID string `json:"policyId"`
	DateStr  string `json:"dateStr"`
}

// Normalize trims surrounding whitespace from every selector.
func (r GenerateRequest) Normalize() GenerateRequest {
	return GenerateRequest{
		ReportID: strings.TrimSpace(r.ReportID),
		PolicyID: strings.TrimSpace(r.PolicyID),
		DateStr:  strings.TrimSpace(r.DateStr),
	}
}

// Validate rejects requests that name neither a report nor a full period.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.ReportID) != "" {
		return nil
	}
	if strings.TrimSpace(r.PolicyID) == "" || strings.TrimSpace(r.DateStr) == "" {
		return invalidArgument("Proporciona reportId o (policyId + dateStr).")
	}
	return nil
}

// GenerateResult describes a stored document.
type GenerateResult struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl"`
	SizeBytes   int    `json:"sizeBytes"`
	ObjectKey   string `json:"objectKey"`
}

// Prefetcher resolves image references ahead of layout.
type Prefetcher interface {
	Prefetch(ctx context.Context, refs []string) *assets.Cache
}

// DocumentSink persists rendered documents.
type DocumentSink interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URL(objectKey string) string
}

var (
	_ Prefetcher   = (*assets.Prefetcher)(nil)
	_ DocumentSink = (*storage.DocumentStore)(nil)
)

// ReportService builds service report documents.
type ReportService interface {
	GenerateServiceReportPdf(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// ExportWorkbook returns the XLSX companion of a report and a file name for it.
	ExportWorkbook(ctx context.Context, req GenerateRequest) ([]byte, string, error)
}

type reportService struct {
	store      *repository.Store
	prefetcher Prefetcher
	docs       DocumentSink
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService wires a ReportService. Service dates are shown in loc.
func NewReportService(store *repository.Store, prefetcher Prefetcher, docs DocumentSink, loc *time.Location, logger *zap.Logger) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{
		store:      store,
		prefetcher: prefetcher,
		docs:       docs,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reportService) GenerateServiceReportPdf(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	started := s.now()
	in, err := s.loadInput(ctx, req)
	if err != nil {
		return nil, err
	}

	refs := assets.CollectReferences(in.Report, in.Client, in.Company)
	cache := s.prefetcher.Prefetch(ctx, refs)

	pdf, stats, err := render.Build(*in, cache, s.logger)
	if err != nil {
		return nil, internal("No se pudo generar el PDF.", err)
	}
	s.logger.Info("PDF generated",
		zap.String("report_id", in.Report.ID),
		zap.Int("size_bytes", len(pdf)),
		zap.Int("pages", stats.Pages),
		zap.Int("sections", stats.Sections),
		zap.Int("dropped_entries", stats.DroppedEntries),
	)

	key := storage.ReportKey(in.Report.PolicyID, in.Report.DateStr, s.now())
	objectKey, err := s.docs.Save(ctx, key, pdf, pdfContentType)
	if err != nil {
		return nil, internal("No se pudo guardar el PDF.", err)
	}

	s.logger.Info("PDF stored",
		zap.String("report_id", in.Report.ID),
		zap.String("object_key", objectKey),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return &GenerateResult{
		Success:     true,
		DownloadURL: s.docs.URL(objectKey),
		SizeBytes:   len(pdf),
		ObjectKey:   objectKey,
	}, nil
}

func (s *reportService) ExportWorkbook(ctx context.Context, req GenerateRequest) ([]byte, string, error) {
	in, err := s.loadInput(ctx, req)
	if err != nil {
		return nil, "", err
	}
	data, err := export.ServiceReportWorkbook(*in)
	if err != nil {
		return nil, "", internal("No se pudo generar el archivo XLSX.", err)
	}
	name := fmt.Sprintf("%s_%s.xlsx", in.Report.PolicyID, in.Report.DateStr)
	return data, name, nil
}

// loadInput resolves every record a document needs.
func (s *reportService) loadInput(ctx context.Context, req GenerateRequest) (*render.Input, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.logger.Info("Report requested",
		zap.String("report_id", req.ReportID),
		zap.String("policy_id", req.PolicyID),
		zap.String("date_str", req.DateStr),
	)

	report, err := s.loadReport(ctx, req)
	if err != nil {
		return nil, err
	}
	report.ServiceDate = report.ServiceDate.In(s.loc)

	policy, err := s.store.Policies.GetPolicy(ctx, report.PolicyID)
	if err != nil {
		return nil, lookupError(err, "Póliza no encontrada.", "load policy")
	}

	client, err := s.store.Clients.GetClient(ctx, policy.ClientID)
	if err != nil {
		return nil, lookupError(err, "Cliente no encontrado.", "load client")
	}

	company := domain.DefaultCompany()
	profile, err := s.store.Settings.GetCompanyProfile(ctx)
	if err != nil {
		return nil, internal("No se pudo leer el perfil de la empresa.", err)
	}
	if profile != nil {
		company = *profile
	} else {
		s.logger.Debug("No company profile stored, using default")
	}

	devices, err := s.store.Devices.ListDefinitions(ctx)
	if err != nil {
		return nil, internal("No se pudo leer el catálogo de dispositivos.", err)
	}

	technicians, err := s.store.Users.GetTechnicians(ctx, report.AssignedTechnicianIDs)
	if err != nil {
		return nil, internal("No se pudo leer el personal asignado.", err)
	}

	return &render.Input{
		Report:      *report,
		Policy:      *policy,
		Client:      *client,
		Company:     company,
		Devices:     devices,
		Technicians: technicians,
	}, nil
}

func (s *reportService) loadReport(ctx context.Context, req GenerateRequest) (*domain.ServiceReport, error) {
	if req.ReportID != "" {
		report, err := s.store.Reports.GetReport(ctx, req.ReportID)
		if err != nil {
			return nil, lookupError(err, "Reporte no encontrado.", "load report")
		}
		return report, nil
	}
	report, err := s.store.Reports.FindReportByPeriod(ctx, req.PolicyID, req.DateStr)
	if err != nil {
		return nil, lookupError(err, "No existe reporte para ese periodo.", "find report")
	}
	return report, nil
}

func lookupError(err error, notFoundMsg, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(notFoundMsg, err)
	}
	return internal("Error al consultar la base de datos.", fmt.Errorf("%s: %w", op, err))
}
