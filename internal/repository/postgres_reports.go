package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ici-report/internal/domain"
)

// PostgresReportsRepository reads service_reports. Entries and section
// assignments are stored as jsonb.
type PostgresReportsRepository struct {
	db *sql.DB
}

func NewPostgresReportsRepository(db *sql.DB) *PostgresReportsRepository {
	return &PostgresReportsRepository{db: db}
}

var _ ReportsRepository = (*PostgresReportsRepository)(nil)

const reportColumns = `
		id,
		policy_id,
		date_str,
		service_date,
		COALESCE(start_time, '') as start_time,
		COALESCE(end_time, '') as end_time,
		assigned_technician_ids,
		COALESCE(entries, '[]'::jsonb) as entries,
		COALESCE(general_observations, '') as general_observations,
		COALESCE(provider_signature, '') as provider_signature,
		COALESCE(client_signature, '') as client_signature,
		COALESCE(provider_signer_name, '') as provider_signer_name,
		COALESCE(client_signer_name, '') as client_signer_name,
		COALESCE(section_assignments, '{}'::jsonb) as section_assignments`

func (r *PostgresReportsRepository) GetReport(ctx context.Context, reportID string) (*domain.ServiceReport, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}
	query := `SELECT` + reportColumns + `
		FROM service_reports
		WHERE id = $1`
	return scanReport(r.db.QueryRowContext(ctx, query, reportID))
}

func (r *PostgresReportsRepository) FindReportByPeriod(ctx context.Context, policyID, dateStr string) (*domain.ServiceReport, error) {
	if policyID == "" || dateStr == "" {
		return nil, fmt.Errorf("policy_id and date_str are required")
	}
	query := `SELECT` + reportColumns + `
		FROM service_reports
		WHERE policy_id = $1 AND date_str = $2
		ORDER BY id
		LIMIT 1`
	return scanReport(r.db.QueryRowContext(ctx, query, policyID, dateStr))
}

func scanReport(row *sql.Row) (*domain.ServiceReport, error) {
	var (
		rep         domain.ServiceReport
		entriesRaw  []byte
		sectionsRaw []byte
	)
	err := row.Scan(
		&rep.ID,
		&rep.PolicyID,
		&rep.DateStr,
		&rep.ServiceDate,
		&rep.StartTime,
		&rep.EndTime,
		pq.Array(&rep.AssignedTechnicianIDs),
		&entriesRaw,
		&rep.GeneralObservations,
		&rep.ProviderSignature,
		&rep.ClientSignature,
		&rep.ProviderSignerName,
		&rep.ClientSignerName,
		&sectionsRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("service report: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get service report: %w", err)
	}

	if err := json.Unmarshal(entriesRaw, &rep.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries of report %s: %w", rep.ID, err)
	}
	if err := json.Unmarshal(sectionsRaw, &rep.SectionAssignments); err != nil {
		return nil, fmt.Errorf("failed to decode section assignments of report %s: %w", rep.ID, err)
	}
	return &rep, nil
}
