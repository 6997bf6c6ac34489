package repository

import (
	"context"
	"errors"

	"ici-report/internal/domain"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// technicianChunk is the number of ids looked up per users query.
const technicianChunk = 10

// ReportsRepository reads service reports.
type ReportsRepository interface {
	GetReport(ctx context.Context, reportID string) (*domain.ServiceReport, error)
	// FindReportByPeriod returns the first report of a policy for a period id.
	FindReportByPeriod(ctx context.Context, policyID, dateStr string) (*domain.ServiceReport, error)
}

type PoliciesRepository interface {
	GetPolicy(ctx context.Context, policyID string) (*domain.Policy, error)
}

type ClientsRepository interface {
	GetClient(ctx context.Context, clientID string) (*domain.Client, error)
}

// SettingsRepository reads the provider profile. A missing profile is not an
// error: GetCompanyProfile returns nil, nil.
type SettingsRepository interface {
	GetCompanyProfile(ctx context.Context) (*domain.CompanySettings, error)
}

// DevicesRepository reads the device definition catalog.
type DevicesRepository interface {
	ListDefinitions(ctx context.Context) ([]domain.DeviceDefinition, error)
}

// UsersRepository resolves technician ids. Unknown ids are omitted.
type UsersRepository interface {
	GetTechnicians(ctx context.Context, ids []string) ([]domain.Technician, error)
}

// Store groups the repositories a report build reads from.
type Store struct {
	Reports  ReportsRepository
	Policies PoliciesRepository
	Clients  ClientsRepository
	Settings SettingsRepository
	Devices  DevicesRepository
	Users    UsersRepository
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}
	return chunks
}
