package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"ici-report/internal/domain"
)

// Fixture is the JSON document a MemoryStore is seeded from.
type Fixture struct {
	Reports  []domain.ServiceReport    `json:"reports"`
	Policies []domain.Policy           `json:"policies"`
	Clients  []domain.Client           `json:"clients"`
	Company  *domain.CompanySettings   `json:"company,omitempty"`
	Devices  []domain.DeviceDefinition `json:"devices"`
	Users    []domain.Technician       `json:"users"`
}

// LoadFixture reads a Fixture from a JSON file.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read fixture: %w", err)
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return f, nil
}

// MemoryStore serves every repository from memory. It backs local runs
// without a database and the service tests.
type MemoryStore struct {
	mu       sync.RWMutex
	reports  []domain.ServiceReport
	policies map[string]domain.Policy
	clients  map[string]domain.Client
	company  *domain.CompanySettings
	devices  []domain.DeviceDefinition
	users    map[string]domain.Technician
}

var (
	_ ReportsRepository  = (*MemoryStore)(nil)
	_ PoliciesRepository = (*MemoryStore)(nil)
	_ ClientsRepository  = (*MemoryStore)(nil)
	_ SettingsRepository = (*MemoryStore)(nil)
	_ DevicesRepository  = (*MemoryStore)(nil)
	_ UsersRepository    = (*MemoryStore)(nil)
)

func NewMemoryStore(f Fixture) *MemoryStore {
	m := &MemoryStore{
		reports:  append([]domain.ServiceReport(nil), f.Reports...),
		policies: map[string]domain.Policy{},
		clients:  map[string]domain.Client{},
		company:  f.Company,
		devices:  append([]domain.DeviceDefinition(nil), f.Devices...),
		users:    map[string]domain.Technician{},
	}
	for _, p := range f.Policies {
		m.policies[p.ID] = p
	}
	for _, c := range f.Clients {
		m.clients[c.ID] = c
	}
	for _, u := range f.Users {
		m.users[u.ID] = u
	}
	return m
}

// Store exposes the memory store through the Store aggregate.
func (m *MemoryStore) Store() *Store {
	return &Store{Reports: m, Policies: m, Clients: m, Settings: m, Devices: m, Users: m}
}

func (m *MemoryStore) GetReport(_ context.Context, reportID string) (*domain.ServiceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reports {
		if r.ID == reportID {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("service report: %w", ErrNotFound)
}

func (m *MemoryStore) FindReportByPeriod(_ context.Context, policyID, dateStr string) (*domain.ServiceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reports {
		if r.PolicyID == policyID && r.DateStr == dateStr {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("service report: %w", ErrNotFound)
}

func (m *MemoryStore) GetPolicy(_ context.Context, policyID string) (*domain.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[policyID]
	if !ok {
		return nil, fmt.Errorf("policy: %w", ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) GetClient(_ context.Context, clientID string) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client: %w", ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) GetCompanyProfile(_ context.Context) (*domain.CompanySettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.company == nil {
		return nil, nil
	}
	c := *m.company
	return &c, nil
}

func (m *MemoryStore) ListDefinitions(_ context.Context) ([]domain.DeviceDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DeviceDefinition(nil), m.devices...), nil
}

func (m *MemoryStore) GetTechnicians(_ context.Context, ids []string) ([]domain.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Technician
	for _, chunk := range chunkIDs(ids, technicianChunk) {
		for _, id := range chunk {
			if u, ok := m.users[id]; ok {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// PutReport adds or replaces a report.
func (m *MemoryStore) PutReport(r domain.ServiceReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reports {
		if m.reports[i].ID == r.ID {
			m.reports[i] = r
			return
		}
	}
	m.reports = append(m.reports, r)
}
