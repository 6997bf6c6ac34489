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

// PostgresPoliciesRepository reads policies; devices are a jsonb array.
type PostgresPoliciesRepository struct {
	db *sql.DB
}

func NewPostgresPoliciesRepository(db *sql.DB) *PostgresPoliciesRepository {
	return &PostgresPoliciesRepository{db: db}
}

var _ PoliciesRepository = (*PostgresPoliciesRepository)(nil)

func (r *PostgresPoliciesRepository) GetPolicy(ctx context.Context, policyID string) (*domain.Policy, error) {
	query := `
		SELECT
			id,
			client_id,
			COALESCE(devices, '[]'::jsonb) as devices
		FROM policies
		WHERE id = $1
	`
	var (
		p          domain.Policy
		devicesRaw []byte
	)
	err := r.db.QueryRowContext(ctx, query, policyID).Scan(&p.ID, &p.ClientID, &devicesRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("policy: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	if err := json.Unmarshal(devicesRaw, &p.Devices); err != nil {
		return nil, fmt.Errorf("failed to decode devices of policy %s: %w", p.ID, err)
	}
	return &p, nil
}

// PostgresClientsRepository reads clients.
type PostgresClientsRepository struct {
	db *sql.DB
}

func NewPostgresClientsRepository(db *sql.DB) *PostgresClientsRepository {
	return &PostgresClientsRepository{db: db}
}

var _ ClientsRepository = (*PostgresClientsRepository)(nil)

func (r *PostgresClientsRepository) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
		SELECT
			id,
			name,
			COALESCE(razon_social, '') as razon_social,
			COALESCE(nombre_contacto, '') as nombre_contacto,
			COALESCE(contact, '') as contact,
			COALESCE(address, '') as address,
			COALESCE(logo_url, '') as logo_url
		FROM clients
		WHERE id = $1
	`
	var c domain.Client
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(
		&c.ID, &c.Name, &c.LegalName, &c.ContactName, &c.Contact, &c.Address, &c.LogoURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// PostgresSettingsRepository reads the single company profile row.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

const companyProfileKey = "company_profile"

func (r *PostgresSettingsRepository) GetCompanyProfile(ctx context.Context) (*domain.CompanySettings, error) {
	query := `
		SELECT
			COALESCE(name, '') as name,
			COALESCE(legal_name, '') as legal_name,
			COALESCE(address, '') as address,
			COALESCE(phone, '') as phone,
			COALESCE(email, '') as email,
			COALESCE(logo_url, '') as logo_url
		FROM company_settings
		WHERE profile_key = $1
	`
	var s domain.CompanySettings
	err := r.db.QueryRowContext(ctx, query, companyProfileKey).Scan(
		&s.Name, &s.LegalName, &s.Address, &s.Phone, &s.Email, &s.LogoURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company profile: %w", err)
	}
	return &s, nil
}

// PostgresDevicesRepository reads device_definitions; activities are jsonb.
type PostgresDevicesRepository struct {
	db *sql.DB
}

func NewPostgresDevicesRepository(db *sql.DB) *PostgresDevicesRepository {
	return &PostgresDevicesRepository{db: db}
}

var _ DevicesRepository = (*PostgresDevicesRepository)(nil)

func (r *PostgresDevicesRepository) ListDefinitions(ctx context.Context) ([]domain.DeviceDefinition, error) {
	query := `
		SELECT
			id,
			name,
			COALESCE(view_mode, '') as view_mode,
			COALESCE(activities, '[]'::jsonb) as activities
		FROM device_definitions
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list device definitions: %w", err)
	}
	defer rows.Close()

	var defs []domain.DeviceDefinition
	for rows.Next() {
		var (
			d      domain.DeviceDefinition
			actRaw []byte
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.ViewMode, &actRaw); err != nil {
			return nil, fmt.Errorf("failed to scan device definition: %w", err)
		}
		if err := json.Unmarshal(actRaw, &d.Activities); err != nil {
			return nil, fmt.Errorf("failed to decode activities of %s: %w", d.ID, err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device definitions: %w", err)
	}
	return defs, nil
}

// PostgresUsersRepository resolves technicians from users.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

// GetTechnicians queries ids in chunks of technicianChunk.
func (r *PostgresUsersRepository) GetTechnicians(ctx context.Context, ids []string) ([]domain.Technician, error) {
	query := `
		SELECT
			id,
			COALESCE(name, '') as name,
			COALESCE(email, '') as email
		FROM users
		WHERE id = ANY($1)
	`
	var out []domain.Technician
	for _, chunk := range chunkIDs(ids, technicianChunk) {
		rows, err := r.db.QueryContext(ctx, query, pq.Array(chunk))
		if err != nil {
			return nil, fmt.Errorf("failed to query technicians: %w", err)
		}
		for rows.Next() {
			var t domain.Technician
			if err := rows.Scan(&t.ID, &t.Name, &t.Email); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan technician: %w", err)
			}
			out = append(out, t)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate technicians: %w", err)
		}
	}
	return out, nil
}

// NewPostgresStore wires every repository to db.
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Reports:  NewPostgresReportsRepository(db),
		Policies: NewPostgresPoliciesRepository(db),
		Clients:  NewPostgresClientsRepository(db),
		Settings: NewPostgresSettingsRepository(db),
		Devices:  NewPostgresDevicesRepository(db),
		Users:    NewPostgresUsersRepository(db),
	}
}
