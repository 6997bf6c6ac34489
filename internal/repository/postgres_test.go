package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ici-report/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var reportCols = []string{
	"id", "policy_id", "date_str", "service_date", "start_time", "end_time", "assigned_technician_ids",
	"entries", "general_observations", "provider_signature", "client_signature",
	"provider_signer_name", "client_signer_name", "section_assignments",
}

func TestGetReport_DecodesArraysAndJSONB(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReportsRepository(db)

	served := time.Date(2025, 1, 5, 15, 0, 0, 0, time.UTC)
	entries := `[{"instanceId":"pd-ext_0","customId":"EXT-01","area":"Lobby",
		"results":{"a1":"OK","a2":null},"activityData":{"a1":{"photoUrls":["p1"],"observations":"ok"}}}]`
	rows := sqlmock.NewRows(reportCols).AddRow(
		"rep-1", "pol-1", "2025-01", served, "09:00", "", "{u1,u2}",
		[]byte(entries), "", "", "", "", "", []byte(`{"def-ext":["u1"]}`),
	)
	mock.ExpectQuery(`FROM service_reports`).
		WithArgs("rep-1").
		WillReturnRows(rows)

	rep, err := repo.GetReport(context.Background(), "rep-1")

	require.NoError(t, err)
	assert.Equal(t, "pol-1", rep.PolicyID)
	assert.True(t, served.Equal(rep.ServiceDate))
	assert.Equal(t, []string{"u1", "u2"}, rep.AssignedTechnicianIDs)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, domain.StatusOK, rep.Entries[0].Results["a1"])
	assert.True(t, rep.Entries[0].HasResult("a2"))
	assert.Equal(t, []string{"p1"}, rep.Entries[0].ActivityData["a1"].PhotoURLs)
	assert.Equal(t, []string{"u1"}, rep.SectionAssignments["def-ext"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReportsRepository(db)

	mock.ExpectQuery(`FROM service_reports`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(reportCols))

	_, err := repo.GetReport(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindReportByPeriod_QueriesPolicyAndDate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReportsRepository(db)

	rows := sqlmock.NewRows(reportCols).AddRow(
		"rep-9", "pol-1", "2025-W03", time.Now(), "", "", nil,
		[]byte(`[]`), "Sin novedades", "", "", "", "", []byte(`{}`),
	)
	mock.ExpectQuery(`WHERE policy_id = \$1 AND date_str = \$2`).
		WithArgs("pol-1", "2025-W03").
		WillReturnRows(rows)

	rep, err := repo.FindReportByPeriod(context.Background(), "pol-1", "2025-W03")

	require.NoError(t, err)
	assert.Equal(t, "rep-9", rep.ID)
	assert.Empty(t, rep.AssignedTechnicianIDs)
	assert.Equal(t, "Sin novedades", rep.GeneralObservations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPolicy_DecodesDevices(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPoliciesRepository(db)

	rows := sqlmock.NewRows([]string{"id", "client_id", "devices"}).
		AddRow("pol-1", "cli-1", []byte(`[{"instanceId":"pd-ext","definitionId":"def-ext","quantity":3}]`))
	mock.ExpectQuery(`FROM policies`).
		WithArgs("pol-1").
		WillReturnRows(rows)

	p, err := repo.GetPolicy(context.Background(), "pol-1")

	require.NoError(t, err)
	require.Len(t, p.Devices, 1)
	assert.Equal(t, "def-ext", p.Devices[0].DefinitionID)
	assert.Equal(t, 3, p.Devices[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClient_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresClientsRepository(db)

	mock.ExpectQuery(`FROM clients`).
		WithArgs("cli-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "razon_social", "nombre_contacto", "contact", "address", "logo_url"}))

	_, err := repo.GetClient(context.Background(), "cli-x")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompanyProfile_MissingIsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSettingsRepository(db)

	mock.ExpectQuery(`FROM company_settings`).
		WithArgs(companyProfileKey).
		WillReturnRows(sqlmock.NewRows([]string{"name", "legal_name", "address", "phone", "email", "logo_url"}))

	s, err := repo.GetCompanyProfile(context.Background())

	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefinitions_KeepsActivityOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDevicesRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "view_mode", "activities"}).
		AddRow("def-ext", "Extintor", "", []byte(`[{"id":"a2","frequency":"Frequency.ANUAL"},{"id":"a1"}]`)).
		AddRow("def-lamp", "Lámpara", "list", []byte(`[]`))
	mock.ExpectQuery(`FROM device_definitions`).WillReturnRows(rows)

	defs, err := repo.ListDefinitions(context.Background())

	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a2", defs[0].Activities[0].ID)
	assert.Equal(t, "ANUAL", defs[0].Activities[0].FrequencyLabel())
	assert.True(t, defs[1].IsListView())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTechnicians_QueriesInChunks(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, fmt.Sprintf("u%d", i))
	}

	mock.ExpectQuery(`FROM users`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("u0", "Ana", "ana@example.com").
			AddRow("u3", "Luis", ""))
	mock.ExpectQuery(`FROM users`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("u11", "Eva", ""))

	techs, err := repo.GetTechnicians(context.Background(), ids)

	require.NoError(t, err)
	require.Len(t, techs, 3)
	assert.Equal(t, "Eva", techs[2].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTechnicians_NoIDsNoQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	techs, err := repo.GetTechnicians(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, techs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
