package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

func newMock(t *testing.T) (*Repos, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "pgx")), mock
}

var (
	june  = time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	kwh12 = 1.2
)

func TestGetInstallation_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM installations WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetInstallation(context.Background(), 9)

	assert.ErrorIs(t, err, domain.ErrInstallationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInstallation_WithPanels(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM installations WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "name", "longitude", "latitude",
			"pvgis_enabled", "pvgis_radiation_database", "pvgis_mounting_type", "pvgis_pv_technology", "open_meteo_enabled",
		}).AddRow(3, 11, "roof", 8.5, 47.3, true, "PVGIS-SARAH3", "0", "crystSi", false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM panels WHERE installation_id = $1 ORDER BY position, id")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "peak_power", "slope", "azimuth", "system_loss"}).
			AddRow("south", 4.2, 35.0, 0.0, 14.0).
			AddRow("west", 2.0, 20.0, 90.0, 10.0))

	inst, err := repo.GetInstallation(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "roof", inst.Name)
	assert.True(t, inst.PVGIS.Enabled)
	assert.Equal(t, "PVGIS-SARAH3", inst.PVGIS.RadiationDatabase)
	assert.False(t, inst.OpenMeteo.Enabled)
	require.Len(t, inst.Panels, 2)
	assert.Equal(t, "west", inst.Panels[1].ID)
	assert.Equal(t, 90.0, inst.Panels[1].Azimuth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEntries_Batch(t *testing.T) {
	repo, mock := newMock(t)
	src := domain.ProviderPVGIS
	entries := []domain.ProductionEntry{
		{InstallationID: 1, From: june, To: june.Add(time.Hour), MeasuredKWh: 1, EstimatedKWh: &kwh12, EstimateSource: &src},
		{InstallationID: 1, From: june.Add(time.Hour), To: june.Add(2 * time.Hour), MeasuredKWh: 2},
	}
	mock.ExpectExec("INSERT INTO production_entries").
		WithArgs(
			int64(1), june, june.Add(time.Hour), 1.0, 1.2, "pvgis", nil,
			int64(1), june.Add(time.Hour), june.Add(2*time.Hour), 2.0, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.InsertEntries(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEntries_EmptyIsNoop(t *testing.T) {
	repo, mock := newMock(t)
	require.NoError(t, repo.InsertEntries(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries_ScansNullableEstimate(t *testing.T) {
	repo, mock := newMock(t)
	cols := []string{"id", "installation_id", "starts_at", "ends_at", "measured_kwh", "estimated_kwh", "estimate_source", "estimated_loss"}
	mock.ExpectQuery(regexp.QuoteMeta("starts_at >= $2 AND ends_at <= $3")).
		WithArgs(int64(1), june, june.Add(3*time.Hour)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(10, 1, june, june.Add(time.Hour), 1.0, 1.2, "open_meteo", 16.6).
			AddRow(11, 1, june.Add(time.Hour), june.Add(2*time.Hour), 2.0, nil, nil, nil))

	out, err := repo.ListEntries(context.Background(), 1, june, june.Add(3*time.Hour))

	require.NoError(t, err)
	require.Len(t, out, 2)
	require.True(t, out[0].HasEstimate())
	assert.Equal(t, domain.ProviderOpenMeteo, *out[0].EstimateSource)
	assert.False(t, out[1].HasEstimate())
	assert.Nil(t, out[1].EstimatedLoss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEntries_ReturnsCount(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("DELETE FROM production_entries").
		WithArgs(int64(1), june, june.Add(24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteEntries(context.Background(), 1, june, june.Add(24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEstimate_MissingRow(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("UPDATE production_entries").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateEstimate(context.Background(), domain.ProductionEntry{ID: 5, InstallationID: 1})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_CommitsRebuild(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM monthly_statistics").WithArgs(int64(1), 2021, 2021).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO monthly_statistics").
		WithArgs(int64(1), 2021, 6, 3.0, 1.2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		if err := tx.LockInstallation(context.Background(), 1); err != nil {
			return err
		}
		if err := tx.DeleteMonthlyStats(context.Background(), 1, 2021, 2021); err != nil {
			return err
		}
		return tx.InsertMonthlyStats(context.Background(), []domain.MonthlyStatistic{
			{InstallationID: 1, Year: 2021, Month: 6, MeasuredKWh: 3, EstimatedKWh: &kwh12},
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	repo, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM monthly_statistics").WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		return tx.DeleteMonthlyStats(context.Background(), 1, 2021, 2022)
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMonthlyStats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM monthly_statistics").
		WithArgs(int64(1), 2020, 2021).
		WillReturnRows(sqlmock.NewRows([]string{"installation_id", "year", "month", "measured_kwh", "estimated_kwh"}).
			AddRow(1, 2020, 12, 40.0, nil).
			AddRow(1, 2021, 1, 35.0, 50.0))

	out, err := repo.ListMonthlyStats(context.Background(), 1, 2020, 2021)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Nil(t, out[0].EstimatedKWh)
	require.NotNil(t, out[1].EstimatedKWh)
	assert.Equal(t, 50.0, *out[1].EstimatedKWh)
	assert.NoError(t, mock.ExpectationsWereMet())
}
