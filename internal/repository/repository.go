package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

// Repos is the Postgres implementation of domain.Store.
type Repos struct {
	queries
	db *sqlx.DB
}

var _ domain.Store = (*Repos)(nil)

func New(db *sqlx.DB) *Repos { return &Repos{queries: queries{ext: db}, db: db} }

// queries runs statements against either the pool or an open transaction.
type queries struct {
	ext sqlx.ExtContext
}

type installationRow struct {
	ID                     int64   `db:"id"`
	OwnerID                int64   `db:"owner_id"`
	Name                   string  `db:"name"`
	Longitude              float64 `db:"longitude"`
	Latitude               float64 `db:"latitude"`
	PVGISEnabled           bool    `db:"pvgis_enabled"`
	PVGISRadiationDatabase string  `db:"pvgis_radiation_database"`
	PVGISMountingType      string  `db:"pvgis_mounting_type"`
	PVGISPVTechnology      string  `db:"pvgis_pv_technology"`
	OpenMeteoEnabled       bool    `db:"open_meteo_enabled"`
}

type panelRow struct {
	ID         string  `db:"id"`
	PeakPower  float64 `db:"peak_power"`
	Slope      float64 `db:"slope"`
	Azimuth    float64 `db:"azimuth"`
	SystemLoss float64 `db:"system_loss"`
}

func (r *Repos) GetInstallation(ctx context.Context, id int64) (*domain.Installation, error) {
	var row installationRow
	err := sqlx.GetContext(ctx, r.ext, &row, `SELECT id, owner_id, name, longitude, latitude,
		pvgis_enabled, pvgis_radiation_database, pvgis_mounting_type, pvgis_pv_technology, open_meteo_enabled
		FROM installations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installation %d: %w", id, domain.ErrInstallationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load installation %d: %w", id, err)
	}

	var panels []panelRow
	err = sqlx.SelectContext(ctx, r.ext, &panels, `SELECT id, peak_power, slope, azimuth, system_loss
		FROM panels WHERE installation_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load panels of installation %d: %w", id, err)
	}

	inst := &domain.Installation{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Longitude: row.Longitude,
		Latitude:  row.Latitude,
		PVGIS: domain.PVGISConfig{
			Enabled:           row.PVGISEnabled,
			RadiationDatabase: row.PVGISRadiationDatabase,
			MountingType:      row.PVGISMountingType,
			PVTechnology:      row.PVGISPVTechnology,
		},
		OpenMeteo: domain.OpenMeteoConfig{Enabled: row.OpenMeteoEnabled},
		Panels:    make([]domain.Panel, 0, len(panels)),
	}
	for _, p := range panels {
		inst.Panels = append(inst.Panels, domain.Panel{
			ID:           p.ID,
			PeakPowerKWp: p.PeakPower,
			Slope:        p.Slope,
			Azimuth:      p.Azimuth,
			SystemLoss:   p.SystemLoss,
		})
	}
	return inst, nil
}

// Atomic runs fn inside one transaction and commits only if fn succeeds.
func (r *Repos) Atomic(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&queries{ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const entryColumns = `id, installation_id, starts_at, ends_at, measured_kwh, estimated_kwh, estimate_source, estimated_loss`

func (q *queries) InsertEntries(ctx context.Context, entries []domain.ProductionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO production_entries
		(installation_id, starts_at, ends_at, measured_kwh, estimated_kwh, estimate_source, estimated_loss)
		VALUES (:installation_id, :starts_at, :ends_at, :measured_kwh, :estimated_kwh, :estimate_source, :estimated_loss)`, entries)
	if err != nil {
		return fmt.Errorf("failed to insert %d production entries: %w", len(entries), err)
	}
	return nil
}

func (q *queries) ListEntries(ctx context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	out := []domain.ProductionEntry{}
	err := sqlx.SelectContext(ctx, q.ext, &out, `SELECT `+entryColumns+` FROM production_entries
		WHERE installation_id = $1 AND starts_at >= $2 AND ends_at <= $3
		ORDER BY starts_at, id`, installationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list production entries: %w", err)
	}
	return out, nil
}

func (q *queries) ListEntriesStartingIn(ctx context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	out := []domain.ProductionEntry{}
	err := sqlx.SelectContext(ctx, q.ext, &out, `SELECT `+entryColumns+` FROM production_entries
		WHERE installation_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at, id`, installationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list production entries: %w", err)
	}
	return out, nil
}

func (q *queries) UpdateEstimate(ctx context.Context, e domain.ProductionEntry) error {
	res, err := q.ext.ExecContext(ctx, `UPDATE production_entries
		SET estimated_kwh = $1, estimate_source = $2, estimated_loss = $3
		WHERE id = $4 AND installation_id = $5`,
		e.EstimatedKWh, e.EstimateSource, e.EstimatedLoss, e.ID, e.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to update estimate of entry %d: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update estimate of entry %d: no such entry", e.ID)
	}
	return nil
}

func (q *queries) DeleteEntries(ctx context.Context, installationID int64, from, to time.Time) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM production_entries
		WHERE installation_id = $1 AND starts_at >= $2 AND ends_at <= $3`, installationID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete production entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted production entries: %w", err)
	}
	return n, nil
}

func (q *queries) LockInstallation(ctx context.Context, installationID int64) error {
	if _, err := q.ext.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, installationID); err != nil {
		return fmt.Errorf("failed to lock installation %d: %w", installationID, err)
	}
	return nil
}

func (q *queries) DeleteMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) error {
	_, err := q.ext.ExecContext(ctx, `DELETE FROM monthly_statistics
		WHERE installation_id = $1 AND year BETWEEN $2 AND $3`, installationID, fromYear, toYear)
	if err != nil {
		return fmt.Errorf("failed to delete monthly statistics: %w", err)
	}
	return nil
}

func (q *queries) InsertMonthlyStats(ctx context.Context, stats []domain.MonthlyStatistic) error {
	if len(stats) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO monthly_statistics
		(installation_id, year, month, measured_kwh, estimated_kwh)
		VALUES (:installation_id, :year, :month, :measured_kwh, :estimated_kwh)`, stats)
	if err != nil {
		return fmt.Errorf("failed to insert %d monthly statistics: %w", len(stats), err)
	}
	return nil
}

func (q *queries) ListMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) ([]domain.MonthlyStatistic, error) {
	out := []domain.MonthlyStatistic{}
	err := sqlx.SelectContext(ctx, q.ext, &out, `SELECT installation_id, year, month, measured_kwh, estimated_kwh
		FROM monthly_statistics
		WHERE installation_id = $1 AND year BETWEEN $2 AND $3
		ORDER BY year, month`, installationID, fromYear, toYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly statistics: %w", err)
	}
	return out, nil
}
