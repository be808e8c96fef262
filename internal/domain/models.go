package domain

import (
	"time"
)

// DefaultSystemLoss is the loss percentage applied to panels that do not declare one.
const DefaultSystemLoss = 14.0

// Installation is a PV system with a location, its panels and provider settings.
type Installation struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Longitude float64         `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude  float64         `json:"latitude" validate:"gte=-90,lte=90"`
	Panels    []Panel         `json:"panels" validate:"dive"`
	PVGIS     PVGISConfig     `json:"pvgis_config"`
	OpenMeteo OpenMeteoConfig `json:"open_meteo_config"`
}

// Panel is one physical array. Estimated outputs of panels are summed.
type Panel struct {
	ID           string  `json:"id"`
	PeakPowerKWp float64 `json:"peak_power" validate:"gte=0"`
	Slope        float64 `json:"slope" validate:"gte=-90,lte=90"`
	// Azimuth: -90 is east, 0 is south, 90 is west.
	Azimuth    float64 `json:"azimuth" validate:"gte=-90,lte=90"`
	SystemLoss float64 `json:"system_loss" validate:"gte=0,lte=100"`
}

// LossFraction returns the system loss as a fraction in [0,1].
func (p Panel) LossFraction() float64 {
	return p.SystemLoss / 100
}

// PVGISConfig holds the radiation-model provider settings of an installation.
type PVGISConfig struct {
	Enabled           bool   `json:"enabled"`
	RadiationDatabase string `json:"radiation_database" validate:"omitempty,oneof=PVGIS-SARAH3 PVGIS-ERA5"`
	MountingType      string `json:"mounting_type" validate:"omitempty,oneof=0 2 3 5"`
	PVTechnology      string `json:"pv_technology" validate:"omitempty,oneof=crystSi CIS CdTe"`
}

// OpenMeteoConfig holds the satellite-reanalysis provider settings of an installation.
type OpenMeteoConfig struct {
	Enabled bool `json:"enabled"`
}

// ProductionEntry is a measured production interval [From, To) with its optional estimate.
type ProductionEntry struct {
	ID             int64       `json:"id" db:"id"`
	InstallationID int64       `json:"installation_id" db:"installation_id"`
	From           time.Time   `json:"from" db:"starts_at"`
	To             time.Time   `json:"to" db:"ends_at"`
	MeasuredKWh    float64     `json:"measured_production" db:"measured_kwh"`
	EstimatedKWh   *float64    `json:"estimated_production,omitempty" db:"estimated_kwh"`
	EstimateSource *ProviderID `json:"estimated_production_source,omitempty" db:"estimate_source"`
	EstimatedLoss  *float64    `json:"estimated_loss,omitempty" db:"estimated_loss"`
}

// HasEstimate reports whether an estimate has been attached.
func (e ProductionEntry) HasEstimate() bool {
	return e.EstimatedKWh != nil && e.EstimateSource != nil
}

// ApplyEstimate attaches an estimate and derives the estimated loss percentage.
func (e *ProductionEntry) ApplyEstimate(source ProviderID, kwh float64) {
	estimated := kwh
	src := source
	e.EstimatedKWh = &estimated
	e.EstimateSource = &src
	e.EstimatedLoss = EstimatedLoss(e.MeasuredKWh, kwh)
}

// EstimatedLoss is the share of the estimate that was not measured, clamped to 0..100.
// Nil when the estimate is not positive.
func EstimatedLoss(measuredKWh, estimatedKWh float64) *float64 {
	if estimatedKWh <= 0 {
		return nil
	}
	loss := (estimatedKWh - measuredKWh) / estimatedKWh * 100
	if loss < 0 {
		loss = 0
	}
	if loss > 100 {
		loss = 100
	}
	return &loss
}

// MonthlyStatistic is the derived monthly rollup of production entries.
type MonthlyStatistic struct {
	InstallationID int64    `json:"installation_id" db:"installation_id"`
	Year           int      `json:"year" db:"year"`
	Month          int      `json:"month" db:"month"`
	MeasuredKWh    float64  `json:"measured_production" db:"measured_kwh"`
	EstimatedKWh   *float64 `json:"estimated_production,omitempty" db:"estimated_kwh"`
}
