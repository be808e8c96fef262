package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/series"
)

const (
	DefaultOpenMeteoURL = "https://satellite-api.open-meteo.com/v1"

	openMeteoTimeLayout = "2006-01-02T15:04"
	openMeteoDateLayout = "2006-01-02"
)

// OpenMeteo estimates production from satellite global tilted irradiance.
type OpenMeteo struct {
	client *resty.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewOpenMeteo creates an Open-Meteo satellite archive provider.
func NewOpenMeteo(opts ...Option) *OpenMeteo {
	o := buildOptions(DefaultOpenMeteoURL, opts)
	return &OpenMeteo{
		client: o.client,
		logger: o.logger.With().Str("provider", string(domain.ProviderOpenMeteo)).Logger(),
		now:    o.now,
	}
}

func (p *OpenMeteo) ID() domain.ProviderID { return domain.ProviderOpenMeteo }

// Fetch returns the merged hourly production of all panels. The archive holds no
// future data, so the range is clamped to now.
func (p *OpenMeteo) Fetch(ctx context.Context, inst *domain.Installation, from, to time.Time) (*series.Series, error) {
	if err := p.Declines(inst, from, to); err != nil {
		return nil, err
	}
	from, to = p.clamp(from, to)

	// Values are means over the preceding hour, so the hour starting at `to`
	// reports one step later.
	startDate := from.Format(openMeteoDateLayout)
	endDate := to.Add(time.Hour).Format(openMeteoDateLayout)

	parts, err := fetchPanels(ctx, inst.Panels, func(ctx context.Context, panel domain.Panel) (*series.Series, error) {
		return p.fetchPanel(ctx, inst, panel, startDate, endDate)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p.ID(), ErrUnavailable, err)
	}
	p.logger.Debug().Int64("installation", inst.ID).Int("panels", len(parts)).Msg("fetched open-meteo data")

	return mergePanels(p.ID(), p.logger, parts), nil
}

// Declines reports why a request cannot be served without calling Open-Meteo.
func (p *OpenMeteo) Declines(inst *domain.Installation, from, to time.Time) error {
	if !inst.OpenMeteo.Enabled {
		return unavailable(p.ID(), "disabled for installation")
	}
	from, to = p.clamp(from, to)
	if !from.Before(to) {
		return unavailable(p.ID(), "no data for the requested range")
	}
	if len(inst.Panels) == 0 {
		return unavailable(p.ID(), "installation has no panels")
	}
	return nil
}

func (p *OpenMeteo) Scope() string { return "" }

func (p *OpenMeteo) clamp(from, to time.Time) (time.Time, time.Time) {
	now := p.now().UTC()
	from, to = from.UTC(), to.UTC()
	if to.After(now) {
		to = now
	}
	if from.After(now) {
		from = now
	}
	return from, to
}

func (p *OpenMeteo) fetchPanel(ctx context.Context, inst *domain.Installation, panel domain.Panel, startDate, endDate string) (*series.Series, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":   formatFloat(inst.Latitude),
			"longitude":  formatFloat(inst.Longitude),
			"start_date": startDate,
			"end_date":   endDate,
			"hourly":     "global_tilted_irradiance",
			"timeformat": "iso8601",
			"timezone":   "GMT",
			"tilt":       formatFloat(panel.Slope),
			"azimuth":    formatFloat(panel.Azimuth),
		}).
		Get("/archive")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open-meteo archive: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("open-meteo API returned status %d", resp.StatusCode())
	}

	var payload openMeteoResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse open-meteo response: %w", err)
	}
	return payload.toSeries(panel)
}

type openMeteoResponse struct {
	Hourly struct {
		Time                   []string   `json:"time"`
		GlobalTiltedIrradiance []*float64 `json:"global_tilted_irradiance"`
	} `json:"hourly"`
}

// toSeries converts irradiance (W/m², mean of the preceding hour) into Wh per
// hour: irradiance * (1 - loss) * kWp, since 1 kWp yields 1 kW at 1000 W/m².
func (r openMeteoResponse) toSeries(panel domain.Panel) (*series.Series, error) {
	if len(r.Hourly.Time) != len(r.Hourly.GlobalTiltedIrradiance) {
		return nil, fmt.Errorf("open-meteo returned %d timestamps for %d values",
			len(r.Hourly.Time), len(r.Hourly.GlobalTiltedIrradiance))
	}
	s := &series.Series{
		Source:  domain.ProviderOpenMeteo,
		Samples: make([]series.Sample, 0, len(r.Hourly.Time)),
	}
	for i, raw := range r.Hourly.Time {
		irradiance := r.Hourly.GlobalTiltedIrradiance[i]
		if irradiance == nil {
			continue
		}
		end, err := time.ParseInLocation(openMeteoTimeLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse open-meteo time %q: %w", raw, err)
		}
		s.Samples = append(s.Samples, series.Sample{
			From:      end.Add(-time.Hour),
			To:        end,
			WattHours: *irradiance * (1 - panel.LossFraction()) * panel.PeakPowerKWp,
		})
	}
	return s, nil
}
