// Package estimator consults providers in a fixed priority order and attributes
// each production window to the first provider that has data for it.
package estimator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/providers"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/series"
)

// DefaultTimeout bounds one provider fetch for a whole span.
const DefaultTimeout = 60 * time.Second

// Estimator holds the ordered provider list. Earlier providers win.
type Estimator struct {
	providers []providers.Provider
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates an Estimator consulting ps in the given order.
func New(logger zerolog.Logger, timeout time.Duration, ps ...providers.Provider) *Estimator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Estimator{
		providers: ps,
		timeout:   timeout,
		logger:    logger.With().Str("component", "estimator").Logger(),
	}
}

// Prepare fetches every provider's series for [from, to) concurrently. Providers
// that decline, fail or time out are dropped; only cancellation of ctx is an error.
func (e *Estimator) Prepare(ctx context.Context, inst *domain.Installation, from, to time.Time) (Prepared, error) {
	results := make([]*series.Series, len(e.providers))

	var g errgroup.Group
	for i, p := range e.providers {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			start := time.Now()
			s, err := p.Fetch(fetchCtx, inst, from, to)
			id := string(p.ID())
			switch {
			case err == nil:
				metrics.ObserveProviderFetch(id, metrics.ResultSuccess, time.Since(start))
				results[i] = s
			case errors.Is(err, providers.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded):
				metrics.ObserveProviderFetch(id, metrics.ResultUnavailable, time.Since(start))
				e.logger.Debug().Err(err).Str("provider", id).Int64("installation", inst.ID).Msg("provider declined")
			default:
				metrics.ObserveProviderFetch(id, metrics.ResultError, time.Since(start))
				e.logger.Warn().Err(err).Str("provider", id).Int64("installation", inst.ID).Msg("provider fetch failed, treating as unavailable")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Prepared{}, err
	}

	sources := make([]*series.Series, 0, len(results))
	for _, s := range results {
		if s != nil {
			sources = append(sources, s)
		}
	}
	return NewPrepared(sources...), nil
}

// Estimate is an estimated energy attributed to one provider.
type Estimate struct {
	Source domain.ProviderID
	KWh    float64
}

// Prepared is the immutable result of Prepare: series in provider priority order.
type Prepared struct {
	sources []*series.Series
}

// NewPrepared builds a Prepared value from already fetched series, highest priority first.
func NewPrepared(sources ...*series.Series) Prepared {
	return Prepared{sources: sources}
}

// Sources lists the providers that supplied data, in priority order.
func (p Prepared) Sources() []domain.ProviderID {
	ids := make([]domain.ProviderID, 0, len(p.sources))
	for _, s := range p.sources {
		ids = append(ids, s.Source)
	}
	return ids
}

// Estimate returns the first provider, in priority order, with data for [from, to).
// It does no I/O and is safe to call concurrently.
func (p Prepared) Estimate(from, to time.Time) (Estimate, bool) {
	for _, s := range p.sources {
		if kwh, ok := s.EnergyBetween(from, to); ok {
			return Estimate{Source: s.Source, KWh: kwh}, true
		}
	}
	return Estimate{}, false
}
