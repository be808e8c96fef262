// Package providers fetches hourly production estimates from external irradiance
// and PV simulation services.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/series"
)

// ErrUnavailable is returned when a provider declines a request: it is disabled for
// the installation, the range is outside its coverage, or the fetch failed.
var ErrUnavailable = errors.New("provider unavailable")

// Provider turns an installation and a date range into an hourly series.
type Provider interface {
	ID() domain.ProviderID
	Fetch(ctx context.Context, inst *domain.Installation, from, to time.Time) (*series.Series, error)
}

// Checker is implemented by providers that can decline a request without a remote
// call. Scope describes provider settings that change the answer for a request.
type Checker interface {
	Declines(inst *domain.Installation, from, to time.Time) error
	Scope() string
}

func unavailable(id domain.ProviderID, reason string) error {
	return fmt.Errorf("%s: %w: %s", id, ErrUnavailable, reason)
}

type options struct {
	baseURL string
	timeout time.Duration
	retries int
	logger  zerolog.Logger
	now     func() time.Time
	client  *resty.Client
}

// Option configures a provider.
type Option func(*options)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithTimeout bounds every HTTP request of the provider.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries sets how often a failed request is retried.
func WithRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the time source used for coverage decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHTTPClient replaces the resty client, mostly for tests.
func WithHTTPClient(client *resty.Client) Option {
	return func(o *options) { o.client = client }
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL: defaultURL,
		timeout: 30 * time.Second,
		retries: 2,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = resty.New()
		o.client.SetTimeout(o.timeout)
		o.client.SetRetryCount(o.retries)
		o.client.SetRetryWaitTime(2 * time.Second)
	}
	o.client.SetBaseURL(o.baseURL)
	o.client.SetHeader("Accept", "application/json")
	return o
}

// fetchPanels runs fetch for every panel concurrently and returns the results in
// panel order. Any panel failure fails the whole provider request.
func fetchPanels(ctx context.Context, panels []domain.Panel, fetch func(ctx context.Context, panel domain.Panel) (*series.Series, error)) ([]*series.Series, error) {
	results := make([]*series.Series, len(panels))
	g, gctx := errgroup.WithContext(ctx)
	for i, panel := range panels {
		g.Go(func() error {
			s, err := fetch(gctx, panel)
			if err != nil {
				return fmt.Errorf("panel %d: %w", i, err)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergePanels merges per-panel series and logs when their coverage differs.
func mergePanels(id domain.ProviderID, logger zerolog.Logger, parts []*series.Series) *series.Series {
	merged, aligned := series.Merge(id, parts...)
	if !aligned {
		logger.Warn().
			Str("provider", string(id)).
			Int("panels", len(parts)).
			Msg("panel series cover different hours, merged by timestamp")
	}
	return merged
}
