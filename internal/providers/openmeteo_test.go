package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

var fixedNow = time.Date(2025, 5, 10, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestOpenMeteo_ConvertsIrradiance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/archive", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "global_tilted_irradiance", q.Get("hourly"))
		assert.Equal(t, "2025-05-01", q.Get("start_date"))
		assert.Equal(t, "2025-05-02", q.Get("end_date"))
		assert.Equal(t, "30", q.Get("tilt"))
		_, _ = w.Write([]byte(`{"hourly":{"time":["2025-05-01T12:00","2025-05-01T13:00","2025-05-01T14:00"],"global_tilted_irradiance":[500,null,0]}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(WithBaseURL(srv.URL), WithRetries(0), WithClock(clock))
	inst := testInstallation(domain.Panel{PeakPowerKWp: 2, Slope: 30, SystemLoss: 14})

	s, err := p.Fetch(context.Background(), inst,
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderOpenMeteo, s.Source)
	require.Equal(t, 2, s.Len(), "null values are skipped")
	assert.InDelta(t, 500*0.86*2, s.Samples[0].WattHours, 1e-9)
	assert.Equal(t, time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC), s.Samples[0].From)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), s.Samples[0].To)
	assert.Zero(t, s.Samples[1].WattHours)
}

func TestOpenMeteo_ClampsToNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-05-09", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-05-10", r.URL.Query().Get("end_date"))
		_, _ = w.Write([]byte(`{"hourly":{"time":[],"global_tilted_irradiance":[]}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(WithBaseURL(srv.URL), WithRetries(0), WithClock(clock))
	_, err := p.Fetch(context.Background(), testInstallation(domain.Panel{PeakPowerKWp: 1}),
		time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
}

func TestOpenMeteo_FutureRangeIsUnavailable(t *testing.T) {
	p := NewOpenMeteo(WithBaseURL("http://127.0.0.1:1"), WithClock(clock))

	_, err := p.Fetch(context.Background(), testInstallation(domain.Panel{PeakPowerKWp: 1}),
		fixedNow.Add(time.Hour), fixedNow.Add(48*time.Hour))

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenMeteo_MismatchedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":{"time":["2025-05-01T12:00"],"global_tilted_irradiance":[]}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(WithBaseURL(srv.URL), WithRetries(0), WithClock(clock))
	_, err := p.Fetch(context.Background(), testInstallation(domain.Panel{PeakPowerKWp: 1}),
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenMeteo_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":{"time":[],"global_tilted_irradiance":[]}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewOpenMeteo(WithBaseURL(srv.URL), WithRetries(0), WithClock(clock))
	_, err := p.Fetch(ctx, testInstallation(domain.Panel{PeakPowerKWp: 1}),
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "context canceled")
}
