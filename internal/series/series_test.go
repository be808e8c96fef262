package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

var day = time.Date(2022, time.June, 21, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func hourly(source domain.ProviderID, start time.Time, values ...float64) *Series {
	s := &Series{Source: source}
	for i, v := range values {
		from := start.Add(time.Duration(i) * time.Hour)
		s.Samples = append(s.Samples, Sample{From: from, To: from.Add(time.Hour), WattHours: v})
	}
	return s
}

func TestEnergyBetween_FullContainmentIsExact(t *testing.T) {
	values := []float64{0, 123.456, 987.654321, 0.1, 3333.3}
	s := hourly(domain.ProviderPVGIS, at(0, 0), values...)

	for i, v := range values {
		kwh, ok := s.EnergyBetween(at(i, 0), at(i+1, 0))
		require.True(t, ok)
		assert.Equal(t, v/1000, kwh, "sample %d", i)
	}
}

func TestEnergyBetween_PartialOverlapQuarterHours(t *testing.T) {
	s := hourly(domain.ProviderPVGIS, at(10, 0), 400)

	kwh, ok := s.EnergyBetween(at(10, 15), at(10, 45))

	require.True(t, ok)
	assert.InDelta(t, 0.2, kwh, 1e-12)
}

func TestEnergyBetween_PartialOverlapIsLinear(t *testing.T) {
	s := hourly(domain.ProviderOpenMeteo, at(10, 0), 600)

	full, ok := s.EnergyBetween(at(10, 0), at(10, 40))
	require.True(t, ok)
	half, ok := s.EnergyBetween(at(10, 0), at(10, 20))
	require.True(t, ok)

	assert.InDelta(t, full/2, half, 1e-12)
}

func TestEnergyBetween_WindowSpanningSamples(t *testing.T) {
	s := hourly(domain.ProviderPVGIS, at(9, 0), 100, 200, 300)

	// half of 9:00, all of 10:00, a quarter of 11:00
	kwh, ok := s.EnergyBetween(at(9, 30), at(11, 15))

	require.True(t, ok)
	assert.InDelta(t, (50+200+75)/1000.0, kwh, 1e-12)
}

func TestEnergyBetween_NoData(t *testing.T) {
	s := hourly(domain.ProviderPVGIS, at(10, 0), 400, 500)

	tests := []struct {
		name     string
		from, to time.Time
	}{
		{"before series", at(8, 0), at(10, 0)},
		{"after series", at(12, 0), at(13, 0)},
		{"empty window", at(10, 30), at(10, 30)},
		{"inverted window", at(11, 0), at(10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kwh, ok := s.EnergyBetween(tt.from, tt.to)
			assert.False(t, ok)
			assert.Zero(t, kwh)
		})
	}

	var empty *Series
	_, ok := empty.EnergyBetween(at(0, 0), at(1, 0))
	assert.False(t, ok)
}

func TestEnergyBetween_NightIsGenuineZero(t *testing.T) {
	s := hourly(domain.ProviderOpenMeteo, at(0, 0), 0, 0, 0, 0, 0, 120, 480)

	night, ok := s.EnergyBetween(at(1, 0), at(3, 0))
	require.True(t, ok, "covered night hours are defined")
	assert.Zero(t, night)

	morning, ok := s.EnergyBetween(at(5, 0), at(7, 0))
	require.True(t, ok)
	assert.InDelta(t, 0.6, morning, 1e-12)
}

func TestMerge_SumsSameHour(t *testing.T) {
	p1 := hourly(domain.ProviderPVGIS, at(12, 0), 100)
	p2 := hourly(domain.ProviderPVGIS, at(12, 0), 50)

	merged, aligned := Merge(domain.ProviderPVGIS, p1, p2)

	assert.True(t, aligned)
	require.Equal(t, 1, merged.Len())
	assert.Equal(t, 150.0, merged.Samples[0].WattHours)
	assert.Equal(t, domain.ProviderPVGIS, merged.Source)
}

func TestMerge_AlignsByTimestampWhenCoverageDiffers(t *testing.T) {
	p1 := hourly(domain.ProviderOpenMeteo, at(10, 0), 100, 200, 300)
	p2 := hourly(domain.ProviderOpenMeteo, at(11, 0), 10, 20, 30)

	merged, aligned := Merge(domain.ProviderOpenMeteo, p1, p2)

	assert.False(t, aligned)
	require.Equal(t, 4, merged.Len())
	got := make([]float64, 0, merged.Len())
	for _, sm := range merged.Samples {
		got = append(got, sm.WattHours)
	}
	assert.Equal(t, []float64{100, 210, 320, 30}, got)
	assert.True(t, merged.Samples[0].From.Equal(at(10, 0)))
	assert.True(t, merged.Samples[3].From.Equal(at(13, 0)))
}

func TestMerge_SinglePanelPassesThrough(t *testing.T) {
	p1 := hourly(domain.ProviderPVGIS, at(0, 0), 1, 2, 3)

	merged, aligned := Merge(domain.ProviderPVGIS, p1)

	assert.True(t, aligned)
	assert.Equal(t, p1.Samples, merged.Samples)
}

func TestSpan(t *testing.T) {
	s := hourly(domain.ProviderPVGIS, at(5, 0), 1, 2)
	from, to, ok := s.Span()
	require.True(t, ok)
	assert.Equal(t, at(5, 0), from)
	assert.Equal(t, at(7, 0), to)

	_, _, ok = (&Series{}).Span()
	assert.False(t, ok)
}

func TestSlice_KeepsIntersectingSamples(t *testing.T) {
	s := hourly(domain.ProviderPVGIS, at(0, 0), 1, 2, 3, 4, 5, 6)

	got := s.Slice(at(1, 30), at(4, 0))

	assert.Equal(t, domain.ProviderPVGIS, got.Source)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, at(1, 0), got.Samples[0].From)
	assert.Equal(t, at(4, 0), got.Samples[2].To)

	kwh, ok := got.EnergyBetween(at(1, 30), at(4, 0))
	require.True(t, ok)
	want, _ := s.EnergyBetween(at(1, 30), at(4, 0))
	assert.InDelta(t, want, kwh, 1e-12)

	got.Samples[0].WattHours = 99
	assert.Equal(t, 2.0, s.Samples[1].WattHours, "slice must not alias the source")
}

func TestSlice_OutsideRangeIsEmpty(t *testing.T) {
	s := hourly(domain.ProviderOpenMeteo, at(0, 0), 1, 2)
	assert.Zero(t, s.Slice(at(5, 0), at(6, 0)).Len())
	assert.Zero(t, (*Series)(nil).Slice(at(0, 0), at(1, 0)).Len())
}
