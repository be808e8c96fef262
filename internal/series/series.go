// Package series holds provider time series and the proportional overlap
// reconciliation used to turn them into energy for arbitrary windows.
package series

import (
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

// Sample is the energy in Wh accumulated over the half-open interval [From, To).
type Sample struct {
	From      time.Time
	To        time.Time
	WattHours float64
}

// Series is an ordered, non-overlapping sequence of samples from one provider.
type Series struct {
	Source  domain.ProviderID
	Samples []Sample
}

// Len returns the number of samples.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}

// Span returns the first sample start and the last sample end.
func (s *Series) Span() (time.Time, time.Time, bool) {
	if s.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Samples[0].From, s.Samples[len(s.Samples)-1].To, true
}

// Slice returns the samples intersecting [from, to), sharing no backing array
// with s.
func (s *Series) Slice(from, to time.Time) *Series {
	out := &Series{}
	if s == nil {
		return out
	}
	out.Source = s.Source
	start := sort.Search(len(s.Samples), func(i int) bool {
		return s.Samples[i].To.After(from)
	})
	end := start
	for end < len(s.Samples) && s.Samples[end].From.Before(to) {
		end++
	}
	out.Samples = append([]Sample(nil), s.Samples[start:end]...)
	return out
}

// EnergyBetween returns the kWh attributable to [from, to). A sample fully inside
// the window contributes WattHours/1000; a partially overlapping sample contributes
// in proportion to the overlapped share of its duration. ok is false when no sample
// intersects the window, which is distinct from a genuine zero (e.g. night hours).
func (s *Series) EnergyBetween(from, to time.Time) (kwh float64, ok bool) {
	if s.Len() == 0 || !from.Before(to) {
		return 0, false
	}

	// Samples are ordered, so skip everything that ends before the window.
	start := sort.Search(len(s.Samples), func(i int) bool {
		return s.Samples[i].To.After(from)
	})

	for _, sample := range s.Samples[start:] {
		if !sample.From.Before(to) {
			break
		}
		contribution, overlaps := sample.energyWithin(from, to)
		if !overlaps {
			continue
		}
		kwh += contribution
		ok = true
	}
	return kwh, ok
}

func (sm Sample) energyWithin(from, to time.Time) (float64, bool) {
	if !sm.From.Before(sm.To) {
		return 0, false
	}
	if !sm.From.Before(to) || !sm.To.After(from) {
		return 0, false
	}
	if !sm.From.Before(from) && !sm.To.After(to) {
		return sm.WattHours / 1000, true
	}

	overlapStart := maxTime(from, sm.From)
	overlapEnd := minTime(to, sm.To)
	fraction := float64(overlapEnd.Sub(overlapStart)) / float64(sm.To.Sub(sm.From))
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return sm.WattHours * fraction / 1000, true
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
