package series

import (
	"sort"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

// Merge combines the per-panel series of one provider into a single series by
// summing samples that start at the same instant. Samples are aligned by timestamp,
// so panels with differing coverage never drop each other's contribution; aligned
// reports whether every part covered exactly the same instants.
func Merge(source domain.ProviderID, parts ...*Series) (merged *Series, aligned bool) {
	nonEmpty := make([]*Series, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return &Series{Source: source}, true
	case 1:
		return &Series{Source: source, Samples: nonEmpty[0].Samples}, true
	}

	aligned = true
	index := make(map[int64]int)
	var samples []Sample
	for n, part := range nonEmpty {
		if part.Len() != nonEmpty[0].Len() {
			aligned = false
		}
		for _, sm := range part.Samples {
			key := sm.From.UnixNano()
			i, ok := index[key]
			if !ok {
				if n > 0 {
					aligned = false
				}
				index[key] = len(samples)
				samples = append(samples, sm)
				continue
			}
			samples[i].WattHours += sm.WattHours
			if sm.To.After(samples[i].To) {
				samples[i].To = sm.To
			}
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].From.Before(samples[j].From)
	})
	return &Series{Source: source, Samples: samples}, aligned
}
