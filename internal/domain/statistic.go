package domain

import (
	"sort"
	"time"
)

type monthKey struct {
	year  int
	month int
}

// AggregateMonthly sums measured and estimated energy per (year, month) of each
// entry's From, in UTC. Entries are summed in (From, ID) order so identical inputs
// always produce bit-identical totals. A month whose entries carry no estimate at
// all gets a nil EstimatedKWh.
func AggregateMonthly(installationID int64, entries []ProductionEntry) []MonthlyStatistic {
	ordered := make([]ProductionEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].From.Equal(ordered[j].From) {
			return ordered[i].From.Before(ordered[j].From)
		}
		return ordered[i].ID < ordered[j].ID
	})

	index := make(map[monthKey]int)
	var stats []MonthlyStatistic
	for _, e := range ordered {
		from := e.From.UTC()
		key := monthKey{year: from.Year(), month: int(from.Month())}
		i, ok := index[key]
		if !ok {
			i = len(stats)
			index[key] = i
			stats = append(stats, MonthlyStatistic{
				InstallationID: installationID,
				Year:           key.year,
				Month:          key.month,
			})
		}
		stats[i].MeasuredKWh += e.MeasuredKWh
		if e.EstimatedKWh != nil {
			if stats[i].EstimatedKWh == nil {
				zero := 0.0
				stats[i].EstimatedKWh = &zero
			}
			*stats[i].EstimatedKWh += *e.EstimatedKWh
		}
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Year != stats[j].Year {
			return stats[i].Year < stats[j].Year
		}
		return stats[i].Month < stats[j].Month
	})
	return stats
}

// YearSpan returns the inclusive UTC year range touched by [from, to].
func YearSpan(from, to time.Time) (int, int) {
	return from.UTC().Year(), to.UTC().Year()
}

// YearBounds returns [Jan 1 fromYear, Jan 1 toYear+1) in UTC.
func YearBounds(fromYear, toYear int) (time.Time, time.Time) {
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}
