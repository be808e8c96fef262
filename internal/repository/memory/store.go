package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
)

// Store is an in-memory domain.Store for demo/testing.
// Atomic holds the store lock for the whole transaction and works on a copy,
// so a failed transaction leaves nothing behind.
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ domain.Store = (*Store)(nil)

type statKey struct {
	installationID int64
	year, month    int
}

type state struct {
	installations map[int64]domain.Installation
	entries       map[int64]domain.ProductionEntry
	stats         map[statKey]domain.MonthlyStatistic
	nextEntryID   int64
}

// New constructs an empty store.
func New() *Store {
	return &Store{state: &state{
		installations: make(map[int64]domain.Installation),
		entries:       make(map[int64]domain.ProductionEntry),
		stats:         make(map[statKey]domain.MonthlyStatistic),
		nextEntryID:   1,
	}}
}

// AddInstallation registers an installation. Installations are managed outside
// this service, so only tests and the demo seed call it.
func (s *Store) AddInstallation(inst domain.Installation) error {
	if inst.ID == 0 {
		return errors.New("memory store: installation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst.Panels = append([]domain.Panel(nil), inst.Panels...)
	s.state.installations[inst.ID] = inst
	return nil
}

func (s *Store) GetInstallation(_ context.Context, id int64) (*domain.Installation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.state.installations[id]
	if !ok {
		return nil, fmt.Errorf("installation %d: %w", id, domain.ErrInstallationNotFound)
	}
	inst.Panels = append([]domain.Panel(nil), inst.Panels...)
	return &inst, nil
}

func (s *Store) Atomic(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) InsertEntries(ctx context.Context, entries []domain.ProductionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertEntries(ctx, entries)
}

func (s *Store) ListEntries(ctx context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListEntries(ctx, installationID, from, to)
}

func (s *Store) ListEntriesStartingIn(ctx context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListEntriesStartingIn(ctx, installationID, from, to)
}

func (s *Store) UpdateEstimate(ctx context.Context, entry domain.ProductionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateEstimate(ctx, entry)
}

func (s *Store) DeleteEntries(ctx context.Context, installationID int64, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteEntries(ctx, installationID, from, to)
}

func (s *Store) LockInstallation(context.Context, int64) error {
	return nil
}

func (s *Store) DeleteMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteMonthlyStats(ctx, installationID, fromYear, toYear)
}

func (s *Store) InsertMonthlyStats(ctx context.Context, stats []domain.MonthlyStatistic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertMonthlyStats(ctx, stats)
}

func (s *Store) ListMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) ([]domain.MonthlyStatistic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListMonthlyStats(ctx, installationID, fromYear, toYear)
}

func (st *state) clone() *state {
	out := &state{
		installations: st.installations,
		entries:       make(map[int64]domain.ProductionEntry, len(st.entries)),
		stats:         make(map[statKey]domain.MonthlyStatistic, len(st.stats)),
		nextEntryID:   st.nextEntryID,
	}
	for k, v := range st.entries {
		out.entries[k] = v
	}
	for k, v := range st.stats {
		out.stats[k] = v
	}
	return out
}

func (st *state) InsertEntries(_ context.Context, entries []domain.ProductionEntry) error {
	for _, e := range entries {
		if !e.From.Before(e.To) {
			return fmt.Errorf("memory store: entry [%s, %s) is empty", e.From, e.To)
		}
		e.ID = st.nextEntryID
		st.nextEntryID++
		st.entries[e.ID] = e
	}
	return nil
}

func (st *state) ListEntries(_ context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	return st.selectEntries(installationID, func(e domain.ProductionEntry) bool {
		return !e.From.Before(from) && !e.To.After(to)
	}), nil
}

func (st *state) ListEntriesStartingIn(_ context.Context, installationID int64, from, to time.Time) ([]domain.ProductionEntry, error) {
	return st.selectEntries(installationID, func(e domain.ProductionEntry) bool {
		return !e.From.Before(from) && e.From.Before(to)
	}), nil
}

func (st *state) selectEntries(installationID int64, keep func(domain.ProductionEntry) bool) []domain.ProductionEntry {
	out := []domain.ProductionEntry{}
	for _, e := range st.entries {
		if e.InstallationID == installationID && keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].From.Equal(out[j].From) {
			return out[i].From.Before(out[j].From)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) UpdateEstimate(_ context.Context, entry domain.ProductionEntry) error {
	cur, ok := st.entries[entry.ID]
	if !ok || cur.InstallationID != entry.InstallationID {
		return fmt.Errorf("memory store: entry %d not found", entry.ID)
	}
	cur.EstimatedKWh = entry.EstimatedKWh
	cur.EstimateSource = entry.EstimateSource
	cur.EstimatedLoss = entry.EstimatedLoss
	st.entries[entry.ID] = cur
	return nil
}

func (st *state) DeleteEntries(_ context.Context, installationID int64, from, to time.Time) (int64, error) {
	var n int64
	for id, e := range st.entries {
		if e.InstallationID == installationID && !e.From.Before(from) && !e.To.After(to) {
			delete(st.entries, id)
			n++
		}
	}
	return n, nil
}

func (st *state) LockInstallation(context.Context, int64) error { return nil }

func (st *state) DeleteMonthlyStats(_ context.Context, installationID int64, fromYear, toYear int) error {
	for k := range st.stats {
		if k.installationID == installationID && k.year >= fromYear && k.year <= toYear {
			delete(st.stats, k)
		}
	}
	return nil
}

func (st *state) InsertMonthlyStats(_ context.Context, stats []domain.MonthlyStatistic) error {
	for _, m := range stats {
		k := statKey{installationID: m.InstallationID, year: m.Year, month: m.Month}
		if _, exists := st.stats[k]; exists {
			return fmt.Errorf("memory store: monthly statistic %d-%02d of installation %d already exists", m.Year, m.Month, m.InstallationID)
		}
		st.stats[k] = m
	}
	return nil
}

func (st *state) ListMonthlyStats(_ context.Context, installationID int64, fromYear, toYear int) ([]domain.MonthlyStatistic, error) {
	out := []domain.MonthlyStatistic{}
	for k, m := range st.stats {
		if k.installationID == installationID && k.year >= fromYear && k.year <= toYear {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}
