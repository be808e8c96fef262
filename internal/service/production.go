package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/estimator"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/metrics"
)

// RawRow is one measured interval as received from a client. From and To are RFC 3339.
type RawRow struct {
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required"`
	Energy float64 `json:"energy" validate:"gte=0"`
}

type ImportResult struct {
	BatchID         string `json:"batch_id"`
	Imported        int    `json:"imported"`
	Estimated       int    `json:"estimated"`
	WithoutEstimate int    `json:"without_estimate"`
}

type RecalculateResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

type ProductionService struct {
	store      domain.Store
	estimator  *estimator.Estimator
	statistics *StatisticsService
	opts       options
	logger     zerolog.Logger
}

// ImportMeasuredProduction validates rows, attaches estimates and stores them in one
// transaction, then rebuilds the monthly statistics of the span. Nothing is stored
// when any row is rejected.
func (s *ProductionService) ImportMeasuredProduction(ctx context.Context, installationID int64, rows []RawRow) (ImportResult, error) {
	start := time.Now()
	res, err := s.importRows(ctx, installationID, rows)
	metrics.ObserveImport(metrics.Result(err), res.Imported, time.Since(start))
	return res, err
}

func (s *ProductionService) importRows(ctx context.Context, installationID int64, rows []RawRow) (ImportResult, error) {
	entries, err := parseRows(installationID, rows)
	if err != nil {
		return ImportResult{}, err
	}

	inst, err := s.store.GetInstallation(ctx, installationID)
	if err != nil {
		return ImportResult{}, err
	}
	if err := inst.Validate(); err != nil {
		return ImportResult{}, err
	}

	spanFrom, spanTo := span(entries)
	prepared, err := s.estimator.Prepare(ctx, inst, spanFrom, spanTo)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to prepare estimates: %w", err)
	}

	res := ImportResult{BatchID: uuid.NewString()}
	chunks := chunk(entries, s.opts.chunkSize)
	for i, c := range chunks {
		estimated, err := s.estimateChunk(ctx, prepared, c)
		if err != nil {
			return ImportResult{}, err
		}
		res.Estimated += estimated
		s.opts.observer.ChunkEstimated(ctx, ImportProgress{
			BatchID:        res.BatchID,
			InstallationID: installationID,
			Chunk:          i + 1,
			Chunks:         len(chunks),
			Rows:           len(c),
			Estimated:      estimated,
		})
	}

	err = s.store.Atomic(ctx, func(tx domain.Tx) error {
		for _, c := range chunks {
			if err := tx.InsertEntries(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to store production entries: %w", err)
	}
	res.Imported = len(entries)
	res.WithoutEstimate = res.Imported - res.Estimated

	s.logger.Info().
		Str("batch", res.BatchID).
		Int64("installation", installationID).
		Int("imported", res.Imported).
		Int("estimated", res.Estimated).
		Strs("providers", providerNames(prepared)).
		Msg("production imported")

	// Entries are committed at this point; a failed rebuild can be retried on its own.
	if _, err := s.statistics.Rebuild(ctx, installationID, spanFrom, spanTo); err != nil {
		return res, err
	}

	s.archive(ctx, ImportBatch{ID: res.BatchID, InstallationID: installationID, ReceivedAt: s.opts.now().UTC(), Rows: rows})
	s.notify(ctx, Summary{
		Kind:            "import",
		BatchID:         res.BatchID,
		InstallationID:  installationID,
		From:            spanFrom,
		To:              spanTo,
		Imported:        res.Imported,
		Estimated:       res.Estimated,
		WithoutEstimate: res.WithoutEstimate,
	})
	return res, nil
}

// estimateChunk fills in estimates for every entry of c and returns how many got one.
func (s *ProductionService) estimateChunk(ctx context.Context, prepared estimator.Prepared, c []domain.ProductionEntry) (int, error) {
	found := make([]bool, len(c))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.workers)
	for i := range c {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = applyEstimate(prepared, &c[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for _, ok := range found {
		if ok {
			n++
		}
	}
	return n, nil
}

func applyEstimate(prepared estimator.Prepared, e *domain.ProductionEntry) bool {
	est, ok := prepared.Estimate(e.From, e.To)
	if !ok {
		metrics.IncEstimate("", metrics.EstimateMissing)
		return false
	}
	e.ApplyEstimate(est.Source, est.KWh)
	metrics.IncEstimate(est.Source.String(), metrics.EstimateFound)
	return true
}

// RecalculateEstimates re-estimates the stored entries within [from, to]. Entries are
// updated one by one; those without any provider data keep their stored values and
// are reported as skipped.
func (s *ProductionService) RecalculateEstimates(ctx context.Context, installationID int64, from, to time.Time) (RecalculateResult, error) {
	if err := checkWindow(from, to); err != nil {
		return RecalculateResult{}, err
	}
	inst, err := s.store.GetInstallation(ctx, installationID)
	if err != nil {
		return RecalculateResult{}, err
	}
	if err := inst.Validate(); err != nil {
		return RecalculateResult{}, err
	}
	entries, err := s.store.ListEntries(ctx, installationID, from, to)
	if err != nil {
		return RecalculateResult{}, err
	}

	var res RecalculateResult
	if len(entries) > 0 {
		spanFrom, spanTo := span(entries)
		prepared, err := s.estimator.Prepare(ctx, inst, spanFrom, spanTo)
		if err != nil {
			return res, fmt.Errorf("failed to prepare estimates: %w", err)
		}
		for i := range entries {
			if !applyEstimate(prepared, &entries[i]) {
				res.Skipped++
				continue
			}
			if err := s.store.UpdateEstimate(ctx, entries[i]); err != nil {
				return res, fmt.Errorf("failed to recalculate estimates: %w", err)
			}
			res.Updated++
		}
	}

	s.logger.Info().
		Int64("installation", installationID).
		Time("from", from).
		Time("to", to).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Msg("estimates recalculated")

	if _, err := s.statistics.Rebuild(ctx, installationID, from, to); err != nil {
		return res, err
	}
	s.notify(ctx, Summary{
		Kind:           "recalculate",
		InstallationID: installationID,
		From:           from,
		To:             to,
		Updated:        res.Updated,
		Skipped:        res.Skipped,
	})
	return res, nil
}

// DeleteProduction removes the entries within [from, to] and rebuilds the statistics.
func (s *ProductionService) DeleteProduction(ctx context.Context, installationID int64, from, to time.Time) (DeleteResult, error) {
	if err := checkWindow(from, to); err != nil {
		return DeleteResult{}, err
	}
	if _, err := s.store.GetInstallation(ctx, installationID); err != nil {
		return DeleteResult{}, err
	}
	var res DeleteResult
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		n, err := tx.DeleteEntries(ctx, installationID, from, to)
		res.Deleted = n
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.logger.Info().Int64("installation", installationID).Int64("deleted", res.Deleted).Msg("production deleted")

	if _, err := s.statistics.Rebuild(ctx, installationID, from, to); err != nil {
		return res, err
	}
	return res, nil
}

func (s *ProductionService) archive(ctx context.Context, batch ImportBatch) {
	if s.opts.archiver == nil {
		return
	}
	if err := s.opts.archiver.ArchiveBatch(ctx, batch); err != nil {
		s.logger.Warn().Err(err).Str("batch", batch.ID).Msg("failed to archive import batch")
	}
}

func (s *ProductionService) notify(ctx context.Context, summary Summary) {
	if s.opts.notifier == nil {
		return
	}
	if err := s.opts.notifier.Notify(ctx, summary); err != nil {
		s.logger.Warn().Err(err).Str("kind", summary.Kind).Msg("failed to publish summary")
	}
}

// parseRows converts a batch into entries or reports the first offending row.
func parseRows(installationID int64, rows []RawRow) ([]domain.ProductionEntry, error) {
	if len(rows) == 0 {
		return nil, &domain.ValidationError{Index: -1, Field: "rows", Reason: domain.ErrEmptyBatch.Error(), Err: domain.ErrEmptyBatch}
	}
	v := domain.Validator()
	entries := make([]domain.ProductionEntry, 0, len(rows))
	for i, r := range rows {
		if err := v.Struct(r); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, domain.RowError(i, verrs[0].Field(), fmt.Sprintf("failed %q constraint", verrs[0].Tag()))
			}
			return nil, domain.RowError(i, "row", err.Error())
		}
		from, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return nil, domain.RowError(i, "from", "not an RFC 3339 timestamp")
		}
		to, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return nil, domain.RowError(i, "to", "not an RFC 3339 timestamp")
		}
		if !from.Before(to) {
			return nil, domain.RowError(i, "to", "must be after from")
		}
		entries = append(entries, domain.ProductionEntry{
			InstallationID: installationID,
			From:           from.UTC(),
			To:             to.UTC(),
			MeasuredKWh:    r.Energy,
		})
	}
	return entries, nil
}

// span returns [min From, max To) of entries, which must not be empty.
func span(entries []domain.ProductionEntry) (time.Time, time.Time) {
	from, to := entries[0].From, entries[0].To
	for _, e := range entries[1:] {
		if e.From.Before(from) {
			from = e.From
		}
		if e.To.After(to) {
			to = e.To
		}
	}
	return from, to
}

func chunk(entries []domain.ProductionEntry, size int) [][]domain.ProductionEntry {
	var out [][]domain.ProductionEntry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		out = append(out, entries[start:end])
	}
	return out
}

func providerNames(p estimator.Prepared) []string {
	ids := p.Sources()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
