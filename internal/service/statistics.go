package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/metrics"
)

type StatisticsService struct {
	store  domain.Store
	logger zerolog.Logger
}

// RebuildResult reports what a monthly rebuild wrote.
type RebuildResult struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
	Months   int `json:"months"`
}

// Rebuild recomputes the monthly statistics of every year touched by [from, to].
// Existing rows for those years are replaced inside one transaction.
func (s *StatisticsService) Rebuild(ctx context.Context, installationID int64, from, to time.Time) (RebuildResult, error) {
	if err := checkWindow(from, to); err != nil {
		return RebuildResult{}, err
	}
	if _, err := s.store.GetInstallation(ctx, installationID); err != nil {
		return RebuildResult{}, err
	}
	start := time.Now()
	fromYear, toYear := domain.YearSpan(from, to)
	res := RebuildResult{FromYear: fromYear, ToYear: toYear}

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		if err := tx.LockInstallation(ctx, installationID); err != nil {
			return err
		}
		if err := tx.DeleteMonthlyStats(ctx, installationID, fromYear, toYear); err != nil {
			return err
		}
		yearStart, yearEnd := domain.YearBounds(fromYear, toYear)
		entries, err := tx.ListEntriesStartingIn(ctx, installationID, yearStart, yearEnd)
		if err != nil {
			return err
		}
		stats := domain.AggregateMonthly(installationID, entries)
		res.Months = len(stats)
		return tx.InsertMonthlyStats(ctx, stats)
	})
	metrics.ObserveRebuild(metrics.Result(err), time.Since(start))
	if err != nil {
		return RebuildResult{}, fmt.Errorf("failed to rebuild monthly statistics: %w", err)
	}

	s.logger.Info().
		Int64("installation", installationID).
		Int("from_year", fromYear).
		Int("to_year", toYear).
		Int("months", res.Months).
		Msg("monthly statistics rebuilt")
	return res, nil
}

// ListMonthlyStatistics returns the stored statistics of [fromYear, toYear].
func (s *StatisticsService) ListMonthlyStatistics(ctx context.Context, installationID int64, fromYear, toYear int) ([]domain.MonthlyStatistic, error) {
	if fromYear > toYear {
		return nil, domain.FieldError("to_year", "must not be before from_year")
	}
	if _, err := s.store.GetInstallation(ctx, installationID); err != nil {
		return nil, err
	}
	return s.store.ListMonthlyStats(ctx, installationID, fromYear, toYear)
}

func checkWindow(from, to time.Time) error {
	if from.IsZero() {
		return domain.FieldError("from", "is required")
	}
	if to.IsZero() {
		return domain.FieldError("to", "is required")
	}
	if !from.Before(to) {
		return domain.FieldError("to", "must be after from")
	}
	return nil
}
