package domain

import (
	"context"
	"time"
)

// InstallationRepository resolves installations with their panels and provider settings.
type InstallationRepository interface {
	GetInstallation(ctx context.Context, id int64) (*Installation, error)
}

// ProductionRepository reads and writes production entries.
// Window queries select entries with From >= from and To <= to.
type ProductionRepository interface {
	InsertEntries(ctx context.Context, entries []ProductionEntry) error
	ListEntries(ctx context.Context, installationID int64, from, to time.Time) ([]ProductionEntry, error)
	// ListEntriesStartingIn selects entries with from <= From < to, ordered by From then ID.
	ListEntriesStartingIn(ctx context.Context, installationID int64, from, to time.Time) ([]ProductionEntry, error)
	UpdateEstimate(ctx context.Context, entry ProductionEntry) error
	DeleteEntries(ctx context.Context, installationID int64, from, to time.Time) (int64, error)
}

// StatisticRepository reads and writes monthly statistics.
type StatisticRepository interface {
	// LockInstallation serializes rebuilds for one installation until the
	// surrounding transaction ends.
	LockInstallation(ctx context.Context, installationID int64) error
	DeleteMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) error
	InsertMonthlyStats(ctx context.Context, stats []MonthlyStatistic) error
	ListMonthlyStats(ctx context.Context, installationID int64, fromYear, toYear int) ([]MonthlyStatistic, error)
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	ProductionRepository
	StatisticRepository
}

// Store is the relational store used by the estimation and aggregation services.
type Store interface {
	InstallationRepository
	ProductionRepository
	StatisticRepository
	// Atomic runs fn in one transaction. A non-nil error rolls everything back.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
