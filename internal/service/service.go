package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/estimator"
)

// DefaultChunkSize is the number of rows estimated and written per chunk.
const DefaultChunkSize = 100

// Services groups the production and statistics use cases over one store.
type Services struct {
	Store      domain.Store
	Production *ProductionService
	Statistics *StatisticsService
}

// ImportProgress is reported once per estimated chunk of an import.
type ImportProgress struct {
	BatchID        string
	InstallationID int64
	Chunk          int
	Chunks         int
	Rows           int
	Estimated      int
}

// ImportObserver receives import progress. Implementations must be safe for
// concurrent imports.
type ImportObserver interface {
	ChunkEstimated(ctx context.Context, p ImportProgress)
}

// ImportBatch is the raw batch handed to an Archiver after a successful import.
type ImportBatch struct {
	ID             string    `json:"batch_id"`
	InstallationID int64     `json:"installation_id"`
	ReceivedAt     time.Time `json:"received_at"`
	Rows           []RawRow  `json:"rows"`
}

// Archiver stores accepted import batches.
type Archiver interface {
	ArchiveBatch(ctx context.Context, batch ImportBatch) error
}

// Summary describes a finished import or re-estimation.
type Summary struct {
	Kind            string    `json:"kind"`
	BatchID         string    `json:"batch_id,omitempty"`
	InstallationID  int64     `json:"installation_id"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Imported        int       `json:"imported,omitempty"`
	Estimated       int       `json:"estimated,omitempty"`
	WithoutEstimate int       `json:"without_estimate,omitempty"`
	Updated         int       `json:"updated,omitempty"`
	Skipped         int       `json:"skipped,omitempty"`
}

// Notifier publishes summaries.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

type options struct {
	logger    zerolog.Logger
	chunkSize int
	workers   int
	observer  ImportObserver
	archiver  Archiver
	notifier  Notifier
	now       func() time.Time
}

// Option configures Services.
type Option func(*options)

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithChunkSize sets the import chunk size. Values below 1 keep the default.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithWorkers bounds concurrent row estimation inside a chunk.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithObserver(obs ImportObserver) Option { return func(o *options) { o.observer = obs } }
func WithArchiver(a Archiver) Option        { return func(o *options) { o.archiver = a } }
func WithNotifier(n Notifier) Option        { return func(o *options) { o.notifier = n } }

func New(store domain.Store, est *estimator.Estimator, opts ...Option) *Services {
	o := options{
		logger:    zerolog.Nop(),
		chunkSize: DefaultChunkSize,
		workers:   8,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = logObserver{logger: o.logger}
	}

	stats := &StatisticsService{
		store:  store,
		logger: o.logger.With().Str("component", "statistics").Logger(),
	}
	return &Services{
		Store: store,
		Production: &ProductionService{
			store:      store,
			estimator:  est,
			statistics: stats,
			opts:       o,
			logger:     o.logger.With().Str("component", "production").Logger(),
		},
		Statistics: stats,
	}
}

type logObserver struct {
	logger zerolog.Logger
}

func (l logObserver) ChunkEstimated(_ context.Context, p ImportProgress) {
	l.logger.Debug().
		Str("batch", p.BatchID).
		Int64("installation", p.InstallationID).
		Int("chunk", p.Chunk).
		Int("chunks", p.Chunks).
		Int("rows", p.Rows).
		Int("estimated", p.Estimated).
		Msg("import chunk estimated")
}
