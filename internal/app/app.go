// Package app wires configuration, storage, providers and cloud sinks into the
// services shared by the api, ingestor and rebuild-lambda binaries.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/cloud"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/config"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/database"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/estimator"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/providers"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/repository"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/repository/memory"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

// Build creates the services from the loaded configuration. The returned close
// function releases the database pool.
func Build(ctx context.Context, logger zerolog.Logger) (*service.Services, func(), error) {
	store, closeStore, err := openStore(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	var cache providers.SeriesCache
	var opts []service.Option
	if config.UseCloudServices() {
		if table := config.DynamoDBCacheTable(); table != "" {
			c, err := cloud.NewDynamoDBClient(ctx, config.AWSRegion(), table)
			if err != nil {
				closeStore()
				return nil, nil, err
			}
			cache = c
		}
		if bucket := config.S3Bucket(); bucket != "" {
			s3c, err := cloud.NewS3Client(ctx, config.AWSRegion(), bucket)
			if err != nil {
				closeStore()
				return nil, nil, err
			}
			opts = append(opts, service.WithArchiver(s3c))
		}
		if topic := config.SNSTopicArn(); topic != "" {
			snsc, err := cloud.NewSNSClient(ctx, config.AWSRegion(), topic)
			if err != nil {
				closeStore()
				return nil, nil, err
			}
			opts = append(opts, service.WithNotifier(snsc))
		}
		logger.Info().Bool("series_cache", cache != nil).Int("sinks", len(opts)).Msg("cloud services enabled")
	}

	providerOpts := []providers.Option{
		providers.WithTimeout(config.ProviderTimeout()),
		providers.WithRetries(config.ProviderRetries()),
		providers.WithLogger(logger),
	}
	pvgis := providers.NewPVGIS(config.PVGISMinYear(), config.PVGISMaxYear(),
		append(providerOpts, providers.WithBaseURL(config.PVGISBaseURL()))...)
	openMeteo := providers.NewOpenMeteo(append(providerOpts, providers.WithBaseURL(config.OpenMeteoBaseURL()))...)

	est := estimator.New(logger, config.ProviderTimeout(),
		providers.WithCache(pvgis, cache, logger),
		providers.WithCache(openMeteo, cache, logger),
	)

	opts = append(opts,
		service.WithLogger(logger),
		service.WithChunkSize(config.ImportChunkSize()),
		service.WithWorkers(config.EstimateWorkers()),
	)
	return service.New(store, est, opts...), closeStore, nil
}

func openStore(ctx context.Context, logger zerolog.Logger) (domain.Store, func(), error) {
	switch driver := config.StoreDriver(); driver {
	case "memory":
		metrics.Init(nil)
		store := memory.New()
		if err := store.AddInstallation(DemoInstallation()); err != nil {
			return nil, nil, err
		}
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		return store, func() {}, nil
	case "postgres", "":
		db, err := database.Connect()
		if err != nil {
			return nil, nil, err
		}
		if config.MigrateOnStart() {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		metrics.Init(db.DB)
		return repository.New(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// DemoInstallation is the installation seeded into the in-memory store.
func DemoInstallation() domain.Installation {
	return domain.Installation{
		ID:        1,
		OwnerID:   1,
		Name:      "demo rooftop",
		Longitude: 8.5417,
		Latitude:  47.3769,
		Panels: []domain.Panel{
			{ID: "south", PeakPowerKWp: 6.4, Slope: 35, Azimuth: 0, SystemLoss: domain.DefaultSystemLoss},
			{ID: "west", PeakPowerKWp: 3.2, Slope: 20, Azimuth: 90, SystemLoss: domain.DefaultSystemLoss},
		},
		PVGIS:     domain.PVGISConfig{Enabled: true, RadiationDatabase: "PVGIS-SARAH3", MountingType: "0", PVTechnology: "crystSi"},
		OpenMeteo: domain.OpenMeteoConfig{Enabled: true},
	}
}

// ParseLevel maps LOG_LEVEL to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
