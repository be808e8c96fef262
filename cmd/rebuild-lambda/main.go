package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/app"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/config"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

// Monthly statistics rebuild, triggered on a schedule or on demand.

type LambdaEvent struct {
	InstallationID int64  `json:"installation_id"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type LambdaResponse struct {
	StatusCode int            `json:"statusCode"`
	Body       map[string]any `json:"body"`
}

type rebuilder interface {
	Rebuild(ctx context.Context, installationID int64, from, to time.Time) (service.RebuildResult, error)
}

// window resolves the event window. Without from/to the current UTC year is rebuilt.
func (e LambdaEvent) window(now time.Time) (time.Time, time.Time, error) {
	if e.From == "" && e.To == "" {
		start := time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, now.UTC(), nil
	}
	from, err := time.Parse(time.RFC3339, e.From)
	if err != nil {
		return time.Time{}, time.Time{}, domain.FieldError("from", "not an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, e.To)
	if err != nil {
		return time.Time{}, time.Time{}, domain.FieldError("to", "not an RFC 3339 timestamp")
	}
	return from.UTC(), to.UTC(), nil
}

func newHandler(stats rebuilder, now func() time.Time) func(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	return func(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
		if event.InstallationID <= 0 {
			return LambdaResponse{StatusCode: 400, Body: map[string]any{"error": "installation_id is required"}}, nil
		}
		from, to, err := event.window(now())
		if err != nil {
			return LambdaResponse{StatusCode: 400, Body: map[string]any{"error": err.Error()}}, nil
		}

		res, err := stats.Rebuild(ctx, event.InstallationID, from, to)
		switch {
		case domain.IsValidation(err):
			return LambdaResponse{StatusCode: 400, Body: map[string]any{"error": err.Error()}}, nil
		case errors.Is(err, domain.ErrInstallationNotFound):
			return LambdaResponse{StatusCode: 404, Body: map[string]any{"error": err.Error()}}, nil
		case err != nil:
			return LambdaResponse{}, fmt.Errorf("failed to rebuild installation %d: %w", event.InstallationID, err)
		}

		return LambdaResponse{
			StatusCode: 200,
			Body: map[string]any{
				"installation_id": event.InstallationID,
				"from_year":       res.FromYear,
				"to_year":         res.ToYear,
				"months":          res.Months,
			},
		}, nil
	}
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(app.ParseLevel(config.LogLevel()))
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "rebuild-lambda").Logger()

	svcs, closeStore, err := app.Build(context.Background(), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	defer closeStore()

	lambda.Start(newHandler(svcs.Statistics, time.Now))
}
