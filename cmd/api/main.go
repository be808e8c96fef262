package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/app"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/config"
	httpHandlers "github.com/ANIKETSHETTY47/solar-production-analytics/internal/http"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(app.ParseLevel(config.LogLevel()))
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api").Logger()

	svcs, closeStore, err := app.Build(context.Background(), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	defer closeStore()

	server := fiber.New(fiber.Config{AppName: "solar-production-analytics"})
	httpHandlers.Register(server, svcs, logger)

	addr := config.APIAddr()
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(server.Listen(addr)).Msg("server exit")
}
