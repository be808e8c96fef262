package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

type importRequest struct {
	Rows []service.RawRow `json:"rows"`
}

func Register(app *fiber.App, svcs *service.Services, logger zerolog.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/installations/:id")

	g.Post("/import-production-data", func(c *fiber.Ctx) error {
		id, err := installationID(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		var req importRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, logger, domain.FieldError("body", "invalid JSON payload"))
		}
		res, err := svcs.Production.ImportMeasuredProduction(c.UserContext(), id, req.Rows)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	g.Post("/recalculate-estimated-production", func(c *fiber.Ctx) error {
		id, from, to, err := windowParams(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		res, err := svcs.Production.RecalculateEstimates(c.UserContext(), id, from, to)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(res)
	})

	g.Post("/recalculate-monthly-stats", func(c *fiber.Ctx) error {
		id, from, to, err := windowParams(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		res, err := svcs.Statistics.Rebuild(c.UserContext(), id, from, to)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(res)
	})

	g.Delete("/production", func(c *fiber.Ctx) error {
		id, from, to, err := windowParams(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		res, err := svcs.Production.DeleteProduction(c.UserContext(), id, from, to)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(res)
	})

	g.Get("/monthly-stats", func(c *fiber.Ctx) error {
		id, err := installationID(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		year := time.Now().UTC().Year()
		fromYear := c.QueryInt("from_year", year)
		toYear := c.QueryInt("to_year", fromYear)
		items, err := svcs.Statistics.ListMonthlyStatistics(c.UserContext(), id, fromYear, toYear)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(items)
	})
}

func installationID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.FieldError("id", "invalid installation id")
	}
	return id, nil
}

func windowParams(c *fiber.Ctx) (int64, time.Time, time.Time, error) {
	id, err := installationID(c)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	return id, from, to, nil
}

func timeQuery(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, domain.FieldError(name, "missing query parameter")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.FieldError(name, "not an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

func writeError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Error()}
		if verr.Index >= 0 {
			body["row"] = verr.Index
		}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, domain.ErrInstallationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
