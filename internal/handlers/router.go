package handlers

import (
	"errors"

	"pooltrack/internal/app"
	"pooltrack/internal/handlers/middleware"
	"pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.TraceID())

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewClientHandler(*app, api).Register()
	NewTechnicianHandler(*app, api).Register()
	NewWeekHandler(*app, api).Register()
	NewVisitHandler(*app, api).Register()
	NewReportHandler(*app, api).Register()

	return nil
}

// errorResponse maps the shared error kinds onto HTTP statuses. Anything
// unclassified is a 500 with a generic message.
func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrExternalService):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}

// weekParam parses the :week route parameter, normalized to its Monday.
func weekParam(c *fiber.Ctx) (datatypes.Date, error) {
	return models.ParseWeekStart(c.Params("week"))
}
