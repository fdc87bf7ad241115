package handlers

import (
	"context"

	"pooltrack/internal/app"
	"pooltrack/internal/database"
	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"
	"pooltrack/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TechnicianHandler struct {
	Handler
	db          database.DB
	repos       repositories.Repository
	transaction *services.TransactionService
}

func NewTechnicianHandler(app app.App, router fiber.Router) *TechnicianHandler {
	log := logger.New("handlers").File("technician_handler")
	return &TechnicianHandler{
		db:          app.Database,
		repos:       app.Repos,
		transaction: app.Services.Transaction,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *TechnicianHandler) Register() {
	technicians := h.router.Group("/technicians")

	technicians.Get("", h.listTechnicians)
	technicians.Get("/active", h.listActiveTechnicians)
	technicians.Post("", h.createTechnician)
	technicians.Patch("/:id/active", h.setActive)
}

func (h *TechnicianHandler) listTechnicians(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listTechnicians")

	technicians, err := h.repos.Technician.List(c.Context(), h.db.SQLWithContext(c.Context()))
	if err != nil {
		_ = log.Err("failed to list technicians", err)
		return errorResponse(c, err, "Failed to list technicians")
	}

	return c.JSON(fiber.Map{"technicians": technicians})
}

func (h *TechnicianHandler) listActiveTechnicians(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listActiveTechnicians")

	technicians, err := h.repos.Technician.ListActive(
		c.Context(), h.db.SQLWithContext(c.Context()),
	)
	if err != nil {
		_ = log.Err("failed to list active technicians", err)
		return errorResponse(c, err, "Failed to list active technicians")
	}

	return c.JSON(fiber.Map{"technicians": technicians})
}

func (h *TechnicianHandler) createTechnician(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createTechnician")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var technician *Technician
	err := h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		var err error
		technician, err = h.repos.Technician.GetOrCreateByName(ctx, tx, req.Name)
		return err
	})
	if err != nil {
		_ = log.Err("failed to create technician", err, "name", req.Name)
		return errorResponse(c, err, "Failed to create technician")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"technician": technician})
}

func (h *TechnicianHandler) setActive(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("setActive")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid technician id"})
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err = h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		return h.repos.Technician.SetActive(ctx, tx, id, req.Active)
	})
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to update technician", err, "id", id)
		}
		return errorResponse(c, err, "Failed to update technician")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
