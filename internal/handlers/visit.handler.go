package handlers

import (
	"time"

	"pooltrack/internal/app"
	"pooltrack/internal/database"
	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"
	"pooltrack/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type VisitHandler struct {
	Handler
	db         database.DB
	repos      repositories.Repository
	completion *services.CompletionService
	audit      *services.AuditService
}

func NewVisitHandler(app app.App, router fiber.Router) *VisitHandler {
	log := logger.New("handlers").File("visit_handler")
	return &VisitHandler{
		db:         app.Database,
		repos:      app.Repos,
		completion: app.Services.Completion,
		audit:      app.Services.Audit,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *VisitHandler) Register() {
	visits := h.router.Group("/visits")

	visits.Post("", h.registerVisit)
	visits.Get("/:id", h.getVisit)
	visits.Post("/:id/invoice", h.invoiceVisit)

	invoices := h.router.Group("/invoices")
	invoices.Post("/sync", h.syncInvoices)
	invoices.Post("/retry", h.retryInvoices)
}

type visitRequest struct {
	ClientID      int              `json:"clientId"`
	VisitDate     string           `json:"visitDate"`
	ResponsibleID *int             `json:"responsibleId"`
	Price         *decimal.Decimal `json:"price"`
	Notes         *string          `json:"notes"`
}

func (h *VisitHandler) registerVisit(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("registerVisit")

	var req visitRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.ClientID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "clientId is required"})
	}

	visitDate := DateOf(time.Now().UTC())
	if req.VisitDate != "" {
		parsed, err := ParseDate(req.VisitDate)
		if err != nil {
			return errorResponse(c, err, "Invalid visit date")
		}
		visitDate = parsed
	}

	visit := &Visit{
		ClientID:      req.ClientID,
		VisitDate:     visitDate,
		ResponsibleID: req.ResponsibleID,
		Notes:         normalizeText(req.Notes),
	}
	if req.Price != nil {
		visit.Price = *req.Price
	}

	result, err := h.completion.RegisterVisit(c.Context(), visit)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to register visit", err, "clientID", req.ClientID)
		}
		return errorResponse(c, err, "Failed to register visit")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": result})
}

func (h *VisitHandler) getVisit(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getVisit")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid visit id"})
	}

	visit, err := h.repos.Visit.GetByID(c.Context(), h.db.SQLWithContext(c.Context()), id)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to get visit", err, "id", id)
		}
		return errorResponse(c, err, "Failed to get visit")
	}

	return c.JSON(fiber.Map{"visit": visit})
}

func (h *VisitHandler) invoiceVisit(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("invoiceVisit")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid visit id"})
	}

	invoice, err := h.completion.InvoiceVisit(c.Context(), id)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to invoice visit", err, "id", id)
		}
		return errorResponse(c, err, "Failed to invoice visit")
	}

	return c.JSON(fiber.Map{"invoice": invoice})
}

func (h *VisitHandler) syncInvoices(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("syncInvoices")

	report, err := h.audit.ReconcileInvoiceState(c.Context())
	if err != nil {
		_ = log.Err("failed to sync invoice states", err)
		return errorResponse(c, err, "Failed to sync invoice states")
	}

	return c.JSON(fiber.Map{"report": report})
}

func (h *VisitHandler) retryInvoices(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("retryInvoices")

	report, err := h.audit.RetryPendingInvoices(c.Context(), c.QueryBool("includeFailed"))
	if err != nil {
		_ = log.Err("failed to retry pending invoices", err)
		return errorResponse(c, err, "Failed to retry pending invoices")
	}

	return c.JSON(fiber.Map{"report": report})
}
