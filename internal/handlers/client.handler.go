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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ClientHandler struct {
	Handler
	db          database.DB
	repos       repositories.Repository
	transaction *services.TransactionService
	completion  *services.CompletionService
}

type clientRequest struct {
	Name           *string          `json:"name"`
	TaxID          *string          `json:"taxId"`
	Address        *string          `json:"address"`
	Commune        *string          `json:"commune"`
	Phone          *string          `json:"phone"`
	Email          *string          `json:"email"`
	DocumentType   *string          `json:"documentType"`
	ResponsibleID  *int             `json:"responsibleId"`
	Responsible    *string          `json:"responsible"`
	AttendanceDays *[]string        `json:"attendanceDays"`
	VisitPrice     *decimal.Decimal `json:"visitPrice"`
	Active         *bool            `json:"active"`
	Notes          *string          `json:"notes"`
}

func NewClientHandler(app app.App, router fiber.Router) *ClientHandler {
	log := logger.New("handlers").File("client_handler")
	return &ClientHandler{
		db:          app.Database,
		repos:       app.Repos,
		transaction: app.Services.Transaction,
		completion:  app.Services.Completion,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ClientHandler) Register() {
	clients := h.router.Group("/clients")

	clients.Get("", h.listClients)
	clients.Post("", h.createClient)
	clients.Get("/:id", h.getClient)
	clients.Patch("/:id", h.updateClient)
	clients.Delete("/:id", h.deactivateClient)
	clients.Get("/:id/visits", h.listClientVisits)
	clients.Post("/:id/invoice-sync", h.syncClientParty)
}

func (h *ClientHandler) listClients(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listClients")

	filter := repositories.ClientFilter{}
	if c.Query("active") != "" {
		active := c.QueryBool("active")
		filter.Active = &active
	}
	if c.QueryInt("responsibleId") > 0 {
		id := c.QueryInt("responsibleId")
		filter.ResponsibleID = &id
	}

	clients, err := h.repos.Client.List(c.Context(), h.db.SQLWithContext(c.Context()), filter)
	if err != nil {
		_ = log.Err("failed to list clients", err)
		return errorResponse(c, err, "Failed to list clients")
	}

	return c.JSON(fiber.Map{"clients": clients})
}

func (h *ClientHandler) getClient(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getClient")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	client, err := h.repos.Client.GetByID(c.Context(), h.db.SQLWithContext(c.Context()), id)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to get client", err, "id", id)
		}
		return errorResponse(c, err, "Failed to get client")
	}

	return c.JSON(fiber.Map{"client": client})
}

// resolveResponsible turns either a technician id or a free-form name into a
// technician id, creating the technician on first sight of a new name.
func (h *ClientHandler) resolveResponsible(
	c *fiber.Ctx,
	req clientRequest,
) (*int, error) {
	if req.ResponsibleID != nil {
		return req.ResponsibleID, nil
	}
	if req.Responsible == nil || *req.Responsible == "" {
		return nil, nil
	}

	var id *int
	err := h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		technician, err := h.repos.Technician.GetOrCreateByName(ctx, tx, *req.Responsible)
		if err != nil {
			return err
		}
		id = &technician.ID
		return nil
	})
	return id, err
}

func (h *ClientHandler) createClient(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createClient")

	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name == nil || *req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	days, err := parseDays(req.AttendanceDays)
	if err != nil {
		return errorResponse(c, err, "Invalid attendance days")
	}

	client := &Client{
		Name:           *req.Name,
		TaxID:          normalizeText(req.TaxID),
		Address:        normalizeText(req.Address),
		Commune:        normalizeText(req.Commune),
		Phone:          normalizeText(req.Phone),
		Email:          normalizeText(req.Email),
		AttendanceDays: days,
		Notes:          normalizeText(req.Notes),
		Active:         true,
	}
	client.Billing.DocumentType = DocumentBoleta
	if req.DocumentType != nil {
		client.Billing.DocumentType = DocumentType(*req.DocumentType)
	}
	if req.VisitPrice != nil {
		client.VisitPrice = *req.VisitPrice
	}

	responsibleID, err := h.resolveResponsible(c, req)
	if err != nil {
		_ = log.Err("failed to resolve technician", err)
		return errorResponse(c, err, "Failed to resolve technician")
	}
	client.ResponsibleID = responsibleID

	err = h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		return h.repos.Client.Create(ctx, tx, client)
	})
	if err != nil {
		_ = log.Err("failed to create client", err, "name", client.Name)
		return errorResponse(c, err, "Failed to create client")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"client": client})
}

func (h *ClientHandler) updateClient(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateClient")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	patch := ClientPatch{}
	if req.Name != nil {
		patch.Name = Set(*req.Name)
	}
	if req.TaxID != nil {
		patch.TaxID = Set(normalizeText(req.TaxID))
	}
	if req.Address != nil {
		patch.Address = Set(normalizeText(req.Address))
	}
	if req.Commune != nil {
		patch.Commune = Set(normalizeText(req.Commune))
	}
	if req.Phone != nil {
		patch.Phone = Set(normalizeText(req.Phone))
	}
	if req.Email != nil {
		patch.Email = Set(normalizeText(req.Email))
	}
	if req.DocumentType != nil {
		patch.DocumentType = Set(DocumentType(*req.DocumentType))
	}
	if req.VisitPrice != nil {
		patch.VisitPrice = Set(*req.VisitPrice)
	}
	if req.Active != nil {
		patch.Active = Set(*req.Active)
	}
	if req.Notes != nil {
		patch.Notes = Set(normalizeText(req.Notes))
	}
	if req.AttendanceDays != nil {
		days, err := parseDays(req.AttendanceDays)
		if err != nil {
			return errorResponse(c, err, "Invalid attendance days")
		}
		patch.AttendanceDays = Set(days)
	}
	if req.ResponsibleID != nil || (req.Responsible != nil && *req.Responsible != "") {
		responsibleID, err := h.resolveResponsible(c, req)
		if err != nil {
			_ = log.Err("failed to resolve technician", err)
			return errorResponse(c, err, "Failed to resolve technician")
		}
		patch.ResponsibleID = Set(responsibleID)
	}

	var client *Client
	err = h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		var err error
		client, err = h.repos.Client.Update(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to update client", err, "id", id)
		}
		return errorResponse(c, err, "Failed to update client")
	}

	return c.JSON(fiber.Map{"client": client})
}

func (h *ClientHandler) deactivateClient(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deactivateClient")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	err = h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		return h.repos.Client.Deactivate(ctx, tx, id)
	})
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to deactivate client", err, "id", id)
		}
		return errorResponse(c, err, "Failed to deactivate client")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ClientHandler) listClientVisits(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listClientVisits")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	limit := c.QueryInt("limit", 50)
	visits, err := h.repos.Visit.ListByClient(
		c.Context(), h.db.SQLWithContext(c.Context()), id, limit,
	)
	if err != nil {
		_ = log.Err("failed to list client visits", err, "id", id)
		return errorResponse(c, err, "Failed to list client visits")
	}

	return c.JSON(fiber.Map{"visits": visits})
}

func (h *ClientHandler) syncClientParty(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("syncClientParty")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	client, err := h.completion.SyncParty(c.Context(), id)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to sync client party", err, "id", id)
		}
		return errorResponse(c, err, "Failed to sync client party")
	}

	return c.JSON(fiber.Map{"client": client})
}

func parseDays(raw *[]string) (Weekdays, error) {
	if raw == nil {
		return nil, nil
	}
	days := make(Weekdays, 0, len(*raw))
	for _, value := range *raw {
		day, err := ParseWeekday(value)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days.Dedupe(), nil
}

func normalizeText(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
