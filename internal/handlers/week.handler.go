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

type WeekHandler struct {
	Handler
	db          database.DB
	repos       repositories.Repository
	transaction *services.TransactionService
	reconciler  *services.ReconcilerService
	completion  *services.CompletionService
	audit       *services.AuditService
}

func NewWeekHandler(app app.App, router fiber.Router) *WeekHandler {
	log := logger.New("handlers").File("week_handler")
	return &WeekHandler{
		db:          app.Database,
		repos:       app.Repos,
		transaction: app.Services.Transaction,
		reconciler:  app.Services.Reconciler,
		completion:  app.Services.Completion,
		audit:       app.Services.Audit,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *WeekHandler) Register() {
	weeks := h.router.Group("/weeks")
	weeks.Get("/current", h.currentWeek)
	weeks.Post("/:week/reconcile", h.reconcileWeek)
	weeks.Get("/:week/assignments", h.listAssignments)
	weeks.Post("/:week/audit", h.auditWeek)
	weeks.Delete("/:week", h.deleteWeek)

	assignments := h.router.Group("/assignments")
	assignments.Post("/", h.createAssignment)
	assignments.Patch("/:id", h.updateAssignment)
	assignments.Post("/:id/complete", h.completeAssignment)
}

func (h *WeekHandler) currentWeek(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"weekStart": FormatDate(CurrentWeekStart())})
}

func (h *WeekHandler) reconcileWeek(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("reconcileWeek")

	week, err := weekParam(c)
	if err != nil {
		return errorResponse(c, err, "Invalid week")
	}

	summary, err := h.reconciler.Reconcile(c.Context(), week)
	if err != nil {
		_ = log.Err("failed to reconcile week", err)
		return errorResponse(c, err, "Failed to reconcile week")
	}

	return c.JSON(fiber.Map{"summary": summary})
}

func (h *WeekHandler) listAssignments(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listAssignments")

	week, err := weekParam(c)
	if err != nil {
		return errorResponse(c, err, "Invalid week")
	}

	filter := repositories.AssignmentFilter{}
	if c.QueryInt("responsibleId") > 0 {
		id := c.QueryInt("responsibleId")
		filter.ResponsibleID = &id
	}
	if c.Query("completed") != "" {
		completed := c.QueryBool("completed")
		filter.Completed = &completed
	}
	if c.QueryBool("withNotes") {
		filter.WithNotes = true
	}

	assignments, err := h.repos.Assignment.ListByWeek(
		c.Context(), h.db.SQLWithContext(c.Context()), week, filter,
	)
	if err != nil {
		_ = log.Err("failed to list assignments", err)
		return errorResponse(c, err, "Failed to list assignments")
	}

	return c.JSON(fiber.Map{"assignments": assignments})
}

func (h *WeekHandler) auditWeek(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("auditWeek")

	week, err := weekParam(c)
	if err != nil {
		return errorResponse(c, err, "Invalid week")
	}

	report, err := h.audit.RunAudit(c.Context(), week)
	if err != nil {
		_ = log.Err("failed to audit week", err)
		return errorResponse(c, err, "Failed to audit week")
	}

	return c.JSON(fiber.Map{"report": report})
}

func (h *WeekHandler) deleteWeek(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteWeek")

	week, err := weekParam(c)
	if err != nil {
		return errorResponse(c, err, "Invalid week")
	}

	deleted, err := h.audit.DeleteWeek(c.Context(), week)
	if err != nil {
		_ = log.Err("failed to delete week", err)
		return errorResponse(c, err, "Failed to delete week")
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}

type assignmentRequest struct {
	ResponsibleID *int             `json:"responsibleId"`
	AttendanceDay *string          `json:"attendanceDay"`
	Price         *decimal.Decimal `json:"price"`
	Notes         *string          `json:"notes"`
}

type createAssignmentRequest struct {
	WeekStart string `json:"weekStart"`
	ClientID  int    `json:"clientId"`
	assignmentRequest
}

func (h *WeekHandler) createAssignment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createAssignment")

	var req createAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	week, err := ParseWeekStart(req.WeekStart)
	if err != nil {
		return errorResponse(c, err, "Invalid week start")
	}
	if req.ClientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Client id is required"})
	}

	input := services.CreateAssignmentInput{
		WeekStart:     week,
		ClientID:      req.ClientID,
		ResponsibleID: req.ResponsibleID,
		Price:         req.Price,
		Notes:         normalizeText(req.Notes),
	}
	if req.AttendanceDay != nil && *req.AttendanceDay != "" {
		day, err := ParseWeekday(*req.AttendanceDay)
		if err != nil {
			return errorResponse(c, err, "Invalid attendance day")
		}
		input.AttendanceDay = &day
	}

	assignment, err := h.reconciler.CreateAssignment(c.Context(), input)
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to create assignment", err, "clientID", req.ClientID)
		}
		return errorResponse(c, err, "Failed to create assignment")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignment": assignment})
}

func (h *WeekHandler) updateAssignment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateAssignment")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment id"})
	}

	var req assignmentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	patch := AssignmentPatch{}
	if req.ResponsibleID != nil {
		patch.ResponsibleID = Set(req.ResponsibleID)
	}
	if req.Price != nil {
		patch.Price = Set(*req.Price)
	}
	if req.Notes != nil {
		patch.Notes = Set(normalizeText(req.Notes))
	}
	if req.AttendanceDay != nil {
		if *req.AttendanceDay == "" {
			patch.AttendanceDay = Set[*Weekday](nil)
		} else {
			day, err := ParseWeekday(*req.AttendanceDay)
			if err != nil {
				return errorResponse(c, err, "Invalid attendance day")
			}
			patch.AttendanceDay = Set(&day)
		}
	}

	var assignment *Assignment
	err = h.transaction.Execute(c.Context(), func(ctx context.Context, tx *gorm.DB) error {
		var err error
		assignment, err = h.repos.Assignment.Update(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to update assignment", err, "id", id)
		}
		return errorResponse(c, err, "Failed to update assignment")
	}

	return c.JSON(fiber.Map{"assignment": assignment})
}

func (h *WeekHandler) completeAssignment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("completeAssignment")

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment id"})
	}

	var req struct {
		Notes *string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.completion.MarkCompleted(c.Context(), id, normalizeText(req.Notes))
	if err != nil {
		if !IsNotFound(err) {
			_ = log.Err("failed to complete assignment", err, "id", id)
		}
		return errorResponse(c, err, "Failed to complete assignment")
	}

	return c.JSON(fiber.Map{"result": result})
}
