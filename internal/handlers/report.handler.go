package handlers

import (
	"pooltrack/internal/app"
	"pooltrack/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	Handler
	stats *services.StatsService
}

func NewReportHandler(app app.App, router fiber.Router) *ReportHandler {
	log := logger.New("handlers").File("report_handler")
	return &ReportHandler{
		stats: app.Services.Stats,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ReportHandler) Register() {
	h.router.Get("/weeks/:week/progress", h.weekProgress)
	h.router.Get("/reports/unpaid", h.unpaidVisits)
	h.router.Get("/summary", h.summary)
}

func (h *ReportHandler) weekProgress(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("weekProgress")

	week, err := weekParam(c)
	if err != nil {
		return errorResponse(c, err, "Invalid week")
	}

	progress, err := h.stats.WeekProgress(c.Context(), week)
	if err != nil {
		_ = log.Err("failed to build week progress", err)
		return errorResponse(c, err, "Failed to build week progress")
	}

	return c.JSON(fiber.Map{"progress": progress})
}

func (h *ReportHandler) unpaidVisits(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("unpaidVisits")

	report, err := h.stats.UnpaidVisits(c.Context())
	if err != nil {
		_ = log.Err("failed to build unpaid report", err)
		return errorResponse(c, err, "Failed to build unpaid report")
	}

	return c.JSON(fiber.Map{"report": report})
}

func (h *ReportHandler) summary(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("summary")

	summary, err := h.stats.Overview(c.Context())
	if err != nil {
		_ = log.Err("failed to build summary", err)
		return errorResponse(c, err, "Failed to build summary")
	}

	return c.JSON(fiber.Map{"summary": summary})
}
