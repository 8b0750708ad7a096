package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/service"
	"github.com/noah-isme/career-agent-api/internal/utils"
)

// InsightHandler exposes the AI passthrough endpoints over a stored roadmap.
type InsightHandler struct {
	service service.InsightService
	logger  zerolog.Logger
}

// NewInsightHandler constructs an insight handler.
func NewInsightHandler(svc service.InsightService, logger zerolog.Logger) *InsightHandler {
	return &InsightHandler{
		service: svc,
		logger:  logger.With().Str("component", "insight_handler").Logger(),
	}
}

// Register wires insight routes under the id-scoped roadmap prefix.
func (h *InsightHandler) Register(router fiber.Router) {
	router.Get("/roadmap/id/:id/skills-gap", h.skillsGap)
	router.Get("/roadmap/id/:id/weekly-plan", h.weeklyPlan)
	router.Post("/roadmap/id/:id/explain-step", h.explainStep)
	router.Get("/roadmap/id/:id/mock-interview", h.mockInterview)
}

func (h *InsightHandler) skillsGap(c *fiber.Ctx) error {
	return h.serve(c, "skills gap analyzed", func(id uint) (dto.InsightResponse, error) {
		return h.service.SkillsGap(c.Context(), userIDFromContext(c), id)
	})
}

func (h *InsightHandler) weeklyPlan(c *fiber.Ctx) error {
	return h.serve(c, "weekly plan generated", func(id uint) (dto.InsightResponse, error) {
		return h.service.WeeklyPlan(c.Context(), userIDFromContext(c), id)
	})
}

func (h *InsightHandler) mockInterview(c *fiber.Ctx) error {
	return h.serve(c, "mock interview generated", func(id uint) (dto.InsightResponse, error) {
		return h.service.MockInterview(c.Context(), userIDFromContext(c), id)
	})
}

func (h *InsightHandler) explainStep(c *fiber.Ctx) error {
	var payload dto.ExplainStepRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	return h.serve(c, "step explained", func(id uint) (dto.InsightResponse, error) {
		return h.service.ExplainStep(c.Context(), userIDFromContext(c), id, payload)
	})
}

func (h *InsightHandler) serve(c *fiber.Ctx, message string, call func(id uint) (dto.InsightResponse, error)) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := call(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoadmapNotFound):
			return utils.SendError(c, fiber.StatusNotFound, service.ErrRoadmapNotFound.Error())
		case errors.Is(err, service.ErrUnknownStep), isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("path", c.Path()).Msg("insight request failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "insight request failed")
		}
	}

	return utils.SendSuccess(c, message, result)
}
