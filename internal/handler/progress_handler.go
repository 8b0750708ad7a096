package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/service"
	"github.com/noah-isme/career-agent-api/internal/utils"
)

// ProgressHandler exposes per-step progress tracking endpoints.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(svc service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: svc,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register wires progress routes under the id-scoped roadmap prefix.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Post("/roadmap/id/:id/update-progress", h.updateProgress)
	router.Get("/roadmap/id/:id/progress-summary", h.summary)
}

func (h *ProgressHandler) updateProgress(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UpdateProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.SetStepStatus(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.respondError(c, err, "failed to update progress")
	}

	return utils.SendSuccess(c, "progress updated", fiber.Map{"progress": progress})
}

func (h *ProgressHandler) summary(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.Summarize(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.respondError(c, err, "failed to summarize progress")
	}

	return utils.SendSuccess(c, "progress summary computed", summary)
}

func (h *ProgressHandler) respondError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrRoadmapNotFound):
		return utils.SendError(c, fiber.StatusNotFound, service.ErrRoadmapNotFound.Error())
	case errors.Is(err, service.ErrUnknownStep), errors.Is(err, service.ErrInvalidStatus), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
