package handler

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/service"
	"github.com/noah-isme/career-agent-api/internal/utils"
)

// RoadmapHandler exposes the roadmap lifecycle endpoints.
type RoadmapHandler struct {
	service service.RoadmapService
	logger  zerolog.Logger
}

// NewRoadmapHandler constructs a roadmap handler.
func NewRoadmapHandler(svc service.RoadmapService, logger zerolog.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		service: svc,
		logger:  logger.With().Str("component", "roadmap_handler").Logger(),
	}
}

// Register wires roadmap routes. The static and id-scoped routes must come
// before the free-text career route so "save-version" is never read as a
// career name.
func (h *RoadmapHandler) Register(router fiber.Router) {
	router.Get("/my-roadmaps", h.list)
	router.Post("/roadmap/save-version", h.saveVersion)
	router.Get("/roadmap/id/:id", h.get)
	router.Delete("/roadmap/id/:id", h.delete)
	router.Post("/roadmap/id/:id/regenerate", h.regenerate)
	router.Post("/roadmap/id/:id/chat", h.chat)
	router.Post("/roadmap/id/:id/chat/apply", h.applyChat)
	router.Get("/roadmap/:career_name", h.getOrPreview)
}

func (h *RoadmapHandler) getOrPreview(c *fiber.Ctx) error {
	careerName, err := url.PathUnescape(c.Params("career_name"))
	if err != nil || strings.TrimSpace(careerName) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid career name")
	}

	// malformed preferences degrade to empty, matching deployed behaviour
	preferences := map[string]interface{}{}
	if raw := c.Query("preferences"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &preferences); err != nil {
			preferences = map[string]interface{}{}
		}
	}

	result, err := h.service.GetOrPreview(c.Context(), userIDFromContext(c), strings.TrimSpace(careerName), preferences)
	if err != nil {
		return h.respondError(c, err, "failed to build roadmap")
	}

	message := "roadmap preview generated"
	if result.Saved {
		message = "saved roadmap retrieved"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *RoadmapHandler) saveVersion(c *fiber.Ctx) error {
	var payload dto.SaveVersionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SaveVersion(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.respondError(c, err, "failed to save roadmap version")
	}

	return utils.SendCreated(c, "roadmap version saved", result)
}

func (h *RoadmapHandler) list(c *fiber.Ctx) error {
	career := c.Query("career")
	tag := c.Query("tag")

	items, err := h.service.List(c.Context(), userIDFromContext(c), career, tag)
	if err != nil {
		return h.respondError(c, err, "failed to list roadmaps")
	}

	meta := fiber.Map{"career": career, "tag": tag, "count": len(items)}
	return utils.SendSuccessWithMeta(c, "roadmaps retrieved", items, meta)
}

func (h *RoadmapHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.Get(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.respondError(c, err, "failed to fetch roadmap")
	}

	return utils.SendSuccess(c, "roadmap retrieved", detail)
}

func (h *RoadmapHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.respondError(c, err, "failed to delete roadmap")
	}

	return utils.SendSuccess(c, "roadmap deleted", nil)
}

func (h *RoadmapHandler) regenerate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RegenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Regenerate(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.respondError(c, err, "failed to regenerate roadmap")
	}

	return utils.SendCreated(c, "roadmap regenerated", result)
}

func (h *RoadmapHandler) chat(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ProposeChatEdit(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.respondError(c, err, "failed to run roadmap chat")
	}

	return utils.SendSuccess(c, "chat response generated", result)
}

func (h *RoadmapHandler) applyChat(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplyChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ApplyChatEdit(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.respondError(c, err, "failed to apply chat edit")
	}

	return utils.SendSuccess(c, "chat edit applied", result)
}

func (h *RoadmapHandler) respondError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrRoadmapNotFound):
		return utils.SendError(c, fiber.StatusNotFound, service.ErrRoadmapNotFound.Error())
	case isValidationError(err),
		errors.Is(err, service.ErrEmptyCandidate),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrUnknownStep),
		errors.Is(err, service.ErrInvalidStatus):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
