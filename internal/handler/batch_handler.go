package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/service"
	"github.com/noah-isme/coaching-center-api/internal/utils"
)

// BatchHandler exposes batch and standard endpoints.
type BatchHandler struct {
	service service.BatchService
	logger  zerolog.Logger
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(service service.BatchService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  logger.With().Str("component", "batch_handler").Logger(),
	}
}

// Register attaches batch routes to the batches group.
func (h *BatchHandler) Register(router fiber.Router, guards Guards) {
	guards = guards.withDefaults()

	router.Get("", guards.Authenticated, guards.Staff, h.list)
	router.Post("", guards.Authenticated, guards.Admin, h.createBatch)
	router.Get("/:batchId/students", guards.Authenticated, guards.Staff, h.students)
	router.Get("/:batchId/fees", guards.Authenticated, guards.Admin, h.fees)
}

// RegisterStandards attaches standard routes to the standards group.
func (h *BatchHandler) RegisterStandards(router fiber.Router, guards Guards) {
	guards = guards.withDefaults()

	router.Get("", guards.Authenticated, guards.Admin, h.listStandards)
	router.Post("", guards.Authenticated, guards.Admin, h.createStandard)
}

func (h *BatchHandler) list(c *fiber.Ctx) error {
	resp, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list batches")
	}
	return utils.SendSuccess(c, "batches", resp)
}

func (h *BatchHandler) createBatch(c *fiber.Ctx) error {
	var payload dto.BatchCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.CreateBatch(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create batch")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "batch created", resp)
}

func (h *BatchHandler) students(c *fiber.Ctx) error {
	batchID, ok := parseIDParam(c, "batchId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid batch id")
	}

	resp, err := h.service.Students(c.UserContext(), middleware.UserID(c), batchID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list batch students")
	}
	return utils.SendSuccess(c, "batch students", resp)
}

func (h *BatchHandler) fees(c *fiber.Ctx) error {
	batchID, ok := parseIDParam(c, "batchId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid batch id")
	}

	resp, err := h.service.Fees(c.UserContext(), middleware.UserID(c), batchID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load batch fees")
	}
	return utils.SendSuccess(c, "batch fees", resp)
}

func (h *BatchHandler) listStandards(c *fiber.Ctx) error {
	resp, err := h.service.ListStandards(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to list standards")
	}
	return utils.SendSuccess(c, "standards", resp)
}

func (h *BatchHandler) createStandard(c *fiber.Ctx) error {
	var payload dto.StandardCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.CreateStandard(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create standard")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "standard created", resp)
}
