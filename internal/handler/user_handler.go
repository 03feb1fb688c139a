package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/service"
	"github.com/noah-isme/coaching-center-api/internal/utils"
)

// UserHandler exposes profile, search and listing endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user routes to the router group. Every route requires an
// authenticated user; finer checks happen in the access policy.
func (h *UserHandler) Register(router fiber.Router, guards Guards) {
	guards = guards.withDefaults()
	router.Use(guards.Authenticated)

	router.Get("/search", guards.Staff, h.search)
	router.Get("/staff", guards.Admin, h.staff)
	router.Get("/leaderboard", h.leaderboard)
	router.Get("/profiles/:role", guards.Staff, h.listByRole)

	router.Get("/profile/:userId", h.view)
	router.Put("/profile/:userId", guards.Admin, h.update)
	router.Delete("/profile/:userId", guards.Admin, h.delete)
	router.Post("/profile/:userId/picture", guards.Admin, h.uploadPicture)

	router.Get("/batches/:userId", h.teacherBatches)
	router.Get("/:userId/fee-payments", h.feePayments)
}

func (h *UserHandler) view(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	resp, err := h.service.View(c.UserContext(), middleware.UserID(c), targetID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile", resp)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Update(c.UserContext(), activityActorFromContext(c), targetID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update profile")
	}
	return utils.SendSuccess(c, "profile updated", resp)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	if targetID == middleware.UserID(c) {
		return utils.SendError(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), targetID); err != nil {
		return respondError(c, h.logger, err, "failed to delete user")
	}
	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) uploadPicture(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrUploadMissing.Error())
	}

	resp, err := h.service.SetProfilePicture(c.UserContext(), activityActorFromContext(c), targetID, file)
	if err != nil {
		return respondError(c, h.logger, err, "failed to upload profile picture")
	}
	return utils.SendSuccess(c, "profile picture updated", resp)
}

func (h *UserHandler) teacherBatches(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	resp, err := h.service.TeacherBatches(c.UserContext(), middleware.UserID(c), targetID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load batches")
	}
	return utils.SendSuccess(c, "teacher batches", resp)
}

func (h *UserHandler) search(c *fiber.Ctx) error {
	req, err := searchRequestFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.Search(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to search users")
	}
	return utils.SendSuccess(c, "users", resp)
}

func (h *UserHandler) listByRole(c *fiber.Ctx) error {
	req, err := searchRequestFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.ListByRole(c.UserContext(), middleware.UserID(c), c.Params("role"), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list users")
	}
	return utils.SendSuccess(c, "users", resp)
}

func (h *UserHandler) staff(c *fiber.Ctx) error {
	resp, err := h.service.Staff(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list staff")
	}
	return utils.SendSuccess(c, "staff", resp)
}

func (h *UserHandler) leaderboard(c *fiber.Ctx) error {
	batchID, err := parseQueryUint(c, "batchId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	resp, err := h.service.Leaderboard(c.UserContext(), middleware.UserID(c), batchID, limit)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load leaderboard")
	}
	return utils.SendSuccess(c, "leaderboard", resp)
}

func (h *UserHandler) feePayments(c *fiber.Ctx) error {
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	resp, err := h.service.FeePayments(c.UserContext(), middleware.UserID(c), targetID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load fee payments")
	}
	return utils.SendSuccess(c, "fee payments", resp)
}

func searchRequestFromQuery(c *fiber.Ctx) (dto.UserSearchRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.UserSearchRequest{}, errors.New("invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return dto.UserSearchRequest{}, errors.New("invalid limit")
	}
	batchID, err := parseQueryUint(c, "batchId")
	if err != nil {
		return dto.UserSearchRequest{}, err
	}

	return dto.UserSearchRequest{
		Role:      strings.TrimSpace(c.Query("role")),
		Status:    strings.TrimSpace(c.Query("status")),
		BatchID:   batchID,
		Name:      c.Query("name"),
		Email:     c.Query("email"),
		StudentID: c.Query("studentId"),
		Query:     c.Query("q"),
		Page:      page,
		Limit:     limit,
	}, nil
}
