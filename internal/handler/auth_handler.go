package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/service"
	"github.com/noah-isme/coaching-center-api/internal/utils"
)

// AuthHandler exposes registration, login, logout and status endpoints.
type AuthHandler struct {
	auth   service.AuthService
	users  service.UserService
	logger zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth service.AuthService, users service.UserService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		users:  users,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth routes to the router group.
func (h *AuthHandler) Register(router fiber.Router, guards Guards) {
	guards = guards.withDefaults()

	router.Post("/login", guards.LoginLimiter, h.login)
	router.Post("/register", guards.Authenticated, guards.Admin, h.register)
	router.Post("/logout", guards.Authenticated, h.logout)
	router.Get("/profile", guards.Authenticated, h.profile)
	router.Put("/status/:userId", guards.Authenticated, guards.Admin, h.changeStatus)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.auth.Login(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to log in")
	}
	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.auth.Register(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register user")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user registered", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), *claims); err != nil {
		return respondError(c, h.logger, err, "failed to log out")
	}
	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) profile(c *fiber.Ctx) error {
	resp, err := h.auth.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile", resp)
}

func (h *AuthHandler) changeStatus(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.StatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.users.ChangeStatus(c.UserContext(), activityActorFromContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update status")
	}
	return utils.SendSuccess(c, "status updated", resp)
}
