package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/service"
	"github.com/noah-isme/coaching-center-api/internal/utils"
)

// Guards are the middlewares routes are protected with. Router wiring passes
// the JWT and role checks; tests can pass lightweight stand-ins.
type Guards struct {
	Authenticated fiber.Handler
	Admin         fiber.Handler
	Staff         fiber.Handler
	LoginLimiter  fiber.Handler
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

func (g Guards) withDefaults() Guards {
	if g.Authenticated == nil {
		g.Authenticated = passThrough
	}
	if g.Admin == nil {
		g.Admin = passThrough
	}
	if g.Staff == nil {
		g.Staff = passThrough
	}
	if g.LoginLimiter == nil {
		g.LoginLimiter = passThrough
	}
	return g
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid " + key)
	}
	id := uint(parsed)
	return &id, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 32)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   middleware.UserID(c),
		Role: middleware.UserRole(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// respondError maps service errors onto HTTP responses. Unknown errors are
// logged and reported as 500 with the fallback message.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var deniedErr *service.AccessDeniedError
	switch {
	case errors.As(err, &deniedErr):
		return utils.SendErrorCode(c, fiber.StatusForbidden, string(deniedErr.Reason()), "you do not have access to this resource")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrRequesterUnknown):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		return utils.SendErrorCode(c, fiber.StatusForbidden, "account_inactive", err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, service.ErrStandardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrStandardExists):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrIdentifierUnavailable), errors.Is(err, service.ErrIdentifierConflict):
		c.Set(fiber.HeaderRetryAfter, "1")
		return utils.SendErrorCode(c, fiber.StatusServiceUnavailable, "identifier_unavailable", "could not allocate an identifier, retry the request")
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrBatchRequired),
		errors.Is(err, service.ErrFieldNotApplicable),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidFee),
		errors.Is(err, models.ErrRoleDetailsMismatch),
		errors.Is(err, service.ErrUploadMissing):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrUploadUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
