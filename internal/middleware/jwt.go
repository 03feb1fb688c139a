package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/utils"
)

const (
	localUserID = "user_id"
	localRole   = "user_role"
	localClaims = "token_claims"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// JWTProtected returns a middleware that validates JWT bearer tokens and
// rejects revoked ones. A nil revocation list skips the revocation check.
func JWTProtected(tokens TokenParser, revocations auth.RevocationList) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return utils.SendError(c, fiber.StatusUnauthorized, "token expired")
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}
		if claims.UserID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				return utils.SendError(c, fiber.StatusServiceUnavailable, "unable to verify token")
			}
			if revoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "token revoked")
			}
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, strings.ToLower(claims.Role))
		c.Locals(localClaims, claims)

		return c.Next()
	}
}

// UserID returns the authenticated user's ID, or zero.
func UserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(localUserID).(uint); ok {
		return id
	}
	return 0
}

// UserRole returns the authenticated user's role as carried by the token.
func UserRole(c *fiber.Ctx) string {
	return normalizeRoleValue(c.Locals(localRole))
}

// Claims returns the verified token claims.
func Claims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(localClaims).(*auth.Claims)
	return claims, ok && claims != nil
}
