package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-center-api/internal/observability"
)

func TestCorrelationIDReusesOrReplacesIncoming(t *testing.T) {
	var seen string
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		seen = observability.CorrelationIDFromContext(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"correlation header", HeaderCorrelationID, "abc-123", "abc-123"},
		{"request id fallback", fiber.HeaderXRequestID, "req-9", "req-9"},
		{"too long", HeaderCorrelationID, strings.Repeat("x", 65), ""},
		{"embedded space", HeaderCorrelationID, "bad id", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(tc.header, tc.value)
			resp, err := app.Test(req)
			require.NoError(t, err)

			header := resp.Header.Get(HeaderCorrelationID)
			require.Equal(t, header, seen)
			if tc.expected != "" {
				require.Equal(t, tc.expected, header)
				return
			}
			require.NotEqual(t, tc.value, header)
			require.Len(t, header, 36)
		})
	}
}
