package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/auth-service/internal/auth"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token through the engine's check-token flow and injects the resolved
// identity into the request context. Handlers behind it can read
// `user_id`, `email` and `role` via c.Get(). The engine resolves the
// token's subject to a live user record, so a token for a deleted user
// is rejected even though its signature still verifies.
//
// The user's blocked-endpoint list is enforced here: a request whose
// route (or "METHOD /route") appears in the list is answered with 403
// before the handler runs.
func JWTAuth(engine *auth.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ah := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(ah, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(ah, "Bearer ")

			info, err := engine.CheckToken(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			route := c.Path()
			withMethod := c.Request().Method + " " + route
			for _, blocked := range info.BlockedEndpoints {
				if blocked == route || blocked == withMethod {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "endpoint blocked"})
				}
			}

			c.Set("user_id", info.UserID)
			c.Set("email", info.Email)
			c.Set("role", info.Role)
			return next(c)
		}
	}
}
