package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check,
// used by load balancers to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication routes. Unauthenticated
// operations live under /v1/auth; the protected introspection endpoint
// lives under /v1 behind the JWT middleware. The whole /v1/auth group
// sits behind the Redis token bucket so credential stuffing and OTP
// brute forcing are throttled at the transport layer (rdb may be nil,
// in which case limiting is disabled and requests pass through).
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, engine *auth.Engine, rdb *redis.Client, rlCfg config.RateLimitConfig) {
	g := e.Group("/v1/auth")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))

	// Session lifecycle.
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// Token introspection for the API gateway. Not behind JWTAuth: the
	// token under test is the payload, not the caller's credential.
	g.POST("/check-token", a.CheckToken)

	// Password reset: request a code, verify it, set the new password.
	g.POST("/password/forgot", a.ForgotPassword)
	g.POST("/password/verify-otp", a.VerifyOTP)
	g.POST("/password/reset", a.ResetPassword)

	// Protected endpoints resolve the caller through the engine and
	// enforce the per-user blocked-endpoint list.
	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(engine))
	protected.GET("/me", a.Me)
}
