package handler

import (
	"context" // provides context with cancellation for engine calls
	"errors"
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for engine calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/auth-service/internal/auth" // the authentication engine
)

// AuthHandler binds the engine's operations to HTTP. It holds no logic
// of its own beyond input parsing and error-to-status mapping; every
// decision lives in the engine.
type AuthHandler struct {
	Engine *auth.Engine
}

func NewAuthHandler(e *auth.Engine) *AuthHandler { return &AuthHandler{Engine: e} }

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type verifyOtpReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type resetReq struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}
type checkTokenReq struct {
	AccessToken string `json:"access_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toAuthResp(cr auth.Credentials) authResp {
	return authResp{
		User:    userPart{ID: cr.UserID, Username: cr.Username, Email: cr.Email, Role: cr.Role},
		Access:  tokenPart{Token: cr.AccessToken, Expires: cr.AccessExp},
		Refresh: tokenPart{Token: cr.RefreshToken, Expires: cr.RefreshExp},
	}
}

// engineError maps each engine error kind to a stable HTTP status and
// error string so clients can branch reliably.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email_exists"})
	case errors.Is(err, auth.ErrDuplicateUsername):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username_exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_refresh_token"})
	case errors.Is(err, auth.ErrExpiredRefreshToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh_token_expired"})
	case errors.Is(err, auth.ErrNoSuchSession):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no_such_session"})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user_not_found"})
	case errors.Is(err, auth.ErrEmailNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "email_not_found"})
	case errors.Is(err, auth.ErrCodeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "code_not_found"})
	case errors.Is(err, auth.ErrInvalidCode):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_code"})
	case errors.Is(err, auth.ErrMailDispatch):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "mail_dispatch_failed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cr, err := h.Engine.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, toAuthResp(cr))
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cr, err := h.Engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(cr))
}

// Refresh: consume the presented refresh token and return a fresh pair.
// The old refresh value is dead after this call succeeds.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cr, err := h.Engine.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(cr))
}

// Logout: revoke the session matching the refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Engine.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckToken: verify an access token and return the authorization
// payload (user id, email, role, blocked endpoints). Used by the API
// gateway to decide request admission.
func (h *AuthHandler) CheckToken(c echo.Context) error {
	var req checkTokenReq
	_ = c.Bind(&req)
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		// Fall back to the Authorization header so the gateway can
		// forward the original header untouched.
		if ah := c.Request().Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			token = strings.TrimPrefix(ah, "Bearer ")
		}
	}
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "access_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	info, err := h.Engine.CheckToken(ctx, token)
	if err != nil {
		return engineError(c, err)
	}
	blocked := info.BlockedEndpoints
	if blocked == nil {
		blocked = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":           info.UserID,
		"email":             info.Email,
		"role":              info.Role,
		"blocked_endpoints": blocked,
	})
}

// ForgotPassword: issue and dispatch a reset code. The response is 204
// whether or not the email exists, so this endpoint cannot be used to
// enumerate accounts; only an actual dispatch failure surfaces.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Engine.RequestPasswordReset(ctx, req.Email)
	if err != nil && !errors.Is(err, auth.ErrEmailNotFound) {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyOTP: check a reset code. On success the code is consumed and the
// client proceeds to the reset call.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOtpReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Engine.VerifyOTP(ctx, req.Email, strings.TrimSpace(req.Code)); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword: set a new password and revoke all live sessions for the
// account.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/new_password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Engine.ResetPassword(ctx, req.Email, req.NewPassword); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint returning the identity the middleware
// resolved for this request.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"email":   c.Get("email"),
		"role":    c.Get("role"),
	})
}
