package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// Small sequential fakes; the engine's own tests cover concurrency, the
// handler tests only need the store contracts.

type stubUsers struct{ byID map[string]model.User }

func (s *stubUsers) Create(_ context.Context, u model.User) error {
	for _, ex := range s.byID {
		if ex.Email == u.Email {
			return repository.ErrEmailExists
		}
		if ex.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	s.byID[u.ID] = u
	return nil
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

type stubSessions struct{ recs map[string]model.SessionToken }

func (s *stubSessions) Store(_ context.Context, userID, raw, accessToken string, exp time.Time) error {
	s.recs[utils.HashRefreshRaw(raw)] = model.SessionToken{UserID: userID, AccessToken: accessToken, ExpiresAt: exp}
	return nil
}

func (s *stubSessions) FindByRefreshValue(_ context.Context, raw string) (model.SessionToken, error) {
	rec, ok := s.recs[utils.HashRefreshRaw(raw)]
	if !ok {
		return model.SessionToken{}, repository.ErrNotFound
	}
	return rec, nil
}

func (s *stubSessions) Revoke(_ context.Context, raw string) (bool, error) {
	h := utils.HashRefreshRaw(raw)
	if _, ok := s.recs[h]; !ok {
		return false, nil
	}
	delete(s.recs, h)
	return true, nil
}

func (s *stubSessions) RevokeAllForUser(_ context.Context, userID string) error {
	for h, rec := range s.recs {
		if rec.UserID == userID {
			delete(s.recs, h)
		}
	}
	return nil
}

type stubCodes struct{ codes map[string]string }

func (s *stubCodes) Put(_ context.Context, email, code string, _ time.Duration) error {
	s.codes[email] = code
	return nil
}

func (s *stubCodes) Get(_ context.Context, email string) (string, error) {
	c, ok := s.codes[email]
	if !ok {
		return "", repository.ErrNotFound
	}
	return c, nil
}

func (s *stubCodes) Delete(_ context.Context, email string) error {
	delete(s.codes, email)
	return nil
}

type stubMailer struct{ sent int }

func (s *stubMailer) Send(_ context.Context, _, _, _ string) error {
	s.sent++
	return nil
}

func newTestHandler() (*AuthHandler, *stubMailer) {
	mailer := &stubMailer{}
	engine := auth.NewEngine(
		&stubUsers{byID: map[string]model.User{}},
		&stubSessions{recs: map[string]model.SessionToken{}},
		&stubCodes{codes: map[string]string{}},
		mailer,
		auth.Config{
			JWTSecret:  "handler-test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
			OTPTTL:     5 * time.Minute,
		},
	)
	return NewAuthHandler(engine), mailer
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func registerAlice(t *testing.T, h *AuthHandler) authResp {
	t.Helper()
	rec := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"s3cret-pw"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	resp := registerAlice(t, h)

	require.Equal(t, "alice", resp.User.Username)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, "USER", resp.User.Role)
	require.NotEmpty(t, resp.Access.Token)
	require.NotEmpty(t, resp.Refresh.Token)
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	h, _ := newTestHandler()
	registerAlice(t, h)

	rec := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice2","email":"alice@example.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"email_exists"}`, rec.Body.String())
}

func TestRegisterEndpointMissingFields(t *testing.T) {
	h, _ := newTestHandler()
	rec := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"alice@example.com"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	h, _ := newTestHandler()
	registerAlice(t, h)

	rec := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())
}

func TestRefreshEndpointRotates(t *testing.T) {
	h, _ := newTestHandler()
	first := registerAlice(t, h)

	rec := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+first.Refresh.Token+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var second authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	// The consumed value no longer refreshes.
	rec = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+first.Refresh.Token+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid_refresh_token"}`, rec.Body.String())
}

func TestLogoutEndpointReplay(t *testing.T) {
	h, _ := newTestHandler()
	creds := registerAlice(t, h)
	body := `{"refresh_token":"` + creds.Refresh.Token + `"}`

	rec := doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", body, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"no_such_session"}`, rec.Body.String())
}

func TestCheckTokenEndpointBearerFallback(t *testing.T) {
	h, _ := newTestHandler()
	creds := registerAlice(t, h)

	rec := doJSON(t, h.CheckToken, http.MethodPost, "/v1/auth/check-token", "",
		map[string]string{"Authorization": "Bearer " + creds.Access.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		UserID  string   `json:"user_id"`
		Email   string   `json:"email"`
		Blocked []string `json:"blocked_endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, creds.User.ID, out.UserID)
	require.Equal(t, "alice@example.com", out.Email)
	require.NotNil(t, out.Blocked)
}

func TestCheckTokenEndpointBadToken(t *testing.T) {
	h, _ := newTestHandler()
	rec := doJSON(t, h.CheckToken, http.MethodPost, "/v1/auth/check-token",
		`{"access_token":"garbage"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
}

func TestForgotPasswordEndpointDoesNotLeakAccounts(t *testing.T) {
	h, mailer := newTestHandler()
	registerAlice(t, h)

	known := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/password/forgot",
		`{"email":"alice@example.com"}`, nil)
	unknown := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/password/forgot",
		`{"email":"nobody@example.com"}`, nil)

	// Identical responses either way; only the known address gets mail.
	require.Equal(t, http.StatusNoContent, known.Code)
	require.Equal(t, http.StatusNoContent, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
	require.Equal(t, 1, mailer.sent)
}

func TestVerifyOTPEndpointWrongCode(t *testing.T) {
	h, _ := newTestHandler()
	registerAlice(t, h)
	doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/password/forgot",
		`{"email":"alice@example.com"}`, nil)

	rec := doJSON(t, h.VerifyOTP, http.MethodPost, "/v1/auth/password/verify-otp",
		`{"email":"alice@example.com","code":"000000"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid_code"}`, rec.Body.String())
}

func TestResetPasswordEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	registerAlice(t, h)

	rec := doJSON(t, h.ResetPassword, http.MethodPost, "/v1/auth/password/reset",
		`{"email":"alice@example.com","new_password":"brand-new"}`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	login := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"brand-new"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)
}
