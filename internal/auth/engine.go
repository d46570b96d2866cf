package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// defaultRole is assigned to every user created through Register.
const defaultRole = "USER"

// otpDigits is the size of the numeric reset code sent by mail.
const otpDigits = 6

// CredentialStore is the durable user-record store the engine operates
// on. Lookups return repository.ErrNotFound for absent users; Create
// returns repository.ErrEmailExists / ErrUsernameExists on unique-index
// collisions.
type CredentialStore interface {
	Create(ctx context.Context, u model.User) error
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionTokenStore keeps the ephemeral refresh-token records. Revoke
// must claim the record atomically: when two callers race on the same
// value, exactly one gets claimed=true.
type SessionTokenStore interface {
	Store(ctx context.Context, userID, raw, accessToken string, exp time.Time) error
	FindByRefreshValue(ctx context.Context, raw string) (model.SessionToken, error)
	Revoke(ctx context.Context, raw string) (claimed bool, err error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

// OneTimeCodeStore keeps TTL-bound single-use reset codes keyed by
// email. Get returns repository.ErrNotFound for absent or expired codes.
type OneTimeCodeStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// Mailer is the outbound mail capability. Implementations may deliver
// directly over SMTP or hand the message to a broker.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config carries the process-wide, read-only parameters of the engine.
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
	OTPTTL     time.Duration
}

// Engine orchestrates the authentication flows over the injected
// stores. It holds no mutable state of its own, so a single instance is
// safe for concurrent use by every request handler.
type Engine struct {
	users    CredentialStore
	sessions SessionTokenStore
	codes    OneTimeCodeStore
	mailer   Mailer
	cfg      Config

	// now and newOTP are swapped out in tests for a fixed clock and a
	// predictable code.
	now    func() time.Time
	newOTP func() (string, error)
}

// NewEngine wires an engine from its collaborators. The signing secret
// and hash cost live in cfg and are treated as immutable afterwards.
func NewEngine(users CredentialStore, sessions SessionTokenStore, codes OneTimeCodeStore, mailer Mailer, cfg Config) *Engine {
	return &Engine{
		users:    users,
		sessions: sessions,
		codes:    codes,
		mailer:   mailer,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newOTP:   randomOTP,
	}
}

// Credentials is the token pair handed back by Register, Login and
// Refresh, together with a summary of the owning user.
type Credentials struct {
	UserID       string
	Username     string
	Email        string
	Role         string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// TokenInfo is the authorization payload produced by CheckToken. It is
// what the gateway middleware consumes to decide request admission.
type TokenInfo struct {
	UserID           string
	Email            string
	Role             string
	BlockedEndpoints []string
}

// Register creates a new user and opens its first session. Email and
// username collisions are checked up front for a precise error, and
// mapped again on insert so a racing duplicate still reports correctly.
func (e *Engine) Register(ctx context.Context, username, email, password string) (Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		return Credentials{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Credentials{}, storage(err)
	}
	if _, err := e.users.FindByUsername(ctx, username); err == nil {
		return Credentials{}, ErrDuplicateUsername
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Credentials{}, storage(err)
	}

	hash, err := utils.HashPassword(password, e.cfg.BcryptCost)
	if err != nil {
		return Credentials{}, err
	}

	now := e.now()
	u := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         defaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return Credentials{}, ErrDuplicateEmail
		case errors.Is(err, repository.ErrUsernameExists):
			return Credentials{}, ErrDuplicateUsername
		}
		return Credentials{}, storage(err)
	}

	// A session failure past this point leaves the user persisted with
	// no session; the caller recovers by logging in.
	return e.openSession(ctx, u)
}

// Login verifies a password and opens a new session. Existing sessions
// on other devices stay valid. Unknown email and wrong password are
// indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, password string) (Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrInvalidCredentials
		}
		return Credentials{}, storage(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Credentials{}, ErrInvalidCredentials
	}
	return e.openSession(ctx, u)
}

// Refresh exchanges a live refresh token for a fresh pair. The
// presented value is consumed: the record is claimed atomically before
// the replacement is written, so replaying the old value afterwards
// fails with ErrInvalidRefreshToken.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	rec, err := e.sessions.FindByRefreshValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrInvalidRefreshToken
		}
		return Credentials{}, storage(err)
	}
	// A token is dead at the exact expiry instant, not one tick later.
	if !rec.ExpiresAt.After(e.now()) {
		return Credentials{}, ErrExpiredRefreshToken
	}

	u, err := e.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrUserNotFound
		}
		return Credentials{}, storage(err)
	}

	claimed, err := e.sessions.Revoke(ctx, refreshToken)
	if err != nil {
		return Credentials{}, storage(err)
	}
	if !claimed {
		// Lost the race to a concurrent refresh or logout.
		return Credentials{}, ErrInvalidRefreshToken
	}

	return e.openSession(ctx, u)
}

// Logout revokes the session matching the refresh token. Revoking an
// unknown or already-revoked value is an error, so a second logout with
// the same token reports ErrNoSuchSession.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	claimed, err := e.sessions.Revoke(ctx, refreshToken)
	if err != nil {
		return storage(err)
	}
	if !claimed {
		return ErrNoSuchSession
	}
	return nil
}

// CheckToken verifies an access token and resolves its subject. No
// state is touched; signature and expiry come from the token itself and
// only the user record is read.
func (e *Engine) CheckToken(ctx context.Context, accessToken string) (TokenInfo, error) {
	claims, err := utils.ParseAccessToken(e.cfg.JWTSecret, accessToken)
	if err != nil {
		return TokenInfo{}, ErrInvalidToken
	}
	u, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenInfo{}, ErrUserNotFound
		}
		return TokenInfo{}, storage(err)
	}
	return TokenInfo{
		UserID:           u.ID,
		Email:            u.Email,
		Role:             u.Role,
		BlockedEndpoints: u.BlockedEndpoints,
	}, nil
}

// RequestPasswordReset issues a fresh 6-digit code for the email,
// replacing any earlier unconsumed code, and dispatches it by mail. A
// mail failure is reported as ErrMailDispatch but the stored code stays
// valid, so the user can retry the send without invalidating the code.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := e.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return storage(err)
	}

	code, err := e.newOTP()
	if err != nil {
		return err
	}
	if err := e.codes.Put(ctx, email, code, e.cfg.OTPTTL); err != nil {
		return storage(err)
	}

	if err := e.mailer.Send(ctx, email, "Reset Password OTP", "Your OTP is: "+code); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}
	return nil
}

// VerifyOTP checks a reset code. On a match the code is deleted so it
// can never be used twice. A mismatch leaves the code in place: the
// legitimate holder keeps its remaining attempts until the TTL runs out.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	stored, err := e.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return storage(err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}
	if err := e.codes.Delete(ctx, email); err != nil {
		return storage(err)
	}
	return nil
}

// ResetPassword overwrites the user's password hash and revokes every
// live session for the account, so sessions opened with the old
// credential die with it. Nothing binds this call to a prior VerifyOTP;
// the caller is trusted to run the two in sequence.
func (e *Engine) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return storage(err)
	}

	hash, err := utils.HashPassword(newPassword, e.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return storage(err)
	}
	if err := e.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		return storage(err)
	}
	return nil
}

// openSession issues an access token and a refresh token for the user
// and persists the session record.
func (e *Engine) openSession(ctx context.Context, u model.User) (Credentials, error) {
	access, err := utils.NewAccessTokenAt(e.cfg.JWTSecret, u.ID, u.Role, e.cfg.AccessTTL, e.now())
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := utils.NewRefreshToken(e.cfg.RefreshTTL)
	if err != nil {
		return Credentials{}, err
	}
	refresh.Exp = e.now().Add(e.cfg.RefreshTTL)
	if err := e.sessions.Store(ctx, u.ID, refresh.Raw, access.Token, refresh.Exp); err != nil {
		return Credentials{}, storage(err)
	}
	return Credentials{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Raw,
		RefreshExp:   refresh.Exp,
	}, nil
}

// randomOTP draws a 6-digit numeric code from crypto/rand.
func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()+100000), nil
}

func storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
