// Package auth implements the authentication engine: credential
// verification, access/refresh token issuance and rotation, and the
// OTP-gated password reset flow. The engine is transport agnostic; it
// consumes typed inputs and returns typed results or one of the
// sentinel errors below, which the HTTP layer maps onto status codes.
package auth

import "errors"

// Validation errors: the caller supplied an identity that collides with
// an existing record. Recoverable by the end user.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// Authentication errors: bad credentials or a token/code that does not
// verify. The engine deliberately collapses "no such email" and "wrong
// password" into ErrInvalidCredentials so responses cannot be used to
// enumerate accounts.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	ErrInvalidCode         = errors.New("invalid reset code")
)

// Not-found errors: the referenced resource does not exist. Whether
// ErrEmailNotFound leaks to the outside is the transport layer's call;
// the bundled handler answers the reset request identically either way.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailNotFound = errors.New("email not found")
	ErrNoSuchSession = errors.New("no such session")
	ErrCodeNotFound  = errors.New("reset code not found or expired")
)

// Dependency errors. ErrStorage wraps unexpected store failures and is
// retryable by the caller. ErrMailDispatch reports a failed OTP mail
// send; the stored code stays valid, so the request is not rolled back.
var (
	ErrStorage      = errors.New("storage failure")
	ErrMailDispatch = errors.New("mail dispatch failed")
)
