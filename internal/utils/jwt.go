package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding functions
	"errors"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that does
// not verify: bad signature, malformed input or expired claims. Callers
// must not be able to tell the cases apart from the error alone.
var ErrInvalidToken = errors.New("invalid or expired token")

// AccessClaims is the claim set embedded in every access token. The
// subject carries the user ID; Role rides along so the gateway can make
// coarse decisions without a user lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string. Exp stores the expiration
// timestamp as a time.Time. Access tokens are short-lived and sent in the
// Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens. The Raw field contains the raw value returned to the
// client. In the database only a SHA-256 hash of the raw string is stored.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. The signing
// secret is passed explicitly; it is never read from global state.
func NewAccessToken(secret, userID, role string, ttl time.Duration) (AccessToken, error) {
	return NewAccessTokenAt(secret, userID, role, ttl, time.Now().UTC())
}

// NewAccessTokenAt is NewAccessToken with an explicit issue instant.
// Given the same secret, claims and instant the output is reproducible
// byte for byte, which the token tests rely on.
func NewAccessTokenAt(secret, userID, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
	exp := now.Add(ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of an access token
// and returns its claims. Any failure collapses into ErrInvalidToken so
// that a caller probing the endpoint cannot distinguish a forged
// signature from an expired token.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC before touching claims.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw)
// and its expiration time. The raw value is 32 random bytes hex encoded,
// well above the 128 bits of entropy needed to make guessing infeasible.
func NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(ttl),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a
// hex string. Storing only the hash prevents attackers from using stolen
// database rows to refresh sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
