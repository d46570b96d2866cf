package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID               – UUID primary key of the user.
//  Username         – unique display name chosen at registration.
//  Email            – unique, lower-cased email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – name of the role (default USER).
//  BlockedEndpoints – endpoints this user may not call; stored as a
//                     JSON array in the blocked_endpoints column and
//                     enforced by the gateway middleware. Empty for
//                     most users.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update (touched on password reset).
type User struct {
	ID               string    // users.id (char(36) UUID)
	Username         string    // users.username
	Email            string    // users.email
	PasswordHash     string    // users.password_hash
	Role             string    // users.role
	BlockedEndpoints []string  // users.blocked_endpoints (JSON)
	CreatedAt        time.Time // users.created_at
	UpdatedAt        time.Time // users.updated_at
}

// SessionToken models an entry in the `refresh_tokens` table. Each
// record ties one refresh token to a user together with the access
// token that was issued alongside it. The plain refresh value is
// never stored; only its SHA-256 hash. A user may hold several live
// records at once (one per device).
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the token.
//  AccessToken – the signed JWT issued together with this refresh token.
//  TokenHash   – SHA-256 hex digest of the raw refresh value.
//  ExpiresAt   – expiration timestamp of the refresh token.
//  RevokedAt   – when the token was consumed or revoked (null if live).
//  CreatedAt   – timestamp of creation.
type SessionToken struct {
	ID          uint64     // refresh_tokens.id
	UserID      string     // refresh_tokens.user_id
	AccessToken string     // refresh_tokens.access_token
	TokenHash   string     // refresh_tokens.token_hash
	ExpiresAt   time.Time  // refresh_tokens.expires_at
	RevokedAt   *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt   time.Time  // refresh_tokens.created_at
}
