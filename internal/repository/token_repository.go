package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// TokenRepo persists session-token records in the 'refresh_tokens'
// table. Raw refresh values never reach the database; every method
// hashes the value before touching a row, so a dump of the table cannot
// be replayed against the refresh endpoint.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a session-token row for the given raw refresh value.
func (r *TokenRepo) Store(ctx context.Context, userID, raw, accessToken string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, access_token, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, accessToken, utils.HashRefreshRaw(raw), exp)
	return err
}

// FindByRefreshValue returns the live session-token record for a raw
// refresh value. Revoked rows behave as absent; an expired row is
// returned as-is so the caller can distinguish "expired" from "unknown".
func (r *TokenRepo) FindByRefreshValue(ctx context.Context, raw string) (model.SessionToken, error) {
	var (
		st        model.SessionToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, access_token, token_hash, expires_at, created_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		utils.HashRefreshRaw(raw)).
		Scan(&st.ID, &st.UserID, &st.AccessToken, &st.TokenHash, &st.ExpiresAt, &st.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SessionToken{}, ErrNotFound
		}
		return model.SessionToken{}, err
	}
	if revokedAt.Valid {
		return model.SessionToken{}, ErrNotFound
	}
	return st, nil
}

// Revoke marks the row for a raw refresh value as revoked and reports
// whether this call claimed it. The conditional update makes the claim
// atomic: of two concurrent refreshes presenting the same value exactly
// one observes claimed=true.
func (r *TokenRepo) Revoke(ctx context.Context, raw string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		utils.HashRefreshRaw(raw))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeAllForUser revokes every live session token owned by a user.
// Used when a password is reset so stolen sessions die with the old
// credential.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
