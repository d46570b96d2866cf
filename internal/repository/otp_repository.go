package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// otpKeyPrefix namespaces reset codes in Redis. The full key is
// reset_otp:<email>.
const otpKeyPrefix = "reset_otp:"

// OTPRepo stores one-time password-reset codes in Redis. Redis enforces
// the TTL natively, so an expired code simply disappears and reads map
// onto ErrNotFound. Writing a new code for the same email overwrites the
// previous one, which is exactly the supersession behavior the reset
// flow wants.
type OTPRepo struct{ RDB *redis.Client }

func NewOTPRepo(rdb *redis.Client) *OTPRepo { return &OTPRepo{RDB: rdb} }

// Put stores the code for an email with the given TTL, replacing any
// code previously issued for that email.
func (r *OTPRepo) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	return r.RDB.Set(ctx, otpKeyPrefix+email, code, ttl).Err()
}

// Get returns the currently stored code for an email. A missing or
// expired key yields ErrNotFound.
func (r *OTPRepo) Get(ctx context.Context, email string) (string, error) {
	v, err := r.RDB.Get(ctx, otpKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// Delete removes the code for an email. Deleting an absent key is not
// an error; the single-use guarantee comes from the engine checking Get
// before Delete.
func (r *OTPRepo) Delete(ctx context.Context, email string) error {
	return r.RDB.Del(ctx, otpKeyPrefix+email).Err()
}
