package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepo persists user identity records in the 'users' table. It is
// the durable credential store behind the auth engine: registration
// inserts here, login and token checks read here, and password reset
// rewrites the stored hash.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,role,blocked_endpoints,created_at,updated_at"

// Create inserts a new user row. Duplicate-key violations are mapped to
// ErrEmailExists or ErrUsernameExists depending on which unique index
// fired, so the engine can report the right conflict even when two
// registrations race past its pre-checks.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	blocked, err := json.Marshal(blockedOrEmpty(u.BlockedEndpoints))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, role, blocked_endpoints, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Username, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.Role, string(blocked), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return ErrUsernameExists
			}
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// FindByUsername fetches a user by username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// FindByID fetches a user by its UUID.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword overwrites the stored password hash and touches
// updated_at. Zero rows affected means the user vanished between lookup
// and update; that surfaces as ErrNotFound.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		blocked string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &blocked, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if blocked != "" {
		if err := json.Unmarshal([]byte(blocked), &u.BlockedEndpoints); err != nil {
			return model.User{}, err
		}
	}
	return u, nil
}

func blockedOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
