package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound reports a username with no cb_user row.
var ErrUserNotFound = errors.New("user not found")

// User is one control-plane account.
type User struct {
	Username     string
	PasswordHash string
	Validity     int64
	BearerToken  string
	Role         int
}

// GetUser fetches one user by name.
func (r *Repository) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.Pool.QueryRow(ctx,
		`SELECT username, password_hash, validity, bearer_token, user_role
		 FROM cb_user WHERE username = $1`, username).
		Scan(&u.Username, &u.PasswordHash, &u.Validity, &u.BearerToken, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return &u, nil
}

// CreateUser inserts a new user. Duplicate usernames fail.
func (r *Repository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO cb_user (username, password_hash, validity, bearer_token, user_role)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.Username, u.PasswordHash, u.Validity, u.BearerToken, u.Role)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

// SaveBearerToken stores the user's current token and its expiry.
func (r *Repository) SaveBearerToken(ctx context.Context, username, token string, validity int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE cb_user SET bearer_token = $1, validity = $2 WHERE username = $3`,
		token, validity, username)
	if err != nil {
		return fmt.Errorf("save token for %q: %w", username, err)
	}
	return nil
}
