package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"bankline/internal/domain"
)

var ErrUserExists = errors.New("username already exists")

// HashPassword returns a stable SHA-256 hex digest for the provided password.
func HashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// InsertUser stores a user with an already-hashed password.
func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username required")
	}
	if u.PasswordHash == "" {
		return errors.New("password_hash required")
	}
	if u.CreatedAt == "" {
		u.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	var exists int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE username=?`, u.Username).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrUserExists
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO users(username,password_hash,created_at) VALUES (?,?,?)`,
		u.Username, u.PasswordHash, u.CreatedAt)
	return err
}

// GetUser returns a user by username.
func (r Repo) GetUser(ctx context.Context, username string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT username,password_hash,created_at FROM users WHERE username=?`, username)
	var u domain.User
	err := row.Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// Authenticate checks a username/password pair against the stored hash.
func (r Repo) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := r.GetUser(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if u.PasswordHash != HashPassword(password) {
		return domain.User{}, errors.New("invalid password")
	}
	return u, nil
}
