package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an account that may scrobble and, when Admin, import archives
type User struct {
	ID             int64
	Login          string
	PasswordHash   string
	ScrobbleSecret string
	Admin          bool
	CreatedAt      time.Time
}

// CreateUser inserts a new user and returns it
func (s *Store) CreateUser(ctx context.Context, login, passwordHash string, admin bool) (*User, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (login, password_hash, is_admin) VALUES (?, ?, ?)",
		login, passwordHash, admin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", login, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert id: %w", err)
	}

	return s.UserByID(ctx, id)
}

// UserByLogin looks a user up by login name
func (s *Store) UserByLogin(ctx context.Context, login string) (*User, error) {
	return s.queryUser(ctx, "WHERE login = ?", login)
}

// UserByID looks a user up by id
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.queryUser(ctx, "WHERE id = ?", id)
}

// ListUsers returns every user ordered by id
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, userColumns+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SetScrobbleSecret stores the user's scrobbler secret. The secret is kept
// in plain form because the handshake digest is computed from it.
func (s *Store) SetScrobbleSecret(ctx context.Context, id int64, secret string) error {
	return s.updateUser(ctx, "scrobble_secret", secret, id)
}

// SetPasswordHash replaces the user's login password hash
func (s *Store) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return s.updateUser(ctx, "password_hash", hash, id)
}

const userColumns = `SELECT id, login, password_hash, scrobble_secret, is_admin, created_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var createdUnix int64
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.ScrobbleSecret, &u.Admin, &createdUnix); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdUnix, 0)
	return &u, nil
}

func (s *Store) queryUser(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userColumns+" "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *Store) updateUser(ctx context.Context, column, value string, id int64) error {
	result, err := s.db.ExecContext(ctx, "UPDATE users SET "+column+" = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	return nil
}
