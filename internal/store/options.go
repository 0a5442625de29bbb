package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOption returns the raw value stored under name, or ErrNotFound
func (s *Store) GetOption(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM options WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("option %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read option %s: %w", name, err)
	}

	return value, nil
}

// SetOption stores value under name, replacing any previous value
func (s *Store) SetOption(ctx context.Context, name string, value []byte) error {
	query := `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`

	if _, err := s.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to write option %s: %w", name, err)
	}

	return nil
}

// DeleteOption removes name. Deleting a missing option is not an error.
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM options WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}

	return nil
}
