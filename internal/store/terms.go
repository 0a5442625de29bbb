package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Term is a classification term (an artist or an album)
type Term struct {
	ID          int64
	Taxonomy    string
	Name        string
	Description string
}

// EnsureTerm returns the term named name in taxonomy, creating it with the
// given description when it does not exist yet. The description of an
// existing term is never overwritten.
func (s *Store) EnsureTerm(ctx context.Context, taxonomy, name, description string) (*Term, bool, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO terms (taxonomy, name, description) VALUES (?, ?, ?)",
		taxonomy, name, description,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert term %q into %s: %w", name, taxonomy, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	term, err := s.TermByName(ctx, taxonomy, name)
	if err != nil {
		return nil, false, err
	}

	return term, rows > 0, nil
}

// TermByName looks a term up by its unique name within taxonomy
func (s *Store) TermByName(ctx context.Context, taxonomy, name string) (*Term, error) {
	var t Term
	err := s.db.QueryRowContext(ctx,
		"SELECT id, taxonomy, name, description FROM terms WHERE taxonomy = ? AND name = ?",
		taxonomy, name,
	).Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %s/%s: %w", taxonomy, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query term: %w", err)
	}

	return &t, nil
}

// SetRecordTerm makes term the only term of its taxonomy attached to the record
func (s *Store) SetRecordTerm(ctx context.Context, recordID int64, term *Term) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM record_terms
		WHERE record_id = ?
		AND term_id IN (SELECT id FROM terms WHERE taxonomy = ?)
	`, recordID, term.Taxonomy)
	if err != nil {
		return fmt.Errorf("failed to clear %s terms of record %d: %w", term.Taxonomy, recordID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO record_terms (record_id, term_id) VALUES (?, ?)",
		recordID, term.ID,
	); err != nil {
		return fmt.Errorf("failed to attach term %d to record %d: %w", term.ID, recordID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountTerms returns the number of terms in taxonomy
func (s *Store) CountTerms(ctx context.Context, taxonomy string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM terms WHERE taxonomy = ?", taxonomy).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count terms: %w", err)
	}

	return count, nil
}
