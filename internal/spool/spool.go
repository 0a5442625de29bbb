// Package spool keeps scrobbles the client could not deliver so they can
// be resubmitted later.
package spool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Spool is a SQLite-backed list of undelivered scrobbles
type Spool struct {
	db *sql.DB
}

// Entry is one spooled scrobble
type Entry struct {
	ID        int64
	User      string
	Artist    string
	Track     string
	Album     string
	Duration  int // seconds
	PlayedAt  time.Time
	Delivered bool
	Error     string
}

// Open opens the spool database at dbPath, creating it if needed.
func Open(dbPath string) (*Spool, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS spool (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user TEXT NOT NULL,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0,
			played_at INTEGER NOT NULL,
			delivered BOOLEAN NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_spool_pending ON spool(user, delivered, played_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create spool schema: %w", err)
	}

	return &Spool{db: db}, nil
}

// Close closes the database connection
func (s *Spool) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add spools a scrobble and returns its id
func (s *Spool) Add(ctx context.Context, e Entry) (int64, error) {
	if e.User == "" || e.Artist == "" || e.Track == "" {
		return 0, fmt.Errorf("spool entry needs user, artist and track")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO spool (user, artist, track, album, duration, played_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.User, e.Artist, e.Track, e.Album, e.Duration, e.PlayedAt.Unix(), e.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to spool scrobble: %w", err)
	}

	return res.LastInsertId()
}

// Pending returns undelivered entries of user, oldest first. limit <= 0
// means no limit.
func (s *Spool) Pending(ctx context.Context, user string, limit int) ([]Entry, error) {
	query := `
		SELECT id, user, artist, track, album, duration, played_at, delivered, error
		FROM spool
		WHERE user = ? AND delivered = 0
		ORDER BY played_at ASC, id ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query spool: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var playedAt int64
		if err := rows.Scan(&e.ID, &e.User, &e.Artist, &e.Track, &e.Album, &e.Duration, &playedAt, &e.Delivered, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan spool entry: %w", err)
		}
		e.PlayedAt = time.Unix(playedAt, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spool: %w", err)
	}

	return entries, nil
}

// MarkDelivered flags the given entries as sent
func (s *Spool) MarkDelivered(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "UPDATE spool SET delivered = 1, error = '' WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to mark entry %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MarkRejected settles entries the server refused for good. They leave
// the pending list and keep the rejection as their error.
func (s *Spool) MarkRejected(ctx context.Context, ids []int64, msg string) error {
	return s.setError(ctx, ids, msg, true)
}

// MarkError records the last delivery failure of the given entries
func (s *Spool) MarkError(ctx context.Context, ids []int64, msg string) error {
	return s.setError(ctx, ids, msg, false)
}

func (s *Spool) setError(ctx context.Context, ids []int64, msg string, settle bool) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, msg)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	query := "UPDATE spool SET error = ?"
	if settle {
		query += ", delivered = 1"
	}
	_, err := s.db.ExecContext(ctx, query+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to mark spool error: %w", err)
	}

	return nil
}

// Cleanup deletes delivered and rejected entries played before cutoff.
// Pending entries are always kept.
func (s *Spool) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM spool WHERE delivered = 1 AND played_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up spool: %w", err)
	}

	return res.RowsAffected()
}

// Count returns the number of entries, or only the undelivered ones
// when pendingOnly is set
func (s *Spool) Count(ctx context.Context, pendingOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM spool"
	if pendingOnly {
		query += " WHERE delivered = 0"
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count spool: %w", err)
	}

	return count, nil
}
