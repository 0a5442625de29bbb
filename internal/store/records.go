package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
)

// NewRecord describes a played record to insert
type NewRecord struct {
	Title    string
	Author   int64
	PlayedAt time.Time
}

// Record is a persisted played record with its metadata and terms
type Record struct {
	ID       int64
	Title    string
	Author   int64
	Status   string
	PlayedAt time.Time
	Artist   string
	Album    string
	Meta     map[string]string
}

// CreateRecord inserts a private played record and returns its id
func (s *Store) CreateRecord(ctx context.Context, r NewRecord) (int64, error) {
	if strings.TrimSpace(r.Title) == "" {
		return 0, fmt.Errorf("record title is required")
	}

	query := `
		INSERT INTO records (type, title, author, status, played_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		protocol.QueryVar,
		r.Title,
		r.Author,
		protocol.RecordStatus,
		r.PlayedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// AddRecordMeta attaches a metadata value to a record. A key that is
// already set keeps its first value.
func (s *Store) AddRecordMeta(ctx context.Context, recordID int64, key, value string) error {
	query := `
		INSERT OR IGNORE INTO record_meta (record_id, key, value)
		VALUES (?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, recordID, key, value); err != nil {
		return fmt.Errorf("failed to add meta %s to record %d: %w", key, recordID, err)
	}

	return nil
}

// FindRecord looks for a record with the same author, title and play time
func (s *Store) FindRecord(ctx context.Context, author int64, title string, playedAt time.Time) (int64, bool, error) {
	query := `
		SELECT id FROM records
		WHERE author = ? AND title = ? AND played_at = ?
		LIMIT 1
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query, author, title, playedAt.Unix()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find record: %w", err)
	}

	return id, true, nil
}

// GetRecord loads a single record with its metadata and terms
func (s *Store) GetRecord(ctx context.Context, id int64) (*Record, error) {
	records, err := s.queryRecords(ctx, "WHERE r.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}

	r := records[0]
	meta, err := s.recordMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Meta = meta

	return &r, nil
}

// ListRecords returns the most recently played records, newest first.
// An author of 0 lists records of every user; limit <= 0 means no limit.
func (s *Store) ListRecords(ctx context.Context, author int64, limit int) ([]Record, error) {
	where := ""
	var args []any
	if author > 0 {
		where = "WHERE r.author = ?"
		args = append(args, author)
	}

	where += " ORDER BY r.played_at DESC, r.id DESC"
	if limit > 0 {
		where += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryRecords(ctx, where, args...)
}

// CountRecords returns the number of played records
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return count, nil
}

func (s *Store) queryRecords(ctx context.Context, clause string, args ...any) ([]Record, error) {
	query := `
		SELECT r.id, r.title, r.author, r.status, r.played_at,
			COALESCE((SELECT t.name FROM record_terms rt JOIN terms t ON t.id = rt.term_id
				WHERE rt.record_id = r.id AND t.taxonomy = ? LIMIT 1), ''),
			COALESCE((SELECT t.name FROM record_terms rt JOIN terms t ON t.id = rt.term_id
				WHERE rt.record_id = r.id AND t.taxonomy = ? LIMIT 1), '')
		FROM records r
	` + clause

	args = append([]any{protocol.TaxonomyArtist, protocol.TaxonomyAlbum}, args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var playedUnix int64

		if err := rows.Scan(&r.ID, &r.Title, &r.Author, &r.Status, &playedUnix, &r.Artist, &r.Album); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.PlayedAt = time.Unix(playedUnix, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func (s *Store) recordMeta(ctx context.Context, id int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM record_meta WHERE record_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query record meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan record meta: %w", err)
		}
		meta[k] = v
	}

	return meta, rows.Err()
}
