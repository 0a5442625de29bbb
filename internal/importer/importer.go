// Package importer replays a Last.fm export archive into played records.
//
// The archive is a zip holding one JSON file per day under
// json/scrobbles/. Each file is an array of scrobble objects; every entry
// with a title and a timestamp is recorded through the same Recorder the
// live submission endpoint uses.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jfmyers9/playlistlog/internal/scrobbler"
	"github.com/rs/zerolog"
)

var (
	// ErrTempDir is returned when the extraction directory cannot be created.
	ErrTempDir = errors.New("import: cannot create temporary directory")

	// ErrExtract is returned when the archive cannot be extracted.
	ErrExtract = errors.New("import: cannot extract archive")
)

// scrobblesGlob locates the per-day files inside an extracted archive
var scrobblesGlob = filepath.Join("json", "scrobbles", "*.json")

// TrackRecorder persists a single played track
type TrackRecorder interface {
	Record(ctx context.Context, userID int64, t scrobbler.Track) (int64, error)
}

// DuplicateFinder reports whether an identical record already exists
type DuplicateFinder interface {
	FindRecord(ctx context.Context, author int64, title string, playedAt time.Time) (int64, bool, error)
}

// Config holds importer configuration
type Config struct {
	TempDir string // Parent of extraction directories (default: os.TempDir())
}

// Importer runs archive imports
type Importer struct {
	recorder TrackRecorder
	records  DuplicateFinder
	tempRoot string
	now      func() time.Time
	logger   zerolog.Logger
}

// Summary reports what an import did
type Summary struct {
	Files        int // Day files found
	SkippedFiles int // Day files that could not be read or parsed
	Imported     int // Records created
	Skipped      int // Entries without title or timestamp
	Duplicates   int // Entries already recorded by an earlier import
}

// New creates an Importer. records may be nil to disable duplicate checks.
func New(cfg Config, recorder TrackRecorder, records DuplicateFinder, logger zerolog.Logger) *Importer {
	return &Importer{
		recorder: recorder,
		records:  records,
		tempRoot: cfg.TempDir,
		now:      time.Now,
		logger:   logger.With().Str("component", "importer").Logger(),
	}
}

// Run imports the archive at archivePath on behalf of userID. The
// extraction directory is always removed before Run returns. Only a failure
// to create or fill that directory, a storage failure or cancellation
// abort the run; unreadable day files and incomplete entries are skipped.
func (im *Importer) Run(ctx context.Context, archivePath string, userID int64) (Summary, error) {
	var sum Summary

	dir, err := im.makeTempDir()
	if err != nil {
		return sum, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			im.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove import directory")
		}
	}()

	im.logger.Info().Str("archive", archivePath).Str("dir", dir).Msg("Import starting")

	if err := extract(archivePath, dir); err != nil {
		return sum, err
	}

	files, err := filepath.Glob(filepath.Join(dir, scrobblesGlob))
	if err != nil {
		return sum, fmt.Errorf("failed to list scrobble files: %w", err)
	}
	sort.Strings(files)
	sum.Files = len(files)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		entries, err := readDayFile(file)
		if err != nil {
			im.logger.Warn().Err(err).Str("file", filepath.Base(file)).Msg("Skipping unreadable file")
			sum.SkippedFiles++
			continue
		}

		im.logger.Debug().Str("file", filepath.Base(file)).Int("entries", len(entries)).Msg("Parsing file")

		for _, raw := range entries {
			if err := im.importEntry(ctx, raw, userID, &sum); err != nil {
				return sum, err
			}
		}
	}

	im.logger.Info().
		Int("files", sum.Files).
		Int("skipped_files", sum.SkippedFiles).
		Int("imported", sum.Imported).
		Int("skipped", sum.Skipped).
		Int("duplicates", sum.Duplicates).
		Msg("Import finished")

	return sum, nil
}

func (im *Importer) importEntry(ctx context.Context, raw json.RawMessage, userID int64, sum *Summary) error {
	var e exportScrobble
	if err := json.Unmarshal(raw, &e); err != nil {
		sum.Skipped++
		return nil
	}

	t, ok := e.toTrack()
	if !ok {
		sum.Skipped++
		return nil
	}

	if im.records != nil {
		_, found, err := im.records.FindRecord(ctx, userID, t.Track, t.PlayedAt)
		if err != nil {
			return err
		}
		if found {
			sum.Duplicates++
			return nil
		}
	}

	if _, err := im.recorder.Record(ctx, userID, t); err != nil {
		return err
	}
	sum.Imported++

	return nil
}

// readDayFile returns the raw entries of a day file. Anything other than a
// JSON array is an error.
func readDayFile(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("not a scrobble array: %w", err)
	}

	return entries, nil
}
