package scrobbler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

// RecordStore is the content-record storage the Recorder writes to
type RecordStore interface {
	CreateRecord(ctx context.Context, r store.NewRecord) (int64, error)
	AddRecordMeta(ctx context.Context, recordID int64, key, value string) error
	EnsureTerm(ctx context.Context, taxonomy, name, description string) (*store.Term, bool, error)
	SetRecordTerm(ctx context.Context, recordID int64, term *store.Term) error
}

// Recorder turns track events into persisted played records
type Recorder struct {
	store  RecordStore
	logger zerolog.Logger
}

// NewRecorder creates a Recorder writing to rs
func NewRecorder(rs RecordStore, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  rs,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Record creates one private played record authored by userID, attaches
// the track metadata and links the artist and album terms, creating each
// term on first sight. It returns the new record id.
func (r *Recorder) Record(ctx context.Context, userID int64, t Track) (int64, error) {
	id, err := r.store.CreateRecord(ctx, store.NewRecord{
		Title:    t.Track,
		Author:   userID,
		PlayedAt: t.PlayedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create record: %w", err)
	}

	r.logger.Debug().
		Int64("id", id).
		Str("track", t.Track).
		Str("artist", t.Artist).
		Msg("Track inserted")

	keys := make([]string, 0, len(t.Meta))
	for k := range t.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.store.AddRecordMeta(ctx, id, k, t.Meta[k]); err != nil {
			return id, err
		}
	}

	if err := r.classify(ctx, id, protocol.TaxonomyArtist, t.Artist, t.ArtistMeta); err != nil {
		return id, err
	}
	if err := r.classify(ctx, id, protocol.TaxonomyAlbum, t.Album, t.AlbumMeta); err != nil {
		return id, err
	}

	return id, nil
}

func (r *Recorder) classify(ctx context.Context, recordID int64, taxonomy, name string, meta map[string]string) error {
	if name == "" {
		return nil
	}

	var description string
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to encode %s metadata: %w", taxonomy, err)
		}
		description = string(data)
	}

	term, created, err := r.store.EnsureTerm(ctx, taxonomy, name, description)
	if err != nil {
		return err
	}
	if created {
		r.logger.Debug().Str("taxonomy", taxonomy).Str("name", name).Msg("Term inserted")
	}

	return r.store.SetRecordTerm(ctx, recordID, term)
}
