package scrobbler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

// createTestStore creates an in-memory record store for testing
func createTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		_ = st.Close()
	})

	return st
}

func TestRecorder_Record(t *testing.T) {
	st := createTestStore(t)
	rec := NewRecorder(st, zerolog.Nop())
	ctx := context.Background()
	played := time.Unix(1000000000, 0)

	id, err := rec.Record(ctx, 5, Track{
		Artist:     "Bar",
		Track:      "Foo",
		Album:      "Baz",
		PlayedAt:   played,
		Meta:       map[string]string{"l": "215", "n": "2"},
		ArtistMeta: map[string]string{"m": "artist-mbid"},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	r, err := st.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}

	if r.Title != "Foo" || r.Author != 5 || !r.PlayedAt.Equal(played) {
		t.Errorf("record = %+v", r)
	}
	if r.Status != protocol.RecordStatus {
		t.Errorf("status = %q, want %q", r.Status, protocol.RecordStatus)
	}
	if r.Artist != "Bar" || r.Album != "Baz" {
		t.Errorf("terms = %q / %q", r.Artist, r.Album)
	}
	if r.Meta["l"] != "215" || r.Meta["n"] != "2" {
		t.Errorf("meta = %v", r.Meta)
	}

	artist, err := st.TermByName(ctx, protocol.TaxonomyArtist, "Bar")
	if err != nil {
		t.Fatalf("TermByName failed: %v", err)
	}
	if artist.Description != `{"m":"artist-mbid"}` {
		t.Errorf("artist description = %q", artist.Description)
	}
}

func TestRecorder_TermsCreatedOnce(t *testing.T) {
	st := createTestStore(t)
	rec := NewRecorder(st, zerolog.Nop())
	ctx := context.Background()

	for i, title := range []string{"One", "Two", "Three"} {
		_, err := rec.Record(ctx, 1, Track{
			Artist:     "Bar",
			Track:      title,
			Album:      "Baz",
			PlayedAt:   time.Unix(int64(1000+i), 0),
			ArtistMeta: map[string]string{"m": title},
		})
		if err != nil {
			t.Fatalf("Record(%s) failed: %v", title, err)
		}
	}

	for _, taxonomy := range []string{protocol.TaxonomyArtist, protocol.TaxonomyAlbum} {
		count, err := st.CountTerms(ctx, taxonomy)
		if err != nil {
			t.Fatalf("CountTerms failed: %v", err)
		}
		if count != 1 {
			t.Errorf("%s terms = %d, want 1", taxonomy, count)
		}
	}

	artist, err := st.TermByName(ctx, protocol.TaxonomyArtist, "Bar")
	if err != nil {
		t.Fatalf("TermByName failed: %v", err)
	}
	if artist.Description != `{"m":"One"}` {
		t.Errorf("artist description = %q, first write should win", artist.Description)
	}

	count, err := st.CountRecords(ctx)
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 3 {
		t.Errorf("records = %d, want 3", count)
	}
}

func TestRecorder_NoAlbum(t *testing.T) {
	st := createTestStore(t)
	rec := NewRecorder(st, zerolog.Nop())
	ctx := context.Background()

	id, err := rec.Record(ctx, 1, Track{Artist: "Bar", Track: "Foo", PlayedAt: time.Now()})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	r, err := st.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if r.Album != "" {
		t.Errorf("album = %q, want none", r.Album)
	}

	count, err := st.CountTerms(ctx, protocol.TaxonomyAlbum)
	if err != nil {
		t.Fatalf("CountTerms failed: %v", err)
	}
	if count != 0 {
		t.Errorf("album terms = %d, want 0", count)
	}
}

// failingStore fails record creation
type failingStore struct {
	RecordStore
}

func (failingStore) CreateRecord(context.Context, store.NewRecord) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestRecorder_StoreFailure(t *testing.T) {
	rec := NewRecorder(failingStore{}, zerolog.Nop())

	_, err := rec.Record(context.Background(), 1, Track{Artist: "Bar", Track: "Foo", PlayedAt: time.Now()})
	if err == nil {
		t.Fatal("expected error from failing store")
	}
}
