package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTrack(t *testing.T) {
	entry := func(mutate func(e *exportScrobble)) exportScrobble {
		e := exportScrobble{}
		e.Track.Name = "Foo"
		e.Track.Artist = exportArtist{Name: "Bar", MBID: "bar-mbid"}
		e.Album = exportAlbum{Name: "Baz", MBID: "baz-mbid", Artist: exportArtist{Name: "Qux", MBID: "qux-mbid"}}
		e.Timestamp.ISO = "2020-01-02T03:04:05Z"
		if mutate != nil {
			mutate(&e)
		}
		return e
	}

	t.Run("complete entry", func(t *testing.T) {
		tr, ok := entry(nil).toTrack()
		require.True(t, ok)
		assert.Equal(t, "Foo", tr.Track)
		assert.Equal(t, "Bar", tr.Artist)
		assert.Equal(t, map[string]string{"m": "bar-mbid"}, tr.ArtistMeta)
		assert.Equal(t, "Baz", tr.Album)
		assert.Equal(t, map[string]string{"m": "baz-mbid"}, tr.AlbumMeta)
		assert.Nil(t, tr.Meta)
		assert.True(t, tr.PlayedAt.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))
	})

	t.Run("track mbid becomes record metadata", func(t *testing.T) {
		tr, ok := entry(func(e *exportScrobble) { e.Track.MBID = "track-mbid" }).toTrack()
		require.True(t, ok)
		assert.Equal(t, map[string]string{"m": "track-mbid"}, tr.Meta)
	})

	t.Run("album artist fallback carries its own mbid", func(t *testing.T) {
		tr, ok := entry(func(e *exportScrobble) { e.Track.Artist = exportArtist{} }).toTrack()
		require.True(t, ok)
		assert.Equal(t, "Qux", tr.Artist)
		assert.Equal(t, map[string]string{"m": "qux-mbid"}, tr.ArtistMeta)
	})

	t.Run("track artist without mbid does not borrow one", func(t *testing.T) {
		tr, ok := entry(func(e *exportScrobble) { e.Track.Artist.MBID = "" }).toTrack()
		require.True(t, ok)
		assert.Equal(t, "Bar", tr.Artist)
		assert.Nil(t, tr.ArtistMeta)
	})

	t.Run("no artist anywhere", func(t *testing.T) {
		tr, ok := entry(func(e *exportScrobble) {
			e.Track.Artist = exportArtist{}
			e.Album.Artist = exportArtist{}
		}).toTrack()
		require.True(t, ok)
		assert.Empty(t, tr.Artist)
	})

	skipped := map[string]func(e *exportScrobble){
		"missing title":        func(e *exportScrobble) { e.Track.Name = " " },
		"missing timestamp":    func(e *exportScrobble) { e.Timestamp.ISO = "" },
		"unparsable timestamp": func(e *exportScrobble) { e.Timestamp.ISO = "last tuesday" },
	}
	for name, mutate := range skipped {
		t.Run(name, func(t *testing.T) {
			_, ok := entry(mutate).toTrack()
			assert.False(t, ok)
		})
	}
}

func TestParseISO(t *testing.T) {
	want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, s := range []string{
		"2020-01-02T03:04:05Z",
		"2020-01-02T03:04:05+00:00",
		"2020-01-02T03:04:05+0000",
		"2020-01-02T03:04:05",
		"2020-01-02 03:04:05",
	} {
		t.Run(s, func(t *testing.T) {
			got, err := parseISO(s)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %v", got)
		})
	}

	_, err := parseISO("02/01/2020")
	assert.Error(t, err)
}
