package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songwarehouse/internal/schema"
)

func catalogRec(songID, title, artistID, artistName string) schema.CatalogRecord {
	return schema.CatalogRecord{
		SongID:     str(songID),
		Title:      str(title),
		ArtistID:   str(artistID),
		ArtistName: str(artistName),
		Year:       i64(2000),
		Duration:   f64(210.5),
	}
}

func TestExtractCatalog_Projection(t *testing.T) {
	t.Parallel()

	rec := catalogRec("S1", "Song A", "AR1", "Artist A")
	rec.ArtistLocation = str("Paris")
	rec.ArtistLatitude = f64(48.85)
	rec.NumSongs = i64(1)

	songs, artists := ExtractCatalog([]schema.CatalogRecord{rec})
	require.Len(t, songs, 1)
	require.Len(t, artists, 1)

	assert.Equal(t, schema.SongDim{
		SongID:   "S1",
		Title:    str("Song A"),
		ArtistID: str("AR1"),
		Year:     i64(2000),
		Duration: f64(210.5),
	}, songs[0])
	assert.Equal(t, schema.ArtistDim{
		ArtistID: "AR1",
		Name:     str("Artist A"),
		Location: str("Paris"),
		Latitude: f64(48.85),
	}, artists[0])
	assert.False(t, artists[0].Longitude.Valid)
}

/*
TestExtractCatalog_NullKeysAreFilteredIndependently verifies that a record
without a song_id still feeds the artists table and a record without an
artist_id still feeds the songs table.
*/
func TestExtractCatalog_NullKeysAreFilteredIndependently(t *testing.T) {
	t.Parallel()

	noSong := catalogRec("", "Orphan", "AR2", "Artist B")
	noSong.SongID.Valid = false
	noArtist := catalogRec("S3", "Lonely", "", "")
	noArtist.ArtistID.Valid = false

	songs, artists := ExtractCatalog([]schema.CatalogRecord{noSong, noArtist})
	require.Len(t, songs, 1)
	assert.Equal(t, "S3", songs[0].SongID)
	assert.False(t, songs[0].ArtistID.Valid)
	require.Len(t, artists, 1)
	assert.Equal(t, "AR2", artists[0].ArtistID)
}

func TestExtractCatalog_FullRowDistinct(t *testing.T) {
	t.Parallel()

	a := catalogRec("S1", "Song A", "AR1", "Artist A")
	b := catalogRec("S2", "Song B", "AR1", "Artist A")
	renamed := catalogRec("S1", "Song A (remaster)", "AR1", "Artist A")

	songs, artists := ExtractCatalog([]schema.CatalogRecord{a, b, a, renamed})

	// Exact duplicates collapse; a differing row with the same key is kept.
	require.Len(t, songs, 3)
	assert.Equal(t, []string{"S1", "S2", "S1"}, []string{songs[0].SongID, songs[1].SongID, songs[2].SongID})
	require.Len(t, artists, 1)
	assert.Equal(t, "AR1", artists[0].ArtistID)
}

func TestExtractCatalog_Empty(t *testing.T) {
	t.Parallel()

	songs, artists := ExtractCatalog(nil)
	assert.Empty(t, songs)
	assert.Empty(t, artists)
}
