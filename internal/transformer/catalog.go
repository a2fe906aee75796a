package transformer

import (
	"songwarehouse/internal/schema"
	"songwarehouse/internal/transformer/builtin"
)

// ExtractCatalog projects catalog records into the songs and artists
// dimensions. Records without a song_id do not reach songs; records without
// an artist_id do not reach artists. Both outputs are de-duplicated by full
// row and keep first-seen order.
func ExtractCatalog(recs []schema.CatalogRecord) ([]schema.SongDim, []schema.ArtistDim) {
	withSong := builtin.Require[schema.CatalogRecord]{Checks: []func(schema.CatalogRecord) bool{
		func(r schema.CatalogRecord) bool { return r.SongID.Valid },
	}}.Apply(recs)
	songs := make([]schema.SongDim, len(withSong))
	for i, r := range withSong {
		songs[i] = schema.SongDim{
			SongID:   r.SongID.String,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: r.Duration,
		}
	}

	withArtist := builtin.Require[schema.CatalogRecord]{Checks: []func(schema.CatalogRecord) bool{
		func(r schema.CatalogRecord) bool { return r.ArtistID.Valid },
	}}.Apply(recs)
	artists := make([]schema.ArtistDim, len(withArtist))
	for i, r := range withArtist {
		artists[i] = schema.ArtistDim{
			ArtistID:  r.ArtistID.String,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		}
	}

	return builtin.Distinct[schema.SongDim]{}.Apply(songs), builtin.Distinct[schema.ArtistDim]{}.Apply(artists)
}
