package json

import (
	"context"
	"io"

	"songwarehouse/internal/schema"
)

// Catalog converts one song-data object into a CatalogRecord.
func Catalog(f Fields) schema.CatalogRecord {
	return schema.CatalogRecord{
		SongID:          f.Str("song_id"),
		Title:           f.Str("title"),
		ArtistID:        f.Str("artist_id"),
		ArtistName:      f.Str("artist_name"),
		ArtistLocation:  f.Str("artist_location"),
		ArtistLatitude:  f.Float("artist_latitude"),
		ArtistLongitude: f.Float("artist_longitude"),
		Year:            f.Int("year"),
		Duration:        f.Float("duration"),
		NumSongs:        f.Int("num_songs"),
	}
}

// Event converts one log-data object into an EventRecord.
func Event(f Fields) schema.EventRecord {
	return schema.EventRecord{
		Artist:        f.Str("artist"),
		Auth:          f.Str("auth"),
		FirstName:     f.Str("firstName"),
		Gender:        f.Str("gender"),
		ItemInSession: f.Int("itemInSession"),
		LastName:      f.Str("lastName"),
		Length:        f.Float("length"),
		Level:         f.Str("level"),
		Location:      f.Str("location"),
		Method:        f.Str("method"),
		Page:          f.Str("page"),
		Registration:  f.Float("registration"),
		SessionID:     f.Int("sessionId"),
		Song:          f.Str("song"),
		Status:        f.Int("status"),
		TS:            f.Int("ts"),
		UserAgent:     f.Str("userAgent"),
		UserID:        f.Str("userId"),
	}
}

// DecodeCatalog reads every catalog record from r.
func DecodeCatalog(ctx context.Context, r io.Reader, name string, opt Options, onMalformed func(*MalformedError)) ([]schema.CatalogRecord, Stats, error) {
	var out []schema.CatalogRecord
	st, err := each(ctx, NewDecoder(r, name, opt), onMalformed, func(f Fields) {
		out = append(out, Catalog(f))
	})
	return out, st, err
}

// DecodeEvents reads every event record from r.
func DecodeEvents(ctx context.Context, r io.Reader, name string, opt Options, onMalformed func(*MalformedError)) ([]schema.EventRecord, Stats, error) {
	var out []schema.EventRecord
	st, err := each(ctx, NewDecoder(r, name, opt), onMalformed, func(f Fields) {
		out = append(out, Event(f))
	})
	return out, st, err
}
