package transformer

import (
	"database/sql"
	"sort"

	"songwarehouse/internal/schema"
)

// JoinOptions configures BuildSongplays.
type JoinOptions struct {
	// KeepUnmatchedSongs keeps plays without a catalog match, with null
	// song_id and artist_id. The time match stays mandatory.
	KeepUnmatchedSongs bool
}

// JoinStats counts how the plays fared in the join. An event can miss both
// matches and is then counted twice.
type JoinStats struct {
	Events      int
	NoSongMatch int
	NoTimeMatch int
	Rows        int
}

type songKey struct{ title, artist string }

// BuildSongplays joins the play events with the catalog on
// (song = title, artist = artist_name) and with the time rows on ts.
//
// Matching is exact and case-sensitive; a null on either side never matches.
// Every matching catalog record yields its own fact row. Rows are ordered by
// user_id ascending (nulls first, ties in input order) and numbered 1..n.
func BuildSongplays(plays []schema.EventRecord, catalog []schema.CatalogRecord, times []schema.TimeDim, opt JoinOptions) ([]schema.SongplayFact, JoinStats) {
	bySong := make(map[songKey][]schema.CatalogRecord, len(catalog))
	for _, c := range catalog {
		if !c.Title.Valid || !c.ArtistName.Valid {
			continue
		}
		k := songKey{c.Title.String, c.ArtistName.String}
		bySong[k] = append(bySong[k], c)
	}
	byTS := make(map[int64]schema.TimeDim, len(times))
	for _, t := range times {
		if _, ok := byTS[t.TS]; !ok {
			byTS[t.TS] = t
		}
	}

	st := JoinStats{Events: len(plays)}
	var facts []schema.SongplayFact
	for _, e := range plays {
		var matches []schema.CatalogRecord
		if e.Song.Valid && e.Artist.Valid {
			matches = bySong[songKey{e.Song.String, e.Artist.String}]
		}
		if len(matches) == 0 {
			st.NoSongMatch++
		}

		t, timed := schema.TimeDim{}, false
		if e.TS.Valid {
			t, timed = byTS[e.TS.Int64]
		}
		if !timed {
			st.NoTimeMatch++
			continue
		}

		if len(matches) == 0 {
			if opt.KeepUnmatchedSongs {
				facts = append(facts, fact(e, t, sql.NullString{}, sql.NullString{}))
			}
			continue
		}
		for _, c := range matches {
			facts = append(facts, fact(e, t, c.SongID, c.ArtistID))
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		a, b := facts[i].UserID, facts[j].UserID
		if !a.Valid || !b.Valid {
			return !a.Valid && b.Valid
		}
		return a.String < b.String
	})
	for i := range facts {
		facts[i].SongplayID = int64(i + 1)
	}
	st.Rows = len(facts)
	return facts, st
}

func fact(e schema.EventRecord, t schema.TimeDim, songID, artistID sql.NullString) schema.SongplayFact {
	return schema.SongplayFact{
		StartTime: t.StartTime,
		UserID:    e.UserID,
		Level:     e.Level,
		SongID:    songID,
		ArtistID:  artistID,
		SessionID: e.SessionID,
		Location:  e.Location,
		UserAgent: e.UserAgent,
		Year:      t.Year,
		Month:     t.Month,
	}
}
