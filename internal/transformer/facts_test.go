package transformer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songwarehouse/internal/schema"
)

func times(ts ...int64) []schema.TimeDim {
	out := make([]schema.TimeDim, len(ts))
	for i, v := range ts {
		out[i] = DeriveTime(v, time.UTC)
	}
	return out
}

func TestBuildSongplays_ReferenceScenario(t *testing.T) {
	t.Parallel()

	cat := []schema.CatalogRecord{catalogRec("S1", "Song A", "AR1", "Artist A")}
	p := play("42", 1541121934796, "Song A", "Artist A")

	facts, st := BuildSongplays([]schema.EventRecord{p}, cat, times(1541121934796), JoinOptions{})
	require.Len(t, facts, 1)
	assert.Equal(t, schema.SongplayFact{
		SongplayID: 1,
		StartTime:  1541121934,
		UserID:     str("42"),
		Level:      str("free"),
		SongID:     str("S1"),
		ArtistID:   str("AR1"),
		SessionID:  i64(5),
		Location:   str("Somewhere"),
		UserAgent:  str("agent"),
		Year:       2018,
		Month:      11,
	}, facts[0])
	assert.Equal(t, JoinStats{Events: 1, Rows: 1}, st)
}

func TestBuildSongplays_ExactCaseSensitiveMatch(t *testing.T) {
	t.Parallel()

	cat := []schema.CatalogRecord{catalogRec("S1", "Song A", "AR1", "Artist A")}
	in := []schema.EventRecord{
		play("1", 1000, "song a", "Artist A"),
		play("2", 1000, "Song A", "ARTIST A"),
		play("3", 1000, "Song A ", "Artist A"),
	}
	facts, st := BuildSongplays(in, cat, times(1000), JoinOptions{})
	assert.Empty(t, facts)
	assert.Equal(t, 3, st.NoSongMatch)
	assert.Equal(t, 0, st.NoTimeMatch)
}

func TestBuildSongplays_NullsNeverMatch(t *testing.T) {
	t.Parallel()

	nullTitle := catalogRec("S1", "", "AR1", "Artist A")
	nullTitle.Title.Valid = false
	e := play("1", 1000, "", "Artist A")
	e.Song.Valid = false

	facts, st := BuildSongplays([]schema.EventRecord{e}, []schema.CatalogRecord{nullTitle}, times(1000), JoinOptions{})
	assert.Empty(t, facts)
	assert.Equal(t, 1, st.NoSongMatch)
}

func TestBuildSongplays_TimeIsAlwaysInner(t *testing.T) {
	t.Parallel()

	cat := []schema.CatalogRecord{catalogRec("S1", "Song A", "AR1", "Artist A")}
	noTS := play("1", 0, "Song A", "Artist A")
	noTS.TS.Valid = false
	in := []schema.EventRecord{noTS, play("2", 2000, "Song A", "Artist A")}

	facts, st := BuildSongplays(in, cat, times(1000), JoinOptions{KeepUnmatchedSongs: true})
	assert.Empty(t, facts)
	assert.Equal(t, 2, st.NoTimeMatch)
}

/*
TestBuildSongplays_DenseIDsOrderedByUser verifies that songplay_id runs
1..n with no gaps after sorting by user_id as a string (so "10" sorts before
"9"), that null user ids come first, and that ties keep input order.
*/
func TestBuildSongplays_DenseIDsOrderedByUser(t *testing.T) {
	t.Parallel()

	cat := []schema.CatalogRecord{catalogRec("S1", "Song A", "AR1", "Artist A")}
	anon := play("", 3000, "Song A", "Artist A")
	anon.UserID.Valid = false
	first9 := play("9", 1000, "Song A", "Artist A")
	second9 := play("9", 2000, "Song A", "Artist A")

	in := []schema.EventRecord{first9, play("10", 1000, "Song A", "Artist A"), anon, second9}
	facts, _ := BuildSongplays(in, cat, times(1000, 2000, 3000), JoinOptions{})
	require.Len(t, facts, 4)

	var ids []int64
	var users []string
	for _, f := range facts {
		ids = append(ids, f.SongplayID)
		if f.UserID.Valid {
			users = append(users, f.UserID.String)
		} else {
			users = append(users, "<null>")
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	assert.Equal(t, []string{"<null>", "10", "9", "9"}, users)
	assert.Equal(t, int64(1), facts[2].StartTime)
	assert.Equal(t, int64(2), facts[3].StartTime)
}

func TestBuildSongplays_DuplicateCatalogMultiplies(t *testing.T) {
	t.Parallel()

	cat := []schema.CatalogRecord{
		catalogRec("S1", "Song A", "AR1", "Artist A"),
		catalogRec("S1b", "Song A", "AR1", "Artist A"),
	}
	facts, st := BuildSongplays([]schema.EventRecord{play("1", 1000, "Song A", "Artist A")}, cat, times(1000), JoinOptions{})
	require.Len(t, facts, 2)
	assert.Equal(t, "S1", facts[0].SongID.String)
	assert.Equal(t, "S1b", facts[1].SongID.String)
	assert.Equal(t, 2, st.Rows)
}

func TestBuildSongplays_KeepUnmatchedSongs(t *testing.T) {
	t.Parallel()

	facts, st := BuildSongplays([]schema.EventRecord{play("1", 1000, "Unknown", "Nobody")}, nil, times(1000), JoinOptions{KeepUnmatchedSongs: true})
	require.Len(t, facts, 1)
	assert.False(t, facts[0].SongID.Valid)
	assert.False(t, facts[0].ArtistID.Valid)
	assert.Equal(t, 1970, facts[0].Year)
	assert.Equal(t, 1, st.NoSongMatch)
	assert.Equal(t, 1, st.Rows)
}
