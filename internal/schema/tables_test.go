package schema

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_WriteOrderAndDirs(t *testing.T) {
	t.Parallel()

	var names, dirs []string
	for _, tb := range Tables() {
		names = append(names, tb.Name)
		dirs = append(dirs, tb.Dir)
	}
	assert.Equal(t, []string{"songs", "artists", "users", "time", "songplays"}, names)
	assert.Equal(t, []string{"songs", "artist", "users", "time", "songplays"}, dirs)
}

func TestTables_PartitionColumnsExist(t *testing.T) {
	t.Parallel()

	for _, tb := range Tables() {
		cols := tb.ColumnNames()
		for _, p := range tb.PartitionBy {
			assert.Contains(t, cols, p, "%s partitions by a missing column", tb.Name)
		}
		keys := 0
		for _, c := range tb.Columns {
			if c.PrimaryKey {
				keys++
				assert.False(t, c.Nullable, "%s.%s", tb.Name, c.Name)
			}
		}
		assert.Equal(t, 1, keys, tb.Name)
	}
	assert.True(t, Time.Partitioned())
	assert.True(t, Songplays.Partitioned())
	assert.False(t, Songs.Partitioned())
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tb, err := Lookup("artists")
	require.NoError(t, err)
	assert.Equal(t, "artist", tb.Dir)

	_, err = Lookup("artist")
	require.Error(t, err)
}

// Values must line up with the column lists the writer and the SQL mirror use.
func TestValues_MatchColumns(t *testing.T) {
	t.Parallel()

	assert.Len(t, SongDim{}.Values(), len(Songs.Columns))
	assert.Len(t, ArtistDim{}.Values(), len(Artists.Columns))
	assert.Len(t, UserDim{}.Values(), len(Users.Columns))
	assert.Len(t, TimeDim{}.Values(), len(Time.Columns))
	assert.Len(t, SongplayFact{}.Values(), len(Songplays.Columns))

	row := TimeDim{TS: 1541121934796, StartTime: 1541121934, Hour: 1, Day: 2, Week: 44, Month: 11, Year: 2018, Weekday: "Fri"}.Values()
	assert.Equal(t, []any{int64(1541121934796), int64(1541121934), int64(1), int64(2), int64(44), int64(11), int64(2018), "Fri"}, row)
}

func TestIsPlay(t *testing.T) {
	t.Parallel()

	play := EventRecord{Page: sql.NullString{String: PlayPage, Valid: true}}
	assert.True(t, play.IsPlay(PlayPage))
	assert.False(t, play.IsPlay("Home"))
	assert.False(t, EventRecord{}.IsPlay(PlayPage))
	assert.False(t, EventRecord{Page: sql.NullString{String: "nextsong", Valid: true}}.IsPlay(PlayPage))
}
