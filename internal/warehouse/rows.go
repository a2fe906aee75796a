package warehouse

import (
	"database/sql"

	"songwarehouse/internal/schema"
)

// Parquet row layouts. Pointer fields are optional columns; partition
// columns are carried by the directory name, not the file body.

// SongRow is the file layout of songs/.
type SongRow struct {
	SongID   string   `parquet:"song_id"`
	Title    *string  `parquet:"title"`
	ArtistID *string  `parquet:"artist_id"`
	Year     *int64   `parquet:"year"`
	Duration *float64 `parquet:"duration"`
}

// ArtistRow is the file layout of artist/.
type ArtistRow struct {
	ArtistID  string   `parquet:"artist_id"`
	Name      *string  `parquet:"name"`
	Location  *string  `parquet:"location"`
	Latitude  *float64 `parquet:"latitude"`
	Longitude *float64 `parquet:"longitude"`
}

// UserRow is the file layout of users/.
type UserRow struct {
	UserID    string  `parquet:"user_id"`
	FirstName *string `parquet:"first_name"`
	LastName  *string `parquet:"last_name"`
	Gender    *string `parquet:"gender"`
	Level     *string `parquet:"level"`
}

// TimeRow is the file layout of time/; year and month live in the path.
type TimeRow struct {
	TS        int64  `parquet:"ts"`
	StartTime int64  `parquet:"start_time"`
	Hour      int32  `parquet:"hour"`
	Day       int32  `parquet:"day"`
	Week      int32  `parquet:"week"`
	Weekday   string `parquet:"weekday"`
}

// SongplayRow is the file layout of songplays/; year and month live in
// the path.
type SongplayRow struct {
	SongplayID int64   `parquet:"songplay_id"`
	StartTime  int64   `parquet:"start_time"`
	UserID     *string `parquet:"user_id"`
	Level      *string `parquet:"level"`
	SongID     *string `parquet:"song_id"`
	ArtistID   *string `parquet:"artist_id"`
	SessionID  *int64  `parquet:"session_id"`
	Location   *string `parquet:"location"`
	UserAgent  *string `parquet:"user_agent"`
}

func songRow(s schema.SongDim) SongRow {
	return SongRow{
		SongID:   s.SongID,
		Title:    str(s.Title),
		ArtistID: str(s.ArtistID),
		Year:     i64(s.Year),
		Duration: f64(s.Duration),
	}
}

func artistRow(a schema.ArtistDim) ArtistRow {
	return ArtistRow{
		ArtistID:  a.ArtistID,
		Name:      str(a.Name),
		Location:  str(a.Location),
		Latitude:  f64(a.Latitude),
		Longitude: f64(a.Longitude),
	}
}

func userRow(u schema.UserDim) UserRow {
	return UserRow{
		UserID:    u.UserID,
		FirstName: str(u.FirstName),
		LastName:  str(u.LastName),
		Gender:    str(u.Gender),
		Level:     str(u.Level),
	}
}

func timeRow(t schema.TimeDim) TimeRow {
	return TimeRow{
		TS:        t.TS,
		StartTime: t.StartTime,
		Hour:      int32(t.Hour),
		Day:       int32(t.Day),
		Week:      int32(t.Week),
		Weekday:   t.Weekday,
	}
}

func songplayRow(f schema.SongplayFact) SongplayRow {
	return SongplayRow{
		SongplayID: f.SongplayID,
		StartTime:  f.StartTime,
		UserID:     str(f.UserID),
		Level:      str(f.Level),
		SongID:     str(f.SongID),
		ArtistID:   str(f.ArtistID),
		SessionID:  i64(f.SessionID),
		Location:   str(f.Location),
		UserAgent:  str(f.UserAgent),
	}
}

func str(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func i64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func f64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
