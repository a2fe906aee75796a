// Package schema defines the raw record shapes read from the song-data and
// log-data trees and the five warehouse row types derived from them.
//
// Nullable attributes use the database/sql Null* wrappers: they keep null
// distinct from the zero value, they are comparable (so rows can be
// de-duplicated by full-row equality with a plain map key), and they
// implement driver.Valuer for the SQL mirror.
package schema

import "database/sql"

// PlayPage is the log "page" value that marks a song play.
const PlayPage = "NextSong"

// CatalogRecord is one entry of the song-data tree.
type CatalogRecord struct {
	SongID          sql.NullString
	Title           sql.NullString
	ArtistID        sql.NullString
	ArtistName      sql.NullString
	ArtistLocation  sql.NullString
	ArtistLatitude  sql.NullFloat64
	ArtistLongitude sql.NullFloat64
	Year            sql.NullInt64
	Duration        sql.NullFloat64
	NumSongs        sql.NullInt64
}

// EventRecord is one user action from the log-data tree.
type EventRecord struct {
	Artist        sql.NullString
	Auth          sql.NullString
	FirstName     sql.NullString
	Gender        sql.NullString
	ItemInSession sql.NullInt64
	LastName      sql.NullString
	Length        sql.NullFloat64
	Level         sql.NullString
	Location      sql.NullString
	Method        sql.NullString
	Page          sql.NullString
	Registration  sql.NullFloat64
	SessionID     sql.NullInt64
	Song          sql.NullString
	Status        sql.NullInt64
	TS            sql.NullInt64 // epoch milliseconds
	UserAgent     sql.NullString
	UserID        sql.NullString
}

// IsPlay reports whether the event is a song play for the given page value.
func (e EventRecord) IsPlay(page string) bool {
	return e.Page.Valid && e.Page.String == page
}

// SongDim is a row of the songs dimension.
type SongDim struct {
	SongID   string
	Title    sql.NullString
	ArtistID sql.NullString
	Year     sql.NullInt64
	Duration sql.NullFloat64
}

// ArtistDim is a row of the artists dimension.
type ArtistDim struct {
	ArtistID  string
	Name      sql.NullString
	Location  sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
}

// UserDim is a row of the users dimension.
type UserDim struct {
	UserID    string
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
}

// TimeDim is a row of the time dimension. TS is the original event
// timestamp in milliseconds and the join key back to the events.
type TimeDim struct {
	TS        int64
	StartTime int64 // epoch seconds
	Hour      int
	Day       int
	Week      int // ISO 8601 week
	Month     int
	Year      int
	Weekday   string // "Mon" .. "Sun"
}

// SongplayFact is a row of the songplays fact table.
type SongplayFact struct {
	SongplayID int64
	StartTime  int64
	UserID     sql.NullString
	Level      sql.NullString
	SongID     sql.NullString
	ArtistID   sql.NullString
	SessionID  sql.NullInt64
	Location   sql.NullString
	UserAgent  sql.NullString
	Year       int
	Month      int
}

// Values returns the row aligned with Songs.Columns.
func (s SongDim) Values() []any {
	return []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration}
}

// Values returns the row aligned with Artists.Columns.
func (a ArtistDim) Values() []any {
	return []any{a.ArtistID, a.Name, a.Location, a.Latitude, a.Longitude}
}

// Values returns the row aligned with Users.Columns.
func (u UserDim) Values() []any {
	return []any{u.UserID, u.FirstName, u.LastName, u.Gender, u.Level}
}

// Values returns the row aligned with Time.Columns.
func (t TimeDim) Values() []any {
	return []any{t.TS, t.StartTime, int64(t.Hour), int64(t.Day), int64(t.Week), int64(t.Month), int64(t.Year), t.Weekday}
}

// Values returns the row aligned with Songplays.Columns.
func (f SongplayFact) Values() []any {
	return []any{
		f.SongplayID, f.StartTime, f.UserID, f.Level, f.SongID, f.ArtistID,
		f.SessionID, f.Location, f.UserAgent, int64(f.Year), int64(f.Month),
	}
}
