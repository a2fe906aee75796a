package transformer

import (
	"time"

	"songwarehouse/internal/schema"
	"songwarehouse/internal/transformer/builtin"
)

// EventOptions configures ExtractEvents.
type EventOptions struct {
	// PlayPage is the page value that marks a song play. Empty means
	// schema.PlayPage.
	PlayPage string

	// Location is the zone the time dimension is derived in. Nil means UTC.
	Location *time.Location
}

// ExtractEvents keeps the song-play events and derives the users and time
// dimensions from them. It returns the users, the time rows and the filtered
// events, in that order. Events without a userId do not reach users; events
// without a ts do not reach time.
func ExtractEvents(events []schema.EventRecord, opt EventOptions) ([]schema.UserDim, []schema.TimeDim, []schema.EventRecord) {
	page := opt.PlayPage
	if page == "" {
		page = schema.PlayPage
	}
	loc := opt.Location
	if loc == nil {
		loc = time.UTC
	}

	plays := builtin.Require[schema.EventRecord]{Checks: []func(schema.EventRecord) bool{
		func(e schema.EventRecord) bool { return e.IsPlay(page) },
	}}.Apply(events)

	users := make([]schema.UserDim, 0, len(plays))
	times := make([]schema.TimeDim, 0, len(plays))
	for _, e := range plays {
		if e.UserID.Valid {
			users = append(users, schema.UserDim{
				UserID:    e.UserID.String,
				FirstName: e.FirstName,
				LastName:  e.LastName,
				Gender:    e.Gender,
				Level:     e.Level,
			})
		}
		if e.TS.Valid {
			times = append(times, DeriveTime(e.TS.Int64, loc))
		}
	}

	return builtin.Distinct[schema.UserDim]{}.Apply(users), builtin.Distinct[schema.TimeDim]{}.Apply(times), plays
}

// DeriveTime computes the time dimension row of an epoch-millisecond
// timestamp in loc. start_time truncates toward zero.
func DeriveTime(ts int64, loc *time.Location) schema.TimeDim {
	sec := ts / 1000
	t := time.Unix(sec, 0).In(loc)
	_, week := t.ISOWeek()
	return schema.TimeDim{
		TS:        ts,
		StartTime: sec,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   t.Weekday().String()[:3],
	}
}
