package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"songwarehouse/internal/metrics"
	"songwarehouse/internal/schema"
	"songwarehouse/internal/tracing"
	"songwarehouse/internal/transformer"
	"songwarehouse/internal/transformer/builtin"
)

// warnDuplicateKeys reports dimension keys shared by rows that differ in
// another attribute. Such rows are kept as they are.
func warnDuplicateKeys(ec *ExecContext, log *zap.Logger, table string, dups int) {
	if dups == 0 {
		return
	}
	metrics.RecordRow(ec.Opt.Job, "duplicate_keys_"+table, int64(dups))
	log.Warn("etl: dimension keys with differing attributes", zap.String("table", table), zap.Int("keys", dups))
}

func extractCatalog(ctx context.Context, ec *ExecContext, recs []schema.CatalogRecord) catalogOut {
	start := time.Now()
	_, span := tracing.Start(ctx, "etl.extract_catalog")
	songs, artists := transformer.ExtractCatalog(recs)
	tracing.End(span, nil)
	metrics.RecordStep(ec.Opt.Job, "extract_catalog", nil, time.Since(start))

	log := ec.Log.Named("catalog")
	warnDuplicateKeys(ec, log, "songs", builtin.DuplicateKeys(songs, func(s schema.SongDim) string { return s.SongID }))
	warnDuplicateKeys(ec, log, "artists", builtin.DuplicateKeys(artists, func(a schema.ArtistDim) string { return a.ArtistID }))
	log.Info("etl: catalog extracted",
		zap.Int("records", len(recs)),
		zap.Int("songs", len(songs)),
		zap.Int("artists", len(artists)))
	return catalogOut{recs: recs, songs: songs, artists: artists}
}

func extractEvents(ctx context.Context, ec *ExecContext, recs []schema.EventRecord) eventsOut {
	start := time.Now()
	_, span := tracing.Start(ctx, "etl.extract_events")
	users, times, plays := transformer.ExtractEvents(recs, transformer.EventOptions{
		PlayPage: ec.Opt.PlayPage,
		Location: ec.Opt.Location,
	})
	tracing.End(span, nil)
	metrics.RecordStep(ec.Opt.Job, "extract_events", nil, time.Since(start))
	metrics.RecordRow(ec.Opt.Job, "plays", int64(len(plays)))

	log := ec.Log.Named("events")
	warnDuplicateKeys(ec, log, "users", builtin.DuplicateKeys(users, func(u schema.UserDim) string { return u.UserID }))
	log.Info("etl: events extracted",
		zap.Int("events", len(recs)),
		zap.Int("plays", len(plays)),
		zap.Int("users", len(users)),
		zap.Int("time", len(times)))
	return eventsOut{users: users, times: times, plays: plays}
}

func buildSongplays(ctx context.Context, ec *ExecContext, ev eventsOut, cat catalogOut) ([]schema.SongplayFact, transformer.JoinStats) {
	start := time.Now()
	_, span := tracing.Start(ctx, "etl.build_songplays")
	facts, st := transformer.BuildSongplays(ev.plays, cat.recs, ev.times, transformer.JoinOptions{
		KeepUnmatchedSongs: ec.Opt.KeepUnmatchedSongs,
	})
	tracing.End(span, nil)
	metrics.RecordStep(ec.Opt.Job, "build_songplays", nil, time.Since(start))
	metrics.RecordRow(ec.Opt.Job, "join_mismatch_song", int64(st.NoSongMatch))
	metrics.RecordRow(ec.Opt.Job, "join_mismatch_time", int64(st.NoTimeMatch))

	log := ec.Log.Named("facts")
	if st.NoSongMatch > 0 || st.NoTimeMatch > 0 {
		log.Info("etl: plays without a match",
			zap.Int("no_song_match", st.NoSongMatch),
			zap.Int("no_time_match", st.NoTimeMatch),
			zap.Bool("kept_unmatched_songs", ec.Opt.KeepUnmatchedSongs))
	}
	log.Info("etl: songplays built", zap.Int("plays", st.Events), zap.Int("rows", st.Rows))
	return facts, st
}
