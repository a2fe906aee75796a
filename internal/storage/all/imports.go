// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and DDL builders with the storage
// package. Importing it makes these kinds available at runtime:
//
//   - "postgres" (songwarehouse/internal/storage/postgres)
//   - "mssql"    (songwarehouse/internal/storage/mssql)
//   - "mysql"    (songwarehouse/internal/storage/mysql)
//   - "sqlite"   (songwarehouse/internal/storage/sqlite)
//
// Typical usage (in cmd/etl or a similar wiring layer):
//
//	import _ "songwarehouse/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{
//	    Kind: p.Storage.Kind,
//	    DSN:  p.Storage.DB.DSN,
//	})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//
//	m := storage.NewMirror(repo, storage.MirrorOptions{Kind: p.Storage.Kind}, log)
//
// A binary that supports only a subset of backends can import the required
// backend packages directly instead of this package.
package all

import (
	_ "songwarehouse/internal/storage/mssql"
	_ "songwarehouse/internal/storage/mysql"
	_ "songwarehouse/internal/storage/postgres"
	_ "songwarehouse/internal/storage/sqlite"
)
