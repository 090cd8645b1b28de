// Package sqlite is a data source backed by a SQLite database file.
//
// Either database/sql driver can serve a data source: mattn/go-sqlite3
// (cgo, the default) or modernc.org/sqlite (pure Go), picked with
// SQLITE_DRIVER. The pool holds one connection configured for WAL
// journaling with foreign keys enforced.
//
// Dataset types are persisted as JSON documents in the dataccess_catalog
// table, so semantic types, SRIDs and constraints survive a reopen.
// Geometries are stored as WKB next to four shadow columns holding their
// bounding rectangle; ST_EnvelopeIntersects compiles to a comparison over
// those columns, and every other spatial relation is refined in memory by
// the spatial processor.
//
// Query graphs are translated with the sqldialect package and always bind
// values as parameters. Changes to constraints and properties rebuild the
// table inside a transaction.
package sqlite
