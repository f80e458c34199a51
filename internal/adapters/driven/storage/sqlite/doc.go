// Package sqlite keeps document records and chunk vectors in one SQLite
// file, by default ~/.tinyrag/data/tinyrag.db.
//
// The driver is modernc.org/sqlite, so builds need no cgo. The schema comes
// from the numbered scripts in migrations/; only the .up.sql halves are
// applied automatically, the .down.sql halves are for manual rollback.
//
// Dense search scans every row and ranks in process with the rank package,
// which is fast enough for a local corpus. Concurrency relies on WAL mode
// and a busy timeout.
package sqlite
