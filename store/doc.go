// Package store connects the search layer to its SQL datastore.
//
// Open returns a *bun.DB for Postgres (lib/pq) or SQLite (mattn/go-sqlite3).
// Table[T] executes the criteria produced by the query package through a
// go-repository-bun repository: Find and Count share the same criteria so
// pagination totals always agree with the rows returned. Distinct and
// Increment are issued on bun directly. RepositorySource adapts an existing go-repository-bun
// repository to the same interface.
//
// Errors are wrapped with go-errors; use IsNotFound to detect a missing
// record.
package store
