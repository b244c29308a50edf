// Package store implements the durable, deduplicating result store: a
// DuckDB-backed database of discovered file records and scan progress, plus
// a Badger-backed key-value slot for the collector's scan cursor.
package store
