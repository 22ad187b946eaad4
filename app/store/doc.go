// Package store provides job persistence. Writes go through Channel, a bounded request queue
// served by a small group of workers, so all status transitions from all jobs are serialized
// into a single sink. The queries themselves run on SQLStore, backed by SQLite (WAL mode)
// or Postgres depending on the DSN. Reads for listings go to SQLStore directly.
package store
