package sqlite

import "time"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite file path or URI, e.g. "warehouse.db" or
	// "file:warehouse.db?_pragma=busy_timeout(5000)". ":memory:" gives a
	// private in-memory database.
	DSN string

	// ConnectTimeout bounds the initial ping. Zero means 5s.
	ConnectTimeout time.Duration
}
