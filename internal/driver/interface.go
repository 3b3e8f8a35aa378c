package driver

import (
	"context"
	"database/sql"
	"fmt"
)

// Driver abstracts a database connection used as an export record source.
type Driver interface {
	// Name returns the driver name (e.g., "mysql", "postgres").
	Name() string

	// Ping verifies the connection to the database.
	Ping(ctx context.Context) error

	// Query runs a read query. The returned streamer is a RowStreamer for tabular
	// backends and a RecordStreamer for document stores.
	Query(ctx context.Context, query string) (Streamer, error)

	// Close closes the database connection.
	Close() error
}

// Streamer iterates over query results one row at a time.
type Streamer interface {
	// Next advances to the next row. Returns false when there are no more rows or an error occurs.
	Next() bool

	// Err returns the error, if any, that was encountered during iteration.
	Err() error

	// Close closes the streamer and frees resources.
	Close() error
}

// RowStreamer yields rows sharing one column set. *sql.Rows satisfies it as is.
type RowStreamer interface {
	Streamer

	// Columns returns the column names. Safe to call after Query returns.
	Columns() ([]string, error)

	// Scan copies the columns in the current row into the values pointed at by dest.
	Scan(dest ...any) error
}

// RecordStreamer yields rows that do not share a fixed column set, such as documents.
type RecordStreamer interface {
	Streamer

	// Record returns the current row.
	Record() (any, error)
}

// SQLDriver is implemented by drivers backed by database/sql.
type SQLDriver interface {
	Driver
	DB(ctx context.Context) (*sql.DB, error)
}

const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
	Mongo    = "mongo"
)

// Open returns an unconnected driver of the given kind. Connections are made lazily.
func Open(kind, dsn string) (Driver, error) {
	switch kind {
	case MySQL, Postgres, SQLite:
		return NewSQLDriver(kind, dsn), nil
	case Mongo:
		return NewMongoDriver(dsn), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", kind)
}
