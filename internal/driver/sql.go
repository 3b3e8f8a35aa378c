package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlDriver serves every database/sql backend. The database/sql driver name equals the
// kind constant for all supported backends.
type sqlDriver struct {
	name string
	dsn  string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLDriver(name, dsn string) SQLDriver {
	return &sqlDriver{name: name, dsn: dsn}
}

// FromDB wraps an already opened pool. Close closes it.
func FromDB(name string, db *sql.DB) SQLDriver {
	return &sqlDriver{name: name, db: db}
}

func (d *sqlDriver) Name() string {
	return d.name
}

// DB lazily opens the connection pool.
func (d *sqlDriver) DB(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		db, err := sql.Open(d.name, d.dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", d.name, err)
		}
		d.db = db
	}
	return d.db, nil
}

func (d *sqlDriver) Ping(ctx context.Context) error {
	db, err := d.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (d *sqlDriver) Query(ctx context.Context, query string) (Streamer, error) {
	db, err := d.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	return rows, nil
}

func (d *sqlDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}
