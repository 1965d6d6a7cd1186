// Package sqlstore persists model records in SQLite through database/sql.
//
// Every operation acquires a dedicated connection from the Pool and
// releases it before returning. Writes run inside a transaction that is
// committed before the connection goes back to the pool.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverSQLite  = "sqlite"  // modernc.org/sqlite (pure Go)
)

// Options configures a Pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// OnAcquire is called after every acquisition attempt.
	OnAcquire func(wait time.Duration, err error)
}

// Pool is a shared set of database connections.
type Pool struct {
	db        *sql.DB
	driver    string
	onAcquire func(time.Duration, error)
}

// Open opens a pool for driver and dsn.
func Open(driver, dsn string, opts Options) (*Pool, error) {
	if driver == "" {
		driver = DriverSQLite3
	}
	if driver != DriverSQLite3 && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	memory := isMemory(dsn)
	db, err := sql.Open(driver, withPragmas(driver, dsn, memory))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	if memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &Pool{db: db, driver: driver, onAcquire: opts.OnAcquire}, nil
}

// NewPool wraps an existing *sql.DB.
func NewPool(db *sql.DB) *Pool {
	return &Pool{db: db}
}

// Acquire takes a dedicated connection. The caller must Close it.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	start := time.Now()
	conn, err := p.db.Conn(ctx)
	if p.onAcquire != nil {
		p.onAcquire(time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Ping checks the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats returns pool statistics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Driver returns the driver name.
func (p *Pool) Driver() string {
	return p.driver
}

// Close closes every connection.
func (p *Pool) Close() error {
	return p.db.Close()
}

func isMemory(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func withPragmas(driver, dsn string, memory bool) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	if memory || strings.Contains(dsn, "?") {
		return dsn
	}
	if driver == DriverSQLite {
		return dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000"
}
