package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/LeventeLantos/sms-queue/internal/config"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Open connects to Postgres when a URL is configured and to a SQLite file
// otherwise. It returns the driver name so callers can pick the SQL dialect.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, string, error) {
	if cfg.PostgresURL != "" {
		db, err := open(ctx, DriverPostgres, cfg.PostgresURL)
		if err != nil {
			return nil, "", err
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return db, DriverPostgres, nil
	}

	db, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, "", err
	}
	return db, DriverSQLite, nil
}

// OpenSQLite opens path with IMMEDIATE transactions and a busy timeout, so a
// transition takes the write lock before it reads and other processes wait
// for it instead of failing.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := open(ctx, DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	// One connection per process keeps in-process writers from racing each
	// other into SQLITE_BUSY; cross-process writers rely on busy_timeout.
	db.SetMaxOpenConns(1)
	return db, nil
}

func sqliteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_time_format=sqlite",
		"_txlock=immediate",
	}, "&")
}

func open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping %s: %w (close error: %v)", driver, err, closeErr)
		}
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
