// Package pg is the Postgres-backed implementation of store.JobStore.
package pg

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Pool sizing per spec.md §5: max 20 connections, 30s idle timeout.
// No acquisition timeout is set, either here or at the call sites:
// acquiring a connection waits for as long as the caller's context allows.
const (
	maxOpenConns    = 20
	maxIdleConns    = 10
	connMaxIdleTime = 30 * time.Second
)

// OpenDB opens a Postgres connection pool via the pgx stdlib driver, wrapped
// in sqlx for struct-scanning convenience in jobs.go.
func OpenDB(dsn string) (*sqlx.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("postgres connected", "max_open_conns", maxOpenConns)
	return sqlx.NewDb(sqlDB, "pgx"), nil
}
