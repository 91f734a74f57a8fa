// Package dbpg provides PostgreSQL connection management with primary/replica support
// and read access to the results history.
package dbpg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register PostgreSQL driver for database/sql.
	"github.com/lib/pq"
	"github.com/wb-go/e2ekit/config"
	"github.com/wb-go/e2ekit/retry"
)

// ErrNoMaster is returned by New when the primary DSN is empty.
var ErrNoMaster = errors.New("dbpg: master DSN is empty")

// DB represents a database connection with a master and read replicas.
type DB struct {
	balancer *balancer

	Master   *sql.DB
	Replicas []*sql.DB
}

// Options defines database connection configuration options.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func applyOptions(db *sql.DB, opts *Options) {
	if opts == nil {
		return
	}
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

// New opens the master and replica pools. Connections are established lazily.
func New(masterDSN string, replicaDSNs []string, opts *Options) (*DB, error) {
	if masterDSN == "" {
		return nil, ErrNoMaster
	}
	master, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return nil, fmt.Errorf("dbpg.New: open master: %w", err)
	}
	applyOptions(master, opts)

	replicas := make([]*sql.DB, 0, len(replicaDSNs))
	for _, dsn := range replicaDSNs {
		replica, err := sql.Open("postgres", dsn)
		if err != nil {
			_ = master.Close()
			for _, r := range replicas {
				_ = r.Close()
			}
			return nil, fmt.Errorf("dbpg.New: open replica: %w", err)
		}
		applyOptions(replica, opts)
		replicas = append(replicas, replica)
	}

	return &DB{Master: master, Replicas: replicas, balancer: newBalancer(len(replicas))}, nil
}

// FromConfig opens the pools described by the suite's postgres section.
func FromConfig(cfg config.PostgresConfig) (*DB, error) {
	return New(cfg.DSN, cfg.ReplicaDSNs, &Options{MaxOpenConns: int(cfg.MaxPoolSize)})
}

// Close closes every pool.
func (db *DB) Close() error {
	errs := []error{db.Master.Close()}
	for _, r := range db.Replicas {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// QueryContext executes a query on a replica if available, otherwise on the master.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.selectDB().QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query on a replica if available, otherwise on the master.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.selectDB().QueryRowContext(ctx, query, args...)
}

// ExecContext executes a command on the master database.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.Master.ExecContext(ctx, query, args...)
}

// ExecWithRetry executes a command with a retry strategy.
func (db *DB) ExecWithRetry(ctx context.Context, strategy retry.Strategy, query string, args ...any) (sql.Result, error) {
	return retry.DoValue(ctx, strategy, func() (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	})
}

// QueryWithRetry executes a query with a retry strategy.
func (db *DB) QueryWithRetry(ctx context.Context, strategy retry.Strategy, query string, args ...any) (*sql.Rows, error) {
	return retry.DoValue(ctx, strategy, func() (*sql.Rows, error) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		return rows, nil
	})
}

// QueryRowWithRetry executes a single-row query with a retry strategy.
func (db *DB) QueryRowWithRetry(ctx context.Context, strategy retry.Strategy, query string, args ...any) (*sql.Row, error) {
	return retry.DoValue(ctx, strategy, func() (*sql.Row, error) {
		row := db.QueryRowContext(ctx, query, args...)
		return row, row.Err()
	})
}

// selectDB returns a replica (round-robin) or the master when there are none.
func (db *DB) selectDB() *sql.DB {
	if len(db.Replicas) > 0 {
		return db.Replicas[db.balancer.index()]
	}
	return db.Master
}

// WithTx executes fn within a transaction on the master database.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.Master.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithTxWithRetry runs WithTx under strategy; every attempt uses a fresh transaction.
func (db *DB) WithTxWithRetry(ctx context.Context, strategy retry.Strategy, fn func(*sql.Tx) error) error {
	return retry.Do(ctx, strategy, func() error {
		return db.WithTx(ctx, fn)
	})
}

// Array returns an object that can be passed to Scan for []string.
func Array(a *[]string) any {
	return pq.Array(a)
}
