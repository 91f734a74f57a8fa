// Package pgxdriver provides a PostgreSQL client built on pgx/v5 with connection retries,
// squirrel query building and the repository that persists suite results.
package pgxdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wb-go/e2ekit/config"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

const (
	_defaultMaxPoolSize    = 100
	_defaultConnAttempts   = 10
	_defaultBaseRetryDelay = 100 * time.Millisecond
	_defaultMaxRetryDelay  = 5 * time.Second

	_backoffMultiplier = 2
)

// Postgres represents a PostgreSQL client with a connection pool and SQL builder.
type Postgres struct {
	Builder squirrel.StatementBuilderType
	Pool    *pgxpool.Pool
	logger  logger.Logger

	connAttempts   int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
	maxPoolSize    int32
}

// New parses dsn and connects, retrying with exponential backoff until a ping succeeds
// or the attempts are exhausted.
func New(ctx context.Context, dsn string, log logger.Logger, opts ...Option) (*Postgres, error) {
	const op = "pgxdriver.New"

	pg := &Postgres{
		logger:         log,
		connAttempts:   _defaultConnAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
		maxPoolSize:    _defaultMaxPoolSize,
	}

	for _, opt := range opts {
		opt(pg)
	}
	if err := pg.validate(); err != nil {
		return nil, fmt.Errorf("%s: validation: %w", op, err)
	}

	pg.Builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse pool config: %w", op, err)
	}
	poolConfig.MaxConns = pg.maxPoolSize

	pg.Pool, err = retry.DoValue(ctx, pg.connStrategy(), func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	pg.logger.Info("postgresql connection successful", "max_conns", pg.maxPoolSize)
	return pg, nil
}

// FromConfig connects with the suite's postgres section.
func FromConfig(ctx context.Context, cfg config.PostgresConfig, log logger.Logger, opts ...Option) (*Postgres, error) {
	return New(ctx, cfg.DSN, log, append([]Option{MaxPoolSize(cfg.MaxPoolSize)}, opts...)...)
}

func (p *Postgres) connStrategy() retry.Strategy {
	return retry.New(
		retry.MaxRetries(p.connAttempts-1),
		retry.InitialDelay(p.baseRetryDelay),
		retry.BackoffMultiplier(_backoffMultiplier),
		retry.MaxDelay(p.maxRetryDelay),
		retry.WithLogger(p.logger.With("component", "pgxdriver")),
	)
}

// Ping verifies the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Close shuts down the connection pool. It is safe to call Close multiple times.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.logger.Info("closing postgresql connection pool")
		p.Pool.Close()
	}
}

// Select starts a new SELECT query using the embedded squirrel builder.
func (p *Postgres) Select(columns ...string) squirrel.SelectBuilder {
	return p.Builder.Select(columns...)
}

// Insert starts a new INSERT query using the embedded squirrel builder.
func (p *Postgres) Insert(into string) squirrel.InsertBuilder {
	return p.Builder.Insert(into)
}

// Update starts a new UPDATE query using the embedded squirrel builder.
func (p *Postgres) Update(table string) squirrel.UpdateBuilder {
	return p.Builder.Update(table)
}

// Delete starts a new DELETE query using the embedded squirrel builder.
func (p *Postgres) Delete(from string) squirrel.DeleteBuilder {
	return p.Builder.Delete(from)
}
