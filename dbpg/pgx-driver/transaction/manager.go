// Package transaction runs functions inside PostgreSQL transactions and retries
// them on serialization failures, deadlocks and dropped connections.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxdriver "github.com/wb-go/e2ekit/dbpg/pgx-driver"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

const (
	_defaultMaxAttempts    = 3
	_defaultBaseRetryDelay = 10 * time.Millisecond
	_defaultMaxRetryDelay  = 100 * time.Millisecond

	_backoffMultiplier = 2
)

// Manager executes functions within a retriable database transaction.
type Manager interface {
	// ExecuteInTransaction runs fn inside a transaction. Retryable failures restart
	// the whole transaction, up to the configured number of attempts.
	ExecuteInTransaction(
		ctx context.Context,
		tsName string,
		fn func(tx pgxdriver.QueryExecuter) error,
	) error
}

type manager struct {
	pool   *pgxdriver.Postgres
	logger logger.Logger

	maxAttempts    int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
}

// NewManager creates a transaction manager over pool.
func NewManager(
	pool *pgxdriver.Postgres,
	log logger.Logger,
	opts ...Option,
) (Manager, error) {
	tm := &manager{
		pool:   pool,
		logger: log,

		maxAttempts:    _defaultMaxAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
	}

	for _, opt := range opts {
		opt(tm)
	}
	if err := tm.validate(); err != nil {
		return nil, fmt.Errorf("transaction.NewManager: %w", err)
	}

	return tm, nil
}

func (tm *manager) ExecuteInTransaction(
	ctx context.Context,
	tsName string,
	fn func(tx pgxdriver.QueryExecuter) error,
) error {
	const op = "transaction.ExecuteInTransaction"

	err := retry.Do(ctx, tm.strategy(tsName), func() error {
		return tm.doTransaction(ctx, tsName, fn)
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, tsName, err)
	}
	return nil
}

// strategy maps the manager options onto a retry strategy.
func (tm *manager) strategy(tsName string) retry.Strategy {
	return retry.New(
		retry.MaxRetries(tm.maxAttempts-1),
		retry.InitialDelay(tm.baseRetryDelay),
		retry.BackoffMultiplier(_backoffMultiplier),
		retry.MaxDelay(tm.maxRetryDelay),
		retry.ShouldRetry(IsRetryableError),
		retry.WithLogger(tm.logger.With("transaction", tsName)),
	)
}

// doTransaction is one attempt: begin, run fn, commit. Rollback runs on every exit.
func (tm *manager) doTransaction(ctx context.Context, tsName string, fn func(tx pgxdriver.QueryExecuter) error) error {
	tx, err := tm.pool.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return HandleError(tsName, "begin", err)
	}
	defer tm.safelyRollback(ctx, tx, tsName)

	if err := fn(&pgxdriver.TxQueryExecuter{Tx: tx}); err != nil {
		return HandleError(tsName, "execute", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return HandleError(tsName, "commit", err)
	}
	return nil
}

// safelyRollback ignores pgx.ErrTxClosed, which follows every successful commit.
func (tm *manager) safelyRollback(ctx context.Context, tx pgx.Tx, tsName string) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		tm.logger.LogAttrs(ctx, logger.ErrorLevel, "rollback failed",
			logger.String("transaction", tsName),
			logger.Err(err),
		)
	}
}

// IsRetryableError reports whether err is a transient PostgreSQL failure:
// serialization failure, deadlock, a connection exception or a closed transaction.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001", "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
			return true
		}
		return false
	}

	return errors.Is(err, pgx.ErrTxClosed)
}
