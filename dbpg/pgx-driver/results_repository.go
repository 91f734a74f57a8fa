package pgxdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/wb-go/e2ekit/dbpg"
	"github.com/wb-go/e2ekit/results"
)

// CopyThreshold is the result count from which SaveResults switches from a batch to COPY.
const CopyThreshold = 50

// ErrRunNotFound is returned by RunSummary for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

var (
	runColumns    = []string{"id", "started_at", "duration_ms", "environment", "total", "passed", "failed", "skipped", "flaky"}
	resultColumns = []string{"run_id", "title", "file", "status", "retry", "duration_ms", "error"}
)

// ResultsRepository persists run summaries and per-test results.
// Methods take a QueryExecuter so they compose inside transaction.Manager.
type ResultsRepository struct {
	builder     squirrel.StatementBuilderType
	environment string
}

// NewResultsRepository creates a repository tagging runs with environment.
func NewResultsRepository(environment string) *ResultsRepository {
	return &ResultsRepository{
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		environment: environment,
	}
}

func (r *ResultsRepository) saveRunQuery(s results.Summary) (string, []any, error) {
	return r.builder.Insert(dbpg.RunsTable).
		Columns(runColumns...).
		Values(s.RunID, s.StartedAt, s.Duration.Milliseconds(), r.environment,
			s.Total, s.Passed, s.Failed, s.Skipped, s.Flaky).
		Suffix(`ON CONFLICT (id) DO UPDATE SET duration_ms = EXCLUDED.duration_ms, total = EXCLUDED.total, ` +
			`passed = EXCLUDED.passed, failed = EXCLUDED.failed, skipped = EXCLUDED.skipped, flaky = EXCLUDED.flaky`).
		ToSql()
}

// SaveRun inserts the run row, or updates its counters when the run is already stored.
func (r *ResultsRepository) SaveRun(ctx context.Context, qe QueryExecuter, s results.Summary) error {
	const op = "pgxdriver.SaveRun"

	sql, args, err := r.saveRunQuery(s)
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := qe.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ResultsRepository) insertResultQuery() (string, error) {
	placeholders := make([]any, len(resultColumns))
	sql, _, err := r.builder.Insert(dbpg.ResultsTable).
		Columns(resultColumns...).
		Values(placeholders...).
		ToSql()
	return sql, err
}

// SaveResults stores the results of runID: a pgx batch below CopyThreshold, COPY FROM above it.
func (r *ResultsRepository) SaveResults(ctx context.Context, qe QueryExecuter, runID string, rs []results.TestResult) error {
	const op = "pgxdriver.SaveResults"

	if len(rs) == 0 {
		return nil
	}

	if len(rs) >= CopyThreshold {
		if _, err := CopyResults(ctx, qe, runID, rs); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	sql, err := r.insertResultQuery()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if err := BatchResults(ctx, qe, sql, runID, rs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ResultsRepository) deleteResultsQuery(runID string) (string, []any, error) {
	return r.builder.Delete(dbpg.ResultsTable).Where(squirrel.Eq{"run_id": runID}).ToSql()
}

// DeleteResults removes every stored result of runID.
func (r *ResultsRepository) DeleteResults(ctx context.Context, qe QueryExecuter, runID string) error {
	const op = "pgxdriver.DeleteResults"

	sql, args, err := r.deleteResultsQuery(runID)
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := qe.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ResultsRepository) runQuery(runID string) (string, []any, error) {
	return r.builder.Select("started_at", "duration_ms", "total", "passed", "failed", "skipped", "flaky").
		From(dbpg.RunsTable).
		Where(squirrel.Eq{"id": runID}).
		ToSql()
}

func (r *ResultsRepository) failedQuery(runID string) (string, []any, error) {
	return r.builder.Select("title", "file", "error").
		From(dbpg.ResultsTable).
		Where(squirrel.Eq{"run_id": runID}).
		Where(squirrel.Eq{"status": []string{string(results.StatusFailed), string(results.StatusTimedOut)}}).
		OrderBy("id").
		ToSql()
}

// RunSummary rebuilds the Summary of a stored run.
func (r *ResultsRepository) RunSummary(ctx context.Context, qe QueryExecuter, runID string) (results.Summary, error) {
	const op = "pgxdriver.RunSummary"

	sql, args, err := r.runQuery(runID)
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	s := results.Summary{RunID: runID}
	var durationMs int64
	err = qe.QueryRow(ctx, sql, args...).
		Scan(&s.StartedAt, &durationMs, &s.Total, &s.Passed, &s.Failed, &s.Skipped, &s.Flaky)
	if errors.Is(err, pgx.ErrNoRows) {
		return results.Summary{}, fmt.Errorf("%s: %s: %w", op, runID, ErrRunNotFound)
	}
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: scan run: %w", op, err)
	}
	s.Duration = time.Duration(durationMs) * time.Millisecond

	sql, args, err = r.failedQuery(runID)
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := qe.Query(ctx, sql, args...)
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: query failed tests: %w", op, err)
	}
	s.FailedTests, err = pgx.CollectRows(rows, pgx.RowToStructByPos[results.FailedTest])
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: collect failed tests: %w", op, err)
	}
	return s, nil
}
