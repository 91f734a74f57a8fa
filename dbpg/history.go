package dbpg

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

const _flakyExpr = "COUNT(*) FILTER (WHERE r.status = 'passed' AND r.retry > 0)"

// FlakyTest is a test that needed a retry to pass at least once.
type FlakyTest struct {
	Title      string
	File       string
	FlakyCount int
	Runs       int
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func flakyTestsQuery(since time.Time, limit uint64) sq.SelectBuilder {
	return psql.
		Select("r.title", "r.file", _flakyExpr+" AS flaky", "COUNT(*) AS runs").
		From(ResultsTable + " r").
		Join(RunsTable + " u ON u.id = r.run_id").
		Where(sq.GtOrEq{"u.started_at": since}).
		GroupBy("r.title", "r.file").
		Having(_flakyExpr + " > 0").
		OrderBy("flaky DESC", "r.title").
		Limit(limit)
}

func recentRunsQuery(limit uint64) sq.SelectBuilder {
	return psql.
		Select("id", "started_at", "duration_ms", "total", "passed", "failed", "skipped", "flaky").
		From(RunsTable).
		OrderBy("started_at DESC").
		Limit(limit)
}

// FlakyTests lists tests that passed on retry since the given time, most flaky first.
// The query runs on a replica.
func (db *DB) FlakyTests(ctx context.Context, strategy retry.Strategy, since time.Time, limit uint64) ([]FlakyTest, error) {
	const op = "dbpg.FlakyTests"

	query, args, err := flakyTestsQuery(since, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := db.QueryWithRetry(ctx, strategy, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []FlakyTest
	for rows.Next() {
		var ft FlakyTest
		if err := rows.Scan(&ft.Title, &ft.File, &ft.FlakyCount, &ft.Runs); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// RecentRuns returns the newest run summaries without their failed test lists.
func (db *DB) RecentRuns(ctx context.Context, strategy retry.Strategy, limit uint64) ([]results.Summary, error) {
	const op = "dbpg.RecentRuns"

	query, args, err := recentRunsQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := db.QueryWithRetry(ctx, strategy, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []results.Summary
	for rows.Next() {
		var (
			s          results.Summary
			durationMs int64
		)
		if err := rows.Scan(&s.RunID, &s.StartedAt, &durationMs, &s.Total, &s.Passed, &s.Failed, &s.Skipped, &s.Flaky); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.FailedTests = []results.FailedTest{}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
