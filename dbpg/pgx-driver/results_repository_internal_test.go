package pgxdriver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/results"
)

func TestResultsRepository_SaveRunQuery(t *testing.T) {
	r := NewResultsRepository("staging")
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	sql, args, err := r.saveRunQuery(results.Summary{
		RunID: "run-1", StartedAt: started, Duration: 90 * time.Second,
		Total: 5, Passed: 3, Failed: 1, Skipped: 1, Flaky: 1,
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO e2e_runs (id,started_at,duration_ms,environment,total,passed,failed,skipped,flaky) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)")
	assert.Contains(t, sql, "ON CONFLICT (id) DO UPDATE SET")
	assert.Equal(t, []any{"run-1", started, int64(90000), "staging", 5, 3, 1, 1, 1}, args)
}

func TestResultsRepository_InsertResultQuery(t *testing.T) {
	sql, err := NewResultsRepository("").insertResultQuery()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO e2e_results (run_id,title,file,status,retry,duration_ms,error) VALUES ($1,$2,$3,$4,$5,$6,$7)",
		sql)
}

func TestResultRow(t *testing.T) {
	row := resultRow("run-1", results.TestResult{
		Title: "login", File: "login.spec.ts", Status: results.StatusFailed, Retry: 1, Duration: 1500 * time.Millisecond, Error: "boom",
	})
	assert.Equal(t, []any{"run-1", "login", "login.spec.ts", "failed", 1, int64(1500), "boom"}, row)
	assert.Len(t, row, len(resultColumns))
}

// copyRecorder drains the COPY source like pgx does and keeps the rows.
type copyRecorder struct {
	QueryExecuter
	table   pgx.Identifier
	columns []string
	rows    [][]any
}

func (c *copyRecorder) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c.table, c.columns = table, columns
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.rows = append(c.rows, v)
	}
	return int64(len(c.rows)), src.Err()
}

func TestSaveResults_CopyAboveThreshold(t *testing.T) {
	rs := make([]results.TestResult, CopyThreshold)
	for i := range rs {
		rs[i] = results.TestResult{Title: fmt.Sprintf("test %d", i), File: "cart.spec.ts", Status: results.StatusPassed}
	}

	qe := &copyRecorder{}
	require.NoError(t, NewResultsRepository("").SaveResults(context.Background(), qe, "run-1", rs))

	assert.Equal(t, pgx.Identifier{"e2e_results"}, qe.table)
	assert.Equal(t, resultColumns, qe.columns)
	require.Len(t, qe.rows, CopyThreshold)
	assert.Equal(t, "test 0", qe.rows[0][1])
	assert.Equal(t, "test 49", qe.rows[CopyThreshold-1][1])
}

func TestResultsRepository_SummaryQueries(t *testing.T) {
	r := NewResultsRepository("")

	sql, args, err := r.runQuery("run-1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT started_at, duration_ms, total, passed, failed, skipped, flaky FROM e2e_runs WHERE id = $1", sql)
	assert.Equal(t, []any{"run-1"}, args)

	sql, args, err = r.deleteResultsQuery("run-1")
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM e2e_results WHERE run_id = $1", sql)
	assert.Equal(t, []any{"run-1"}, args)

	sql, args, err = r.failedQuery("run-1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT title, file, error FROM e2e_results WHERE run_id = $1 AND status IN ($2,$3) ORDER BY id", sql)
	assert.Equal(t, []any{"run-1", "failed", "timedOut"}, args)
}

func TestOptions_Validate(t *testing.T) {
	p := &Postgres{connAttempts: 1, baseRetryDelay: time.Second, maxRetryDelay: time.Second, maxPoolSize: 1}
	assert.NoError(t, p.validate())

	MaxPoolSize(0)(p)
	assert.ErrorIs(t, p.validate(), ErrInvalidMaxPoolSize)

	MaxPoolSize(4)(p)
	BaseRetryDelay(2 * time.Second)(p)
	assert.ErrorIs(t, p.validate(), ErrBaseExceedsMaxDelay)

	BaseRetryDelay(time.Millisecond)(p)
	MaxConnAttempts(0)(p)
	assert.ErrorIs(t, p.validate(), ErrInvalidConnAttempts)
}

func TestConnStrategy(t *testing.T) {
	p := &Postgres{
		connAttempts:   5,
		baseRetryDelay: 100 * time.Millisecond,
		maxRetryDelay:  time.Second,
		logger:         logger.NewSlogAdapter("e2ekit", "test", logger.WithoutStdout()),
	}
	s := p.connStrategy()
	assert.Equal(t, 4, s.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, s.Delay)
	assert.Equal(t, 2.0, s.Backoff)
	assert.Equal(t, time.Second, s.MaxDelay)
}
