package pgxdriver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/wb-go/e2ekit/dbpg"
	"github.com/wb-go/e2ekit/results"
)

// resultSource streams test results of one run into COPY FROM without building all rows up front.
type resultSource struct {
	runID string
	rs    []results.TestResult
	i     int
}

func (s *resultSource) Next() bool {
	s.i++
	return s.i <= len(s.rs)
}

func (s *resultSource) Values() ([]any, error) {
	return resultRow(s.runID, s.rs[s.i-1]), nil
}

func (s *resultSource) Err() error { return nil }

// CopyResults loads rs into e2e_results with COPY FROM and returns the number of copied rows.
func CopyResults(ctx context.Context, qe QueryExecuter, runID string, rs []results.TestResult) (int64, error) {
	const op = "pgxdriver.CopyResults"

	count, err := qe.CopyFrom(ctx, pgx.Identifier{dbpg.ResultsTable}, resultColumns, &resultSource{runID: runID, rs: rs})
	if err != nil {
		return 0, fmt.Errorf("%s: copy from: %w", op, err)
	}
	return count, nil
}
