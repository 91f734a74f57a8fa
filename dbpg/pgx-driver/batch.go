package pgxdriver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/wb-go/e2ekit/results"
)

// resultRow lays tr out in resultColumns order.
func resultRow(runID string, tr results.TestResult) []any {
	return []any{runID, tr.Title, tr.File, string(tr.Status), tr.Retry, tr.Duration.Milliseconds(), tr.Error}
}

// BatchResults queues one insert per result and sends them in one round trip.
// It stops at the first failing statement and names the test it belongs to.
func BatchResults(ctx context.Context, qe QueryExecuter, sql, runID string, rs []results.TestResult) error {
	const op = "pgxdriver.BatchResults"

	batch := &pgx.Batch{}
	for _, tr := range rs {
		batch.Queue(sql, resultRow(runID, tr)...)
	}

	br := qe.SendBatch(ctx, batch)
	defer func() {
		_ = br.Close()
	}()

	for _, tr := range rs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: %q (%s, retry %d): %w", op, tr.Title, tr.File, tr.Retry, err)
		}
	}
	return nil
}
