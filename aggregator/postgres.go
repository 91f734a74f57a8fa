package aggregator

import (
	"context"

	pgxdriver "github.com/wb-go/e2ekit/dbpg/pgx-driver"
	"github.com/wb-go/e2ekit/dbpg/pgx-driver/transaction"
	"github.com/wb-go/e2ekit/results"
)

// PostgresPersister writes a run and its results in one retried transaction.
type PostgresPersister struct {
	tm   transaction.Manager
	repo *pgxdriver.ResultsRepository
}

func NewPostgresPersister(tm transaction.Manager, repo *pgxdriver.ResultsRepository) *PostgresPersister {
	return &PostgresPersister{tm: tm, repo: repo}
}

// PersistRun upserts the run row and replaces its results, so a redelivered summary
// leaves the same rows behind.
func (p *PostgresPersister) PersistRun(ctx context.Context, s results.Summary, rs []results.TestResult) error {
	return p.tm.ExecuteInTransaction(ctx, "persist_run", func(tx pgxdriver.QueryExecuter) error {
		if err := p.repo.SaveRun(ctx, tx, s); err != nil {
			return err
		}
		if err := p.repo.DeleteResults(ctx, tx, s.RunID); err != nil {
			return err
		}
		return p.repo.SaveResults(ctx, tx, s.RunID, rs)
	})
}
