package dbpg

// Table names shared with the pgx results repository.
const (
	RunsTable    = "e2e_runs"
	ResultsTable = "e2e_results"
)

// Schema creates the results tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS e2e_runs (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	environment TEXT NOT NULL DEFAULT '',
	total       INT NOT NULL DEFAULT 0,
	passed      INT NOT NULL DEFAULT 0,
	failed      INT NOT NULL DEFAULT 0,
	skipped     INT NOT NULL DEFAULT 0,
	flaky       INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS e2e_results (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL REFERENCES e2e_runs (id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	file        TEXT NOT NULL,
	status      TEXT NOT NULL,
	retry       INT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS e2e_results_run_id_idx ON e2e_results (run_id);
`
