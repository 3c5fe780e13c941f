package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/ports/repository"
)

// Store is the embedded single-file backend. It satisfies the same
// repository contracts as the Postgres backend, so the core never knows
// which one it is talking to.
//
// The pool is capped at one connection: SQLite allows a single writer, and
// a shared connection also makes ":memory:" databases behave (every new
// connection would otherwise get its own empty database).
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the schema if missing. Mirrors the Postgres DDL with
// SQLite types: arrays and maps become JSON text, booleans integers.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id              TEXT PRIMARY KEY,
	title               TEXT NOT NULL DEFAULT '',
	company             TEXT NOT NULL DEFAULT '',
	job_url             TEXT NOT NULL DEFAULT '',
	location_raw        TEXT NOT NULL DEFAULT '',
	location_city       TEXT NOT NULL DEFAULT '',
	location_type       TEXT NOT NULL DEFAULT '',
	location_state      TEXT NOT NULL DEFAULT '',
	quick_apply         INTEGER NOT NULL DEFAULT 0,
	description         TEXT NOT NULL DEFAULT '',
	questions           TEXT,
	experience_level    TEXT NOT NULL DEFAULT '',
	required_skills     TEXT,
	employment_type     TEXT NOT NULL DEFAULT '',
	salary_range        TEXT NOT NULL DEFAULT '',
	ai_confidence_score REAL,
	needs_review        INTEGER NOT NULL DEFAULT 0,
	good_fit            INTEGER,
	fit_score           REAL,
	fit_reasoning       TEXT NOT NULL DEFAULT '',
	priority            INTEGER,
	run_id              TEXT NOT NULL,
	first_run_id        TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'discovered',
	scraped_at          TIMESTAMP NOT NULL,
	enriched_at         TIMESTAMP,
	applied             INTEGER NOT NULL DEFAULT 0,
	applied_at          TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs (run_id);

CREATE TABLE IF NOT EXISTS answer_sets (
	id                   TEXT PRIMARY KEY,
	job_id               TEXT NOT NULL REFERENCES jobs (job_id),
	profile_id           TEXT NOT NULL DEFAULT '',
	answers              TEXT NOT NULL,
	field_scores         TEXT,
	confidence           REAL NOT NULL DEFAULT 0,
	unanswered           TEXT,
	model_used           TEXT NOT NULL DEFAULT '',
	prompt_tokens        INTEGER NOT NULL DEFAULT 0,
	output_tokens        INTEGER NOT NULL DEFAULT 0,
	used_for_application INTEGER NOT NULL DEFAULT 0,
	applied_at           TIMESTAMP,
	created_at           TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_answer_sets_job ON answer_sets (job_id, created_at DESC);

CREATE TABLE IF NOT EXISTS candidate_profiles (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	full_name          TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	summary            TEXT NOT NULL DEFAULT '',
	skills             TEXT,
	work_authorization TEXT NOT NULL DEFAULT '',
	salary_expectation TEXT NOT NULL DEFAULT '',
	start_availability TEXT NOT NULL DEFAULT '',
	source_file        TEXT NOT NULL DEFAULT '',
	source_type        TEXT NOT NULL DEFAULT '',
	version            INTEGER NOT NULL DEFAULT 1,
	is_active          INTEGER NOT NULL DEFAULT 0,
	applications       INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

var _ repository.TransactionManager = (*Store)(nil)

// WithTx implements repository.TransactionManager. The handle passed to fn
// is a *sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// executor is the subset of database/sql shared by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) executor(tx repository.Tx) (executor, error) {
	switch v := tx.(type) {
	case *sql.Tx:
		return v, nil
	case nil:
		return s.db, nil
	default:
		return nil, domain.ErrInvalidExecutor
	}
}

// jsonText marshals v for a TEXT column, mapping empty values to NULL so
// COALESCE-based merge clauses can tell "absent" from "present but empty".
func jsonText(v interface{}, empty bool) (interface{}, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func fromJSONText(s sql.NullString, dst interface{}) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}
