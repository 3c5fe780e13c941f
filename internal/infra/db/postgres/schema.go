package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Migrate creates the jobpilot schema if it does not exist yet. Statements
// are idempotent so a restart against an initialized database is a no-op.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
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
	quick_apply         BOOLEAN NOT NULL DEFAULT FALSE,
	description         TEXT NOT NULL DEFAULT '',
	questions           JSONB,
	experience_level    TEXT NOT NULL DEFAULT '',
	required_skills     TEXT[],
	employment_type     TEXT NOT NULL DEFAULT '',
	salary_range        TEXT NOT NULL DEFAULT '',
	ai_confidence_score DOUBLE PRECISION,
	needs_review        BOOLEAN NOT NULL DEFAULT FALSE,
	good_fit            BOOLEAN,
	fit_score           DOUBLE PRECISION,
	fit_reasoning       TEXT NOT NULL DEFAULT '',
	priority            INTEGER,
	run_id              TEXT NOT NULL,
	first_run_id        TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'discovered',
	scraped_at          TIMESTAMPTZ NOT NULL,
	enriched_at         TIMESTAMPTZ,
	applied             BOOLEAN NOT NULL DEFAULT FALSE,
	applied_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs (run_id);

CREATE TABLE IF NOT EXISTS answer_sets (
	id                   TEXT PRIMARY KEY,
	job_id               TEXT NOT NULL REFERENCES jobs (job_id),
	profile_id           TEXT NOT NULL DEFAULT '',
	answers              JSONB NOT NULL,
	field_scores         JSONB,
	confidence           DOUBLE PRECISION NOT NULL DEFAULT 0,
	unanswered           TEXT[],
	model_used           TEXT NOT NULL DEFAULT '',
	prompt_tokens        INTEGER NOT NULL DEFAULT 0,
	output_tokens        INTEGER NOT NULL DEFAULT 0,
	used_for_application BOOLEAN NOT NULL DEFAULT FALSE,
	applied_at           TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL
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
	skills             TEXT[],
	work_authorization TEXT NOT NULL DEFAULT '',
	salary_expectation TEXT NOT NULL DEFAULT '',
	start_availability TEXT NOT NULL DEFAULT '',
	source_file        TEXT NOT NULL DEFAULT '',
	source_type        TEXT NOT NULL DEFAULT '',
	version            INTEGER NOT NULL DEFAULT 1,
	is_active          BOOLEAN NOT NULL DEFAULT FALSE,
	applications       INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_profile ON candidate_profiles (is_active) WHERE is_active;
`
	_, err := pool.Exec(ctx, ddl)
	return err
}
