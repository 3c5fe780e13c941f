package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.AnswerSetRepository = (*answerSetRepo)(nil)

type answerSetRepo struct {
	pool *pgxpool.Pool
}

func NewAnswerSetRepo(pool *pgxpool.Pool) *answerSetRepo {
	return &answerSetRepo{pool: pool}
}

const answerSetColumns = `
id, job_id, profile_id, answers, field_scores, confidence, unanswered,
model_used, prompt_tokens, output_tokens, used_for_application, applied_at, created_at`

// Append is a plain INSERT. Sets are immutable once written; there is no
// conflict clause on purpose.
func (r *answerSetRepo) Append(ctx context.Context, tx repository.Tx, set *model.AnswerSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	answers, err := json.Marshal(set.Answers)
	if err != nil {
		return err
	}
	var fieldScores []byte
	if len(set.FieldScores) > 0 {
		if fieldScores, err = json.Marshal(set.FieldScores); err != nil {
			return err
		}
	}

	const q = `
INSERT INTO answer_sets (` + answerSetColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	_, err = execSQL(ctx, r.pool, tx, q,
		set.ID, set.JobID, set.ProfileID, answers, fieldScores, set.Confidence, set.Unanswered,
		set.ModelUsed, set.PromptTokens, set.OutputTokens, set.UsedForApply, set.AppliedAt, set.CreatedAt)
	return err
}

func (r *answerSetRepo) FindLatest(ctx context.Context, tx repository.Tx, jobID string) (*model.AnswerSet, error) {
	const q = `
SELECT ` + answerSetColumns + ` FROM answer_sets
WHERE job_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1;`

	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	return scanAnswerSet(row)
}

func (r *answerSetRepo) FindHistory(ctx context.Context, tx repository.Tx, jobID string) ([]*model.AnswerSet, error) {
	const q = `
SELECT ` + answerSetColumns + ` FROM answer_sets
WHERE job_id = $1 ORDER BY created_at DESC, id DESC;`

	rows, err := queryRows(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AnswerSet
	for rows.Next() {
		set, err := scanAnswerSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (r *answerSetRepo) MarkUsed(ctx context.Context, tx repository.Tx, jobID string) error {
	const q = `
UPDATE answer_sets SET used_for_application = TRUE, applied_at = $2
WHERE id = (SELECT id FROM answer_sets WHERE job_id = $1
            ORDER BY created_at DESC, id DESC LIMIT 1);`

	tag, err := execSQL(ctx, r.pool, tx, q, jobID, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAnswerSet(row pgx.Row) (*model.AnswerSet, error) {
	var set model.AnswerSet
	var answers, fieldScores []byte
	err := row.Scan(
		&set.ID, &set.JobID, &set.ProfileID, &answers, &fieldScores, &set.Confidence, &set.Unanswered,
		&set.ModelUsed, &set.PromptTokens, &set.OutputTokens, &set.UsedForApply, &set.AppliedAt, &set.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &set.Answers); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	if len(fieldScores) > 0 {
		if err := json.Unmarshal(fieldScores, &set.FieldScores); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &set, nil
}
