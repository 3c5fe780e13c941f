package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.AnswerSetRepository = (*answerSetRepo)(nil)

type answerSetRepo struct {
	store *Store
}

func NewAnswerSetRepo(store *Store) *answerSetRepo {
	return &answerSetRepo{store: store}
}

const answerSetColumns = `
id, job_id, profile_id, answers, field_scores, confidence, unanswered,
model_used, prompt_tokens, output_tokens, used_for_application, applied_at, created_at`

func (r *answerSetRepo) Append(ctx context.Context, tx repository.Tx, set *model.AnswerSet) error {
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	answers, err := jsonText(set.Answers, set.Answers == nil)
	if err != nil {
		return err
	}
	if answers == nil {
		answers = "{}"
	}
	fieldScores, err := jsonText(set.FieldScores, len(set.FieldScores) == 0)
	if err != nil {
		return err
	}
	unanswered, err := jsonText(set.Unanswered, len(set.Unanswered) == 0)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO answer_sets (` + answerSetColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	_, err = ex.ExecContext(ctx, q,
		set.ID, set.JobID, set.ProfileID, answers, fieldScores, set.Confidence, unanswered,
		set.ModelUsed, set.PromptTokens, set.OutputTokens, set.UsedForApply,
		nullTime(set.AppliedAt), set.CreatedAt)
	return err
}

func (r *answerSetRepo) FindLatest(ctx context.Context, tx repository.Tx, jobID string) (*model.AnswerSet, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ` + answerSetColumns + ` FROM answer_sets
WHERE job_id = ? ORDER BY created_at DESC, id DESC LIMIT 1;`

	return scanAnswerSet(ex.QueryRowContext(ctx, q, jobID))
}

func (r *answerSetRepo) FindHistory(ctx context.Context, tx repository.Tx, jobID string) ([]*model.AnswerSet, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ` + answerSetColumns + ` FROM answer_sets
WHERE job_id = ? ORDER BY created_at DESC, id DESC;`

	rows, err := ex.QueryContext(ctx, q, jobID)
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
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE answer_sets SET used_for_application = 1, applied_at = ?
WHERE id = (SELECT id FROM answer_sets WHERE job_id = ?
            ORDER BY created_at DESC, id DESC LIMIT 1);`

	res, err := ex.ExecContext(ctx, q, time.Now(), jobID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanAnswerSet(row rowScanner) (*model.AnswerSet, error) {
	var set model.AnswerSet
	var answers, fieldScores, unanswered sql.NullString
	var appliedAt sql.NullTime

	err := row.Scan(
		&set.ID, &set.JobID, &set.ProfileID, &answers, &fieldScores, &set.Confidence, &unanswered,
		&set.ModelUsed, &set.PromptTokens, &set.OutputTokens, &set.UsedForApply, &appliedAt, &set.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := fromJSONText(answers, &set.Answers); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := fromJSONText(fieldScores, &set.FieldScores); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := fromJSONText(unanswered, &set.Unanswered); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	set.AppliedAt = timePtr(appliedAt)
	return &set, nil
}
