package repository

import (
	"context"

	"jobpilot/internal/domain/model"
)

type AnswerSetRepository interface {
	// Append stores a new generation. Sets are immutable once written;
	// regeneration appends, never overwrites.
	Append(ctx context.Context, tx Tx, set *model.AnswerSet) error

	// FindLatest returns the most recently created set for the job, or
	// domain.ErrNotFound when none exists.
	FindLatest(ctx context.Context, tx Tx, jobID string) (*model.AnswerSet, error)

	// FindHistory returns all sets for the job, newest first.
	FindHistory(ctx context.Context, tx Tx, jobID string) ([]*model.AnswerSet, error)

	// MarkUsed flags the latest set as consumed by an application and
	// stamps the application time.
	MarkUsed(ctx context.Context, tx Tx, jobID string) error
}
