package repository

import (
	"context"

	"jobpilot/internal/domain/model"
)

type ProfileRepository interface {
	Save(ctx context.Context, tx Tx, p *model.CandidateProfile) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CandidateProfile, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.CandidateProfile, error)

	// FindActive returns the single active profile, or
	// domain.ErrNoActiveProfile when none is active.
	FindActive(ctx context.Context, tx Tx) (*model.CandidateProfile, error)

	// Activate deactivates every other profile and activates id in one
	// atomic unit. Returns domain.ErrConstraint when id does not exist.
	// Under concurrent calls exactly one wins; the store must never end up
	// with zero or multiple active profiles.
	Activate(ctx context.Context, id string) error

	// RecordUsage bumps the application counter after a submission.
	RecordUsage(ctx context.Context, tx Tx, id string) error
}
