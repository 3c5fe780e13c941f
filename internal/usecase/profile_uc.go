package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

// ProfileUseCase manages candidate profile versions and the single-active
// invariant. Activation atomicity is the storage backend's job; this layer
// only sequences the calls.
type ProfileUseCase struct {
	repo repository.ProfileRepository
	log  *zerolog.Logger
}

func NewProfileUseCase(repo repository.ProfileRepository, log *zerolog.Logger) *ProfileUseCase {
	return &ProfileUseCase{repo: repo, log: log}
}

// Import saves a new profile version. When activate is set the new profile
// becomes the active one, atomically deactivating all others.
func (uc *ProfileUseCase) Import(ctx context.Context, p *model.CandidateProfile, activate bool) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		if p.Title != "" {
			p.Name = p.Title
		} else {
			p.Name = fmt.Sprintf("Profile %s", time.Now().Format("2006-01-02 15:04"))
		}
	}
	if p.Version == 0 {
		p.Version = 1
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	if err := uc.repo.Save(ctx, nil, p); err != nil {
		return "", err
	}
	if activate {
		if err := uc.repo.Activate(ctx, p.ID); err != nil {
			return "", err
		}
	}
	uc.log.Info().Str("profile_id", p.ID).Bool("active", activate).Msg("profile imported")
	return p.ID, nil
}

// Activate makes id the single active profile.
func (uc *ProfileUseCase) Activate(ctx context.Context, id string) error {
	return uc.repo.Activate(ctx, id)
}

// GetActive returns the active profile or domain.ErrNoActiveProfile.
func (uc *ProfileUseCase) GetActive(ctx context.Context) (*model.CandidateProfile, error) {
	return uc.repo.FindActive(ctx, nil)
}

// List returns every stored profile version.
func (uc *ProfileUseCase) List(ctx context.Context) ([]*model.CandidateProfile, error) {
	return uc.repo.ListAll(ctx, nil)
}
