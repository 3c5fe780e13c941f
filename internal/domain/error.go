package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrConstraint        = errors.New("constraint violation")
	ErrNoActiveProfile   = errors.New("no active candidate profile")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrEnrichment        = errors.New("enrichment failed")
	ErrAnswerGeneration  = errors.New("answer generation failed")
	ErrBatchLocked       = errors.New("another sweep holds the batch lock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReadDatabaseRow   = errors.New("failed to read database row")
	ErrInvalidExecutor   = errors.New("invalid executor context")
)
