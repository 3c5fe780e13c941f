package model

import "time"

// CandidateProfile is a versioned snapshot of the applicant. Exactly one
// profile is active at a time; activation is atomic at the storage layer.
type CandidateProfile struct {
	ID           string
	Name         string
	FullName     string
	Email        string
	Phone        string
	Location     string
	Title        string
	Summary      string
	Skills       []string
	WorkAuth     string
	SalaryExp    string
	StartAvail   string
	SourceFile   string
	SourceType   string // resume_parser, manual, api
	Version      int
	IsActive     bool
	Applications int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
