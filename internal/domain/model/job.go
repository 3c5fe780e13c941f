package model

import "time"

// JobStatus tracks a job's progress through the pipeline.
// Transitions are forward-only; the single backward edge is a forced
// re-enrichment (see CanTransition).
type JobStatus string

const (
	JobStatusDiscovered       JobStatus = "discovered"
	JobStatusEnriched         JobStatus = "enriched"
	JobStatusAnswersGenerated JobStatus = "answers_generated"
	JobStatusApplied          JobStatus = "applied"
	JobStatusSubmitted        JobStatus = "submitted"
	JobStatusApplyFailed      JobStatus = "apply_failed"
)

var statusRank = map[JobStatus]int{
	JobStatusDiscovered:       0,
	JobStatusEnriched:         1,
	JobStatusAnswersGenerated: 2,
	JobStatusApplied:          3,
	JobStatusSubmitted:        3,
	JobStatusApplyFailed:      3,
}

// Rank returns the position of the status in the lifecycle. Terminal
// application outcomes share a rank; they are alternatives, not a sequence.
func (s JobStatus) Rank() int { return statusRank[s] }

// AtLeast reports whether s has reached the stage of other.
func (s JobStatus) AtLeast(other JobStatus) bool { return s.Rank() >= other.Rank() }

// CanTransition reports whether moving from s to next is legal.
// force permits the one backward edge: re-entering Enriched from any later
// state when reprocessing is requested.
func (s JobStatus) CanTransition(next JobStatus, force bool) bool {
	if force && next == JobStatusEnriched {
		return true
	}
	if next.Rank() == s.Rank()+1 {
		return true
	}
	// Terminal application outcomes may replace one another, e.g. a
	// confirmed submission upgrading an optimistic Applied.
	return s.Rank() == 3 && next.Rank() == 3 && s != next
}

// JobRecord is one row per external posting, keyed by the platform job id.
type JobRecord struct {
	JobID   string
	Title   string
	Company string
	JobURL  string

	LocationRaw  string
	LocationCity string
	LocationType string // Remote, Hybrid, On-site
	LocationSt   string

	QuickApply  bool
	Description string

	// Form observation captured at discovery time; consumed by answer
	// generation. Empty when the posting exposes no questions.
	Questions []FieldSpec

	// Enrichment fields, populated by the AI capability.
	ExperienceLevel string
	RequiredSkills  []string
	EmploymentType  string
	SalaryRange     string
	AIConfidence    *float64
	NeedsReview     bool

	// Fit fields. Nil means "not yet assessed".
	GoodFit      *bool
	FitScore     *float64
	FitReasoning string
	Priority     *int

	// Lifecycle
	RunID      string
	FirstRunID string
	Status     JobStatus
	ScrapedAt  time.Time
	EnrichedAt *time.Time
	Applied    bool
	AppliedAt  *time.Time
}

// NewJobRecord returns a freshly discovered job stamped with its run.
func NewJobRecord(jobID, runID string) *JobRecord {
	return &JobRecord{
		JobID:      jobID,
		RunID:      runID,
		FirstRunID: runID,
		Status:     JobStatusDiscovered,
		ScrapedAt:  time.Now(),
	}
}

// PriorityFromFitScore maps a fit score onto the 0-100 apply queue priority
// (lower is better). Scores are clamped into [0,1] first.
func PriorityFromFitScore(score float64) int {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	p := int((1-score)*100 + 0.5)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}
