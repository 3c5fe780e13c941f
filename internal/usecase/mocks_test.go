package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
)

// --- in-memory repositories used by unit tests ---

type memJobRepo struct {
	mu    sync.RWMutex
	store map[string]*model.JobRecord
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.JobRecord)}
}

func (m *memJobRepo) put(j *model.JobRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.store[j.JobID] = &cp
}

func (m *memJobRepo) UpsertJobs(ctx context.Context, tx repository.Tx, records []*model.JobRecord) (repository.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := repository.UpsertOutcome{Failed: map[string]error{}}
	for _, r := range records {
		if r.JobID == "" {
			out.Failed[""] = domain.ErrInvalidArgument
			continue
		}
		cp := *r
		if prev, ok := m.store[r.JobID]; ok {
			// Scrape fields are last-write-wins; prior enrichment, fit
			// and applied state survive unless the new record carries them.
			cp.FirstRunID = prev.FirstRunID
			cp.Status = prev.Status
			cp.EnrichedAt = prev.EnrichedAt
			if prev.Applied {
				cp.Applied = true
				cp.AppliedAt = prev.AppliedAt
			}
			if cp.GoodFit == nil {
				cp.GoodFit = prev.GoodFit
			}
			if cp.FitScore == nil {
				cp.FitScore = prev.FitScore
			}
			if cp.Priority == nil {
				cp.Priority = prev.Priority
			}
			if cp.AIConfidence == nil {
				cp.AIConfidence = prev.AIConfidence
			}
			if cp.ExperienceLevel == "" {
				cp.ExperienceLevel = prev.ExperienceLevel
			}
			if len(cp.RequiredSkills) == 0 {
				cp.RequiredSkills = prev.RequiredSkills
			}
		}
		m.store[cp.JobID] = &cp
		out.Written++
	}
	return out, nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindByRunID(ctx context.Context, tx repository.Tx, runID string) ([]*model.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.JobRecord
	for _, j := range m.store {
		if j.RunID == runID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out, nil
}

func (m *memJobRepo) FindByIDs(ctx context.Context, tx repository.Tx, jobIDs []string) ([]*model.JobRecord, error) {
	var out []*model.JobRecord
	for _, id := range jobIDs {
		if j, err := m.FindByID(ctx, tx, id); err == nil {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobRepo) FindPendingEnrichment(ctx context.Context, tx repository.Tx, limit int) ([]*model.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.JobRecord
	for _, j := range m.store {
		if j.Status == model.JobStatusDiscovered {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) UpdateEnrichment(ctx context.Context, tx repository.Tx, jobID string, upd repository.EnrichmentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if upd.Title != "" {
		j.Title = upd.Title
	}
	if upd.Company != "" {
		j.Company = upd.Company
	}
	if upd.LocationCity != "" {
		j.LocationCity = upd.LocationCity
	}
	if upd.LocationType != "" {
		j.LocationType = upd.LocationType
	}
	if upd.ExperienceLevel != "" {
		j.ExperienceLevel = upd.ExperienceLevel
	}
	if len(upd.RequiredSkills) > 0 {
		j.RequiredSkills = upd.RequiredSkills
	}
	if upd.EmploymentType != "" {
		j.EmploymentType = upd.EmploymentType
	}
	if upd.SalaryRange != "" {
		j.SalaryRange = upd.SalaryRange
	}
	j.AIConfidence = upd.AIConfidence
	j.NeedsReview = upd.NeedsReview
	j.GoodFit = upd.GoodFit
	j.FitScore = upd.FitScore
	j.FitReasoning = upd.FitReasoning
	j.Priority = upd.Priority
	now := time.Now()
	j.Status = model.JobStatusEnriched
	j.EnrichedAt = &now
	return nil
}

func (m *memJobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, applied bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if applied {
		now := time.Now()
		j.Applied = true
		j.AppliedAt = &now
	}
	return nil
}

func (m *memJobRepo) UpdateFitStatus(ctx context.Context, tx repository.Tx, jobIDs []string, goodFit bool, fitScore float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range jobIDs {
		j, ok := m.store[id]
		if !ok {
			continue
		}
		gf, fs := goodFit, fitScore
		j.GoodFit = &gf
		j.FitScore = &fs
		n++
	}
	return n, nil
}

func (m *memJobRepo) FindReadyToApply(ctx context.Context, tx repository.Tx, minScore float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, j := range m.store {
		if j.Status != model.JobStatusAnswersGenerated || j.Applied {
			continue
		}
		if j.GoodFit == nil || !*j.GoodFit {
			continue
		}
		if j.FitScore != nil && *j.FitScore < minScore {
			continue
		}
		out = append(out, j.JobID)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memJobRepo) FitSummaryByRun(ctx context.Context, tx repository.Tx, runID string) (repository.FitSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s repository.FitSummary
	for _, j := range m.store {
		if j.RunID != runID {
			continue
		}
		s.Total++
		switch {
		case j.GoodFit == nil:
			s.Unscored++
		case *j.GoodFit:
			s.GoodFit++
		default:
			s.BadFit++
		}
	}
	return s, nil
}

type memAnswerSetRepo struct {
	mu    sync.RWMutex
	store map[string][]*model.AnswerSet
}

func newMemAnswerSetRepo() *memAnswerSetRepo {
	return &memAnswerSetRepo{store: make(map[string][]*model.AnswerSet)}
}

func (m *memAnswerSetRepo) Append(ctx context.Context, tx repository.Tx, set *model.AnswerSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *set
	m.store[set.JobID] = append(m.store[set.JobID], &cp)
	return nil
}

func (m *memAnswerSetRepo) FindLatest(ctx context.Context, tx repository.Tx, jobID string) (*model.AnswerSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sets := m.store[jobID]
	if len(sets) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *sets[len(sets)-1]
	return &cp, nil
}

func (m *memAnswerSetRepo) FindHistory(ctx context.Context, tx repository.Tx, jobID string) ([]*model.AnswerSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sets := m.store[jobID]
	out := make([]*model.AnswerSet, 0, len(sets))
	for i := len(sets) - 1; i >= 0; i-- {
		cp := *sets[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAnswerSetRepo) MarkUsed(ctx context.Context, tx repository.Tx, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sets := m.store[jobID]
	if len(sets) == 0 {
		return domain.ErrNotFound
	}
	now := time.Now()
	sets[len(sets)-1].UsedForApply = true
	sets[len(sets)-1].AppliedAt = &now
	return nil
}

type memProfileRepo struct {
	mu    sync.Mutex
	store map[string]*model.CandidateProfile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{store: make(map[string]*model.CandidateProfile)}
}

func (m *memProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.CandidateProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memProfileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CandidateProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CandidateProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.CandidateProfile, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProfileRepo) FindActive(ctx context.Context, tx repository.Tx) (*model.CandidateProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNoActiveProfile
}

func (m *memProfileRepo) Activate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.store[id]
	if !ok {
		return domain.ErrConstraint
	}
	for _, p := range m.store {
		p.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (m *memProfileRepo) RecordUsage(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Applications++
	return nil
}

func enrichmentUpdateFor(goodFit *bool, fitScore, conf *float64, prio *int) repository.EnrichmentUpdate {
	return repository.EnrichmentUpdate{GoodFit: goodFit, FitScore: fitScore, AIConfidence: conf, Priority: prio}
}

// --- fake adapters ---

type fakeAI struct {
	mu            sync.Mutex
	enrichCalls   int
	generateCalls int
	enrichFn      func(job *model.JobRecord) (adapter.EnrichmentResult, error)
	generateFn    func(job *model.JobRecord) (adapter.GeneratedAnswers, error)
}

func (f *fakeAI) EnrichJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) (adapter.EnrichmentResult, adapter.Usage, error) {
	f.mu.Lock()
	f.enrichCalls++
	f.mu.Unlock()
	if f.enrichFn != nil {
		r, err := f.enrichFn(job)
		return r, adapter.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, err
	}
	return adapter.EnrichmentResult{GoodFit: true, FitScore: 0.9, Confidence: 0.95},
		adapter.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, nil
}

func (f *fakeAI) GenerateAnswers(ctx context.Context, fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) (adapter.GeneratedAnswers, adapter.Usage, error) {
	f.mu.Lock()
	f.generateCalls++
	f.mu.Unlock()
	if f.generateFn != nil {
		g, err := f.generateFn(job)
		return g, adapter.Usage{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280}, err
	}
	answers := make(map[string]string, len(fields))
	for _, fld := range fields {
		answers[fld.ID] = "answer"
	}
	return adapter.GeneratedAnswers{Answers: answers, Confidence: 0.9},
		adapter.Usage{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280}, nil
}

func (f *fakeAI) ModelName() string { return "fake-model" }

func (f *fakeAI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enrichCalls, f.generateCalls
}

type fakeFormDriver struct {
	fields     []model.FieldSpec
	observeErr error
	execErr    error
	submitted  bool
	lastPlan   *model.FillPlan
}

func (f *fakeFormDriver) ObserveFields(ctx context.Context, jobID, jobURL string) ([]model.FieldSpec, error) {
	if f.observeErr != nil {
		return nil, f.observeErr
	}
	return f.fields, nil
}

func (f *fakeFormDriver) Execute(ctx context.Context, plan *model.FillPlan, allowSubmit bool) (model.FillReport, error) {
	f.lastPlan = plan
	if f.execErr != nil {
		return model.FillReport{Error: f.execErr.Error()}, f.execErr
	}
	filled := 0
	for _, s := range plan.Steps {
		if s.Action == model.ActionFill {
			filled++
		}
	}
	return model.FillReport{
		FieldsFilled:   filled,
		StepsCompleted: 1,
		ReachedSubmit:  true,
		Submitted:      allowSubmit && f.submitted,
	}, nil
}

type nopReporter struct{}

func (nopReporter) JobTransition(ctx context.Context, jobID string, from, to model.JobStatus) {}
func (nopReporter) JobFailed(ctx context.Context, jobID, stage, reason string)               {}
func (nopReporter) BatchComplete(ctx context.Context, summary string)                        {}
