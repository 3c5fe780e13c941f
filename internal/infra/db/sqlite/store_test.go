package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestJobRepo_UpsertPreservesEnrichmentOnRediscovery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	jobs := NewJobRepo(store)

	first := model.NewJobRecord("A", "run-1")
	first.Title = "Old Title"
	first.QuickApply = true
	if out, err := jobs.UpsertJobs(ctx, nil, []*model.JobRecord{first}); err != nil || out.Written != 1 {
		t.Fatalf("first upsert: %+v %v", out, err)
	}

	goodFit, score, conf, prio := true, 0.85, 0.9, 15
	err := jobs.UpdateEnrichment(ctx, nil, "A", enrichmentUpdate(&goodFit, &score, &conf, &prio))
	if err != nil {
		t.Fatalf("UpdateEnrichment: %v", err)
	}

	second := model.NewJobRecord("A", "run-2")
	second.Title = "New Title"
	second.QuickApply = true
	if _, err := jobs.UpsertJobs(ctx, nil, []*model.JobRecord{second}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	j, err := jobs.FindByID(ctx, nil, "A")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if j.Title != "New Title" {
		t.Fatalf("scrape fields must be last-write-wins, got %q", j.Title)
	}
	if j.RunID != "run-2" || j.FirstRunID != "run-1" {
		t.Fatalf("first_run_id must be write-once: run=%s first=%s", j.RunID, j.FirstRunID)
	}
	if j.GoodFit == nil || !*j.GoodFit || j.FitScore == nil || *j.FitScore != 0.85 {
		t.Fatalf("enrichment dropped on re-discovery: %+v", j)
	}
	if j.Status != model.JobStatusEnriched || j.EnrichedAt == nil {
		t.Fatalf("status must survive re-discovery: %+v", j)
	}
	if len(j.RequiredSkills) != 2 {
		t.Fatalf("skills lost: %v", j.RequiredSkills)
	}
}

// good_fit travels through an INTEGER column; tri-state nil/true/false must
// round-trip exactly.
func TestJobRepo_BooleanRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	jobs := NewJobRepo(store)

	f := false
	records := []*model.JobRecord{
		model.NewJobRecord("unscored", "run-1"),
		model.NewJobRecord("bad", "run-1"),
	}
	records[1].GoodFit = &f
	if _, err := jobs.UpsertJobs(ctx, nil, records); err != nil {
		t.Fatalf("UpsertJobs: %v", err)
	}

	j, _ := jobs.FindByID(ctx, nil, "unscored")
	if j.GoodFit != nil {
		t.Fatalf("unscored must read back as nil, got %v", *j.GoodFit)
	}
	j, _ = jobs.FindByID(ctx, nil, "bad")
	if j.GoodFit == nil || *j.GoodFit {
		t.Fatalf("explicit false must not collapse into nil")
	}

	summary, err := jobs.FitSummaryByRun(ctx, nil, "run-1")
	if err != nil {
		t.Fatalf("FitSummaryByRun: %v", err)
	}
	if summary.Total != 2 || summary.BadFit != 1 || summary.Unscored != 1 {
		t.Fatalf("summary wrong: %+v", summary)
	}
}

func TestJobRepo_ReadyToApplyOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	jobs := NewJobRepo(store)

	tr := true
	mk := func(id string, prio int, score float64) *model.JobRecord {
		j := model.NewJobRecord(id, "run-1")
		j.Status = model.JobStatusAnswersGenerated
		j.GoodFit = &tr
		j.FitScore = &score
		j.Priority = &prio
		return j
	}
	low := model.NewJobRecord("lowfit", "run-1")
	low.Status = model.JobStatusAnswersGenerated
	low.GoodFit = &tr
	badScore := 0.4
	low.FitScore = &badScore

	if _, err := jobs.UpsertJobs(ctx, nil, []*model.JobRecord{
		mk("B", 20, 0.8), mk("A", 5, 0.95), low,
	}); err != nil {
		t.Fatalf("UpsertJobs: %v", err)
	}

	ids, err := jobs.FindReadyToApply(ctx, nil, 0.6)
	if err != nil {
		t.Fatalf("FindReadyToApply: %v", err)
	}
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Fatalf("expected priority order [A B], got %v", ids)
	}
}

func TestAnswerSetRepo_HistoryAndMarkUsed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	jobs, answers := NewJobRepo(store), NewAnswerSetRepo(store)

	if _, err := jobs.UpsertJobs(ctx, nil, []*model.JobRecord{model.NewJobRecord("A", "run-1")}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"as-1", "as-2"} {
		err := answers.Append(ctx, nil, &model.AnswerSet{
			ID:        id,
			JobID:     "A",
			Answers:   map[string]string{"q": id},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	latest, err := answers.FindLatest(ctx, nil, "A")
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if latest.ID != "as-2" || latest.Answers["q"] != "as-2" {
		t.Fatalf("latest must be newest, got %+v", latest)
	}

	hist, err := answers.FindHistory(ctx, nil, "A")
	if err != nil {
		t.Fatalf("FindHistory: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != "as-2" || hist[1].ID != "as-1" {
		t.Fatalf("history must be newest first, got %d entries", len(hist))
	}

	if err := answers.MarkUsed(ctx, nil, "A"); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	latest, _ = answers.FindLatest(ctx, nil, "A")
	if !latest.UsedForApply || latest.AppliedAt == nil {
		t.Fatalf("latest set not marked used: %+v", latest)
	}
	hist, _ = answers.FindHistory(ctx, nil, "A")
	if hist[1].UsedForApply {
		t.Fatalf("older set must stay untouched")
	}

	if _, err := answers.FindLatest(ctx, nil, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileRepo_AtomicActivation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	profiles := NewProfileRepo(store)

	p1 := &model.CandidateProfile{ID: "p1", Name: "SRE", Version: 1}
	p2 := &model.CandidateProfile{ID: "p2", Name: "DevOps", Version: 1}
	for _, p := range []*model.CandidateProfile{p1, p2} {
		if err := profiles.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save %s: %v", p.ID, err)
		}
	}

	if _, err := profiles.FindActive(ctx, nil); !errors.Is(err, domain.ErrNoActiveProfile) {
		t.Fatalf("expected ErrNoActiveProfile, got %v", err)
	}

	if err := profiles.Activate(ctx, "p1"); err != nil {
		t.Fatalf("Activate p1: %v", err)
	}
	if err := profiles.Activate(ctx, "p2"); err != nil {
		t.Fatalf("Activate p2: %v", err)
	}

	active, err := profiles.FindActive(ctx, nil)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if active.ID != "p2" {
		t.Fatalf("expected p2 active, got %s", active.ID)
	}
	all, _ := profiles.ListAll(ctx, nil)
	count := 0
	for _, p := range all {
		if p.IsActive {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one active profile, got %d", count)
	}

	// a failed activation must not deactivate the current profile
	if err := profiles.Activate(ctx, "missing"); !errors.Is(err, domain.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	active, err = profiles.FindActive(ctx, nil)
	if err != nil || active.ID != "p2" {
		t.Fatalf("failed activation must roll back: %v %+v", err, active)
	}
}

func TestProfileRepo_RecordUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	profiles := NewProfileRepo(store)

	if err := profiles.Save(ctx, nil, &model.CandidateProfile{ID: "p1", Version: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := profiles.RecordUsage(ctx, nil, "p1"); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	p, _ := profiles.FindByID(ctx, nil, "p1")
	if p.Applications != 1 {
		t.Fatalf("counter not bumped: %d", p.Applications)
	}
	if err := profiles.RecordUsage(ctx, nil, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func enrichmentUpdate(goodFit *bool, score, conf *float64, prio *int) repository.EnrichmentUpdate {
	return repository.EnrichmentUpdate{
		ExperienceLevel: "Senior",
		RequiredSkills:  []string{"Go", "Kubernetes"},
		EmploymentType:  "Full-time",
		AIConfidence:    conf,
		GoodFit:         goodFit,
		FitScore:        score,
		FitReasoning:    "strong overlap",
		Priority:        prio,
	}
}
