package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
)

func seedAnsweredJob(t *testing.T, jobs *memJobRepo, answers *memAnswerSetRepo, id string) {
	t.Helper()
	j := model.NewJobRecord(id, "run-1")
	j.QuickApply = true
	j.Status = model.JobStatusAnswersGenerated
	jobs.put(j)
	err := answers.Append(context.Background(), nil, &model.AnswerSet{
		ID:         "as-" + id,
		JobID:      id,
		ProfileID:  "p1",
		Answers:    map[string]string{"years_experience": "5"},
		Confidence: 0.9,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seed answers: %v", err)
	}
}

func TestApply_DryRunLeavesStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	seedActiveProfile(profiles, "p1")
	seedAnsweredJob(t, jobs, answers, "A")

	driver := &fakeFormDriver{fields: []model.FieldSpec{{ID: "years_experience"}}}
	uc := NewApplyUseCase(jobs, answers, profiles, driver, nopReporter{}, 0, &testLogger)

	report, err := uc.Apply(ctx, "A", false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Submitted {
		t.Fatalf("dry run must not submit")
	}
	j, _ := jobs.FindByID(ctx, nil, "A")
	if j.Status != model.JobStatusAnswersGenerated || j.Applied {
		t.Fatalf("dry run must not advance lifecycle: %+v", j)
	}
	set, _ := answers.FindLatest(ctx, nil, "A")
	if set.UsedForApply {
		t.Fatalf("dry run must not mark answers used")
	}
}

func TestApply_SubmitAdvancesAndMarksUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	seedActiveProfile(profiles, "p1")
	seedAnsweredJob(t, jobs, answers, "A")

	driver := &fakeFormDriver{fields: []model.FieldSpec{{ID: "years_experience"}}, submitted: true}
	uc := NewApplyUseCase(jobs, answers, profiles, driver, nopReporter{}, 0, &testLogger)

	report, err := uc.Apply(ctx, "A", true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !report.Submitted {
		t.Fatalf("expected confirmed submission")
	}
	j, _ := jobs.FindByID(ctx, nil, "A")
	if j.Status != model.JobStatusSubmitted || !j.Applied {
		t.Fatalf("expected submitted+applied, got %+v", j)
	}
	set, _ := answers.FindLatest(ctx, nil, "A")
	if !set.UsedForApply || set.AppliedAt == nil {
		t.Fatalf("answer set must be marked used")
	}
	p, _ := profiles.FindByID(ctx, nil, "p1")
	if p.Applications != 1 {
		t.Fatalf("profile usage not recorded: %d", p.Applications)
	}
}

func TestApply_DriverFailureRecordsApplyFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	seedActiveProfile(profiles, "p1")
	seedAnsweredJob(t, jobs, answers, "A")

	driver := &fakeFormDriver{fields: []model.FieldSpec{{ID: "years_experience"}}, execErr: errors.New("dialog not visible")}
	uc := NewApplyUseCase(jobs, answers, profiles, driver, nopReporter{}, 0, &testLogger)

	if _, err := uc.Apply(ctx, "A", true); err == nil {
		t.Fatalf("expected driver error to surface")
	}
	j, _ := jobs.FindByID(ctx, nil, "A")
	if j.Status != model.JobStatusApplyFailed {
		t.Fatalf("expected apply_failed, got %s", j.Status)
	}
	if j.Applied {
		t.Fatalf("failed apply must not set applied")
	}
}

func TestApply_RejectsLifecycleSkip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	j := model.NewJobRecord("A", "run-1")
	j.QuickApply = true
	jobs.put(j)
	_ = answers.Append(ctx, nil, &model.AnswerSet{
		ID:      "as-A",
		JobID:   "A",
		Answers: map[string]string{"years_experience": "5"},
	})

	driver := &fakeFormDriver{fields: []model.FieldSpec{{ID: "years_experience"}}, submitted: true}
	uc := NewApplyUseCase(jobs, answers, profiles, driver, nopReporter{}, 0, &testLogger)

	if _, err := uc.Apply(ctx, "A", true); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("discovered job must not jump to submitted, got %v", err)
	}
	got, _ := jobs.FindByID(ctx, nil, "A")
	if got.Status != model.JobStatusDiscovered || got.Applied {
		t.Fatalf("rejected apply must not advance lifecycle: %+v", got)
	}
}

func TestApply_MissingAnswerSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	j := model.NewJobRecord("A", "run-1")
	jobs.put(j)

	uc := NewApplyUseCase(jobs, answers, profiles, &fakeFormDriver{}, nopReporter{}, 0, &testLogger)
	if _, err := uc.Apply(ctx, "A", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing answers, got %v", err)
	}
}

func TestApply_PreparePlanUsesLatestSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	seedAnsweredJob(t, jobs, answers, "A")
	_ = answers.Append(ctx, nil, &model.AnswerSet{
		ID:         "as-A-2",
		JobID:      "A",
		Answers:    map[string]string{"years_experience": "7"},
		Confidence: 0.95,
		CreatedAt:  time.Now(),
	})

	driver := &fakeFormDriver{fields: []model.FieldSpec{{ID: "years_experience"}}}
	uc := NewApplyUseCase(jobs, answers, profiles, driver, nopReporter{}, 0, &testLogger)

	plan, err := uc.PreparePlan(ctx, "A")
	if err != nil {
		t.Fatalf("PreparePlan: %v", err)
	}
	if plan.AnswerSetID != "as-A-2" {
		t.Fatalf("plan must consume the latest set, got %s", plan.AnswerSetID)
	}
	if plan.Steps[0].Value != "7" {
		t.Fatalf("expected newest answer, got %q", plan.Steps[0].Value)
	}
}

func TestReadyToApply_Validation(t *testing.T) {
	t.Parallel()

	jobs, answers, profiles := newMemJobRepo(), newMemAnswerSetRepo(), newMemProfileRepo()
	uc := NewApplyUseCase(jobs, answers, profiles, &fakeFormDriver{}, nopReporter{}, 0, &testLogger)
	if _, err := uc.ReadyToApply(context.Background(), 1.2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
