package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"jobpilot/internal/config"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/infra/adapters/ai"
	"jobpilot/internal/infra/adapters/form"
	"jobpilot/internal/infra/db/sqlite"
	"jobpilot/internal/infra/report"
	"jobpilot/internal/usecase"
)

// newTestServer wires the full stack over an in-memory sqlite store with the
// noop AI provider and form driver.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	jobs := sqlite.NewJobRepo(store)
	answers := sqlite.NewAnswerSetRepo(store)
	profiles := sqlite.NewProfileRepo(store)

	log := zerolog.Nop()
	reporter := report.New(&log)
	provider := ai.NewNoopAIAdapter()
	driver := form.NewNoopDriver(func(jobID string) []model.FieldSpec {
		j, err := jobs.FindByID(context.Background(), nil, jobID)
		if err != nil {
			return nil
		}
		return j.Questions
	})

	cfg := &config.Config{}
	cfg.Admin.Port = 0
	cfg.Batch.MaxParallel = 2
	cfg.Batch.ReviewThreshold = 0.7
	cfg.Batch.MinFitScore = 0.6

	srv := NewServer(cfg,
		usecase.NewIngestUseCase(jobs, &log),
		usecase.NewEnrichmentUseCase(jobs, answers, profiles, provider, reporter, nil, &log),
		usecase.NewApplyUseCase(jobs, answers, profiles, driver, reporter, cfg.Batch.ReviewThreshold, &log),
		usecase.NewProfileUseCase(profiles, &log),
		jobs, &log)
	return httptest.NewServer(srv.Router())
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	// activate a profile
	resp := postJSON(t, ts.URL+"/api/v1/profiles", map[string]interface{}{
		"profile":  &model.CandidateProfile{Title: "Platform Engineer", Skills: []string{"Go"}},
		"activate": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import profile: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// scraper drops two discoveries
	resp = postJSON(t, ts.URL+"/api/v1/runs/run-1/jobs", []*model.JobRecord{
		{JobID: "A", Title: "Engineer", QuickApply: true, Questions: []model.FieldSpec{
			{ID: "years_experience", Label: "Years of experience", Required: true},
		}},
		{JobID: "B", Title: "Analyst"},
	})
	var ingest struct {
		Written int `json:"written"`
	}
	decodeBody(t, resp, &ingest)
	if ingest.Written != 2 {
		t.Fatalf("ingest written=%d", ingest.Written)
	}

	// sweep the run
	resp = postJSON(t, ts.URL+"/api/v1/runs/run-1/sweep", map[string]bool{
		"enrich_jobs":      true,
		"generate_answers": true,
	})
	var sweep usecase.BatchResult
	decodeBody(t, resp, &sweep)
	if sweep.Processed != 1 || sweep.Enriched != 1 || sweep.AnswersGenerated != 1 {
		t.Fatalf("sweep result: %+v", sweep)
	}
	if len(sweep.Skipped) != 1 || sweep.Skipped[0].Reason != usecase.SkipNotQuickApply {
		t.Fatalf("job B is not quick apply: %+v", sweep.Skipped)
	}

	// job A now has a plan
	resp, err := http.Get(ts.URL + "/api/v1/jobs/A/plan")
	if err != nil {
		t.Fatalf("GET plan: %v", err)
	}
	var plan model.FillPlan
	decodeBody(t, resp, &plan)
	if len(plan.Steps) != 1 || plan.Steps[0].Action != model.ActionFill {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	// dry-run apply leaves the lifecycle alone
	resp = postJSON(t, ts.URL+"/api/v1/jobs/A/apply", map[string]bool{"allow_submit": false})
	var dry model.FillReport
	decodeBody(t, resp, &dry)
	if dry.Submitted {
		t.Fatalf("dry run must not submit")
	}

	// real apply advances it
	resp = postJSON(t, ts.URL+"/api/v1/jobs/A/apply", map[string]bool{"allow_submit": true})
	var wet model.FillReport
	decodeBody(t, resp, &wet)
	if !wet.Submitted {
		t.Fatalf("expected submission: %+v", wet)
	}

	// fit summary for the run
	resp, err = http.Get(ts.URL + "/api/v1/runs/run-1/fit-summary")
	if err != nil {
		t.Fatalf("GET fit-summary: %v", err)
	}
	var summary struct {
		Total   int `json:"total"`
		GoodFit int `json:"good_fit"`
	}
	decodeBody(t, resp, &summary)
	if summary.Total != 2 || summary.GoodFit != 1 {
		t.Fatalf("summary: %+v", summary)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job: %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/v1/profiles/missing/activate", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("activate unknown profile: %d", resp.StatusCode)
	}

	// sweep without an active profile is a hard failure
	resp = postJSON(t, ts.URL+"/api/v1/runs/run-9/sweep", map[string]bool{"enrich_jobs": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("sweep without profile: %d", resp.StatusCode)
	}
}
