package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/infra/report"
	"jobpilot/internal/usecase"
)

// Server exposes the pipeline operations on an admin API. The scraper posts
// discovered jobs here; operators trigger sweeps and applications.
type Server struct {
	cfg       *config.Config
	ingestUC  *usecase.IngestUseCase
	enrichUC  *usecase.EnrichmentUseCase
	applyUC   *usecase.ApplyUseCase
	profileUC *usecase.ProfileUseCase
	jobs      repository.JobRepository
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(
	cfg *config.Config,
	ingestUC *usecase.IngestUseCase,
	enrichUC *usecase.EnrichmentUseCase,
	applyUC *usecase.ApplyUseCase,
	profileUC *usecase.ProfileUseCase,
	jobs repository.JobRepository,
	log *zerolog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		ingestUC:  ingestUC,
		enrichUC:  enrichUC,
		applyUC:   applyUC,
		profileUC: profileUC,
		jobs:      jobs,
		log:       log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs/{runID}/jobs", s.handleIngest)
		r.Post("/runs/{runID}/sweep", s.handleSweep)
		r.Get("/runs/{runID}/fit-summary", s.handleFitSummary)

		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Get("/jobs/{jobID}/plan", s.handlePlan)
		r.Post("/jobs/{jobID}/apply", s.handleApply)
		r.Post("/jobs/fit-status", s.handleFitStatus)
		r.Get("/jobs/ready", s.handleReady)

		r.Post("/profiles", s.handleImportProfile)
		r.Post("/profiles/{id}/activate", s.handleActivateProfile)
		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/active", s.handleActiveProfile)
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Admin.Port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", s.cfg.Admin.Port).Msg("admin api listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var records []*model.JobRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	out, err := s.ingestUC.RecordDiscovered(r.Context(), runID, records)
	if err != nil {
		s.writeError(w, err)
		return
	}
	failed := make(map[string]string, len(out.Failed))
	for id, cause := range out.Failed {
		failed[id] = cause.Error()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"written": out.Written,
		"failed":  failed,
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var params usecase.BatchParams
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
			return
		}
	}
	params.RunID = chi.URLParam(r, "runID")
	if params.MaxParallel <= 0 {
		params.MaxParallel = s.cfg.Batch.MaxParallel
	}
	if params.Limit == 0 {
		params.Limit = s.cfg.Batch.Limit
	}
	start := time.Now()
	res, err := s.enrichUC.Run(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report.ObserveSweep(res, time.Since(start))
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFitSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.jobs.FitSummaryByRun(r.Context(), nil, chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{
		"total":    summary.Total,
		"good_fit": summary.GoodFit,
		"bad_fit":  summary.BadFit,
		"unscored": summary.Unscored,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.FindByID(r.Context(), nil, chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.applyUC.PreparePlan(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AllowSubmit bool `json:"allow_submit"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
			return
		}
	}
	report, err := s.applyUC.Apply(r.Context(), chi.URLParam(r, "jobID"), body.AllowSubmit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFitStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JobIDs   []string `json:"job_ids"`
		GoodFit  bool     `json:"good_fit"`
		FitScore *float64 `json:"fit_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	n, err := s.enrichUC.UpdateFitStatus(r.Context(), body.JobIDs, body.GoodFit, body.FitScore)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	minScore := s.cfg.Batch.MinFitScore
	if v := r.URL.Query().Get("min_fit_score"); v != "" {
		if _, err := fmt.Sscanf(v, "%f", &minScore); err != nil {
			s.writeError(w, fmt.Errorf("%w: min_fit_score", domain.ErrInvalidArgument))
			return
		}
	}
	ids, err := s.applyUC.ReadyToApply(r.Context(), minScore)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"job_ids": ids})
}

func (s *Server) handleImportProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Profile  *model.CandidateProfile `json:"profile"`
		Activate bool                    `json:"activate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Profile == nil {
		s.writeError(w, fmt.Errorf("%w: profile body", domain.ErrInvalidArgument))
		return
	}
	id, err := s.profileUC.Import(r.Context(), body.Profile, body.Activate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.profileUC.Activate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profileUC.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleActiveProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profileUC.GetActive(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchLocked), errors.Is(err, domain.ErrConstraint):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoActiveProfile):
		status = http.StatusPreconditionFailed
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// shutdownTimeout bounds graceful drain on SIGTERM.
const shutdownTimeout = 10 * time.Second

func (s *Server) GracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("shutdown")
	}
}
