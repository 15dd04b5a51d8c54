package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadhunter-enricher/internal/config"
	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
	"github.com/JakeFAU/leadhunter-enricher/internal/service"
)

// Enricher is the enrichment surface the handlers call.
type Enricher interface {
	EnrichWebsite(ctx context.Context, website string) enrich.Result
	EnrichLead(ctx context.Context, userID, leadID string) (service.Outcome, error)
}

// Jobs submits and tracks bulk enrichment jobs.
type Jobs interface {
	Submit(ctx context.Context, userID, listID string) (leads.Job, error)
	Job(ctx context.Context, userID, jobID string) (leads.Job, error)
	Cancel(ctx context.Context, userID, jobID string) (leads.Job, error)
}

// ReadinessFunc reports whether downstream dependencies can serve traffic.
type ReadinessFunc func(ctx context.Context) error

// Server wires HTTP handlers to the enrichment service and dispatcher.
type Server struct {
	router   chi.Router
	enricher Enricher
	jobs     Jobs
	ready    ReadinessFunc
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. ready may be nil.
func NewServer(enricher Enricher, jobs Jobs, ready ReadinessFunc, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		enricher: enricher,
		jobs:     jobs,
		ready:    ready,
		logger:   logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/enrich", s.enrichWebsite)

		r.Group(func(r chi.Router) {
			r.Use(userIDMiddleware)
			r.Post("/leads/{lead_id}/enrich", s.enrichLead)
			r.Post("/lists/{list_id}/enrich", s.submitListJob)
			r.Route("/jobs/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/cancel", s.cancelJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type enrichRequest struct {
	Website string `json:"website"`
}

type enrichResponse struct {
	Email       *string                    `json:"email"`
	SocialLinks map[enrich.Platform]string `json:"socialLinks"`
	Success     bool                       `json:"success"`
}

func newEnrichResponse(result enrich.Result) enrichResponse {
	links := result.SocialLinks
	if links == nil {
		links = map[enrich.Platform]string{}
	}
	return enrichResponse{Email: result.Email, SocialLinks: links, Success: result.Success()}
}

// enrichWebsite always answers 200 for well-formed JSON: an empty or unreachable
// website is an unsuccessful result, not a request error.
func (s *Server) enrichWebsite(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result := s.enricher.EnrichWebsite(r.Context(), req.Website)
	s.writeJSON(w, http.StatusOK, newEnrichResponse(result))
}

type leadEnrichResponse struct {
	LeadID string       `json:"lead_id"`
	Status leads.Status `json:"status"`
	enrichResponse
	Charged int `json:"charged"`
	Balance int `json:"balance"`
}

func (s *Server) enrichLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "lead_id")
	out, err := s.enricher.EnrichLead(r.Context(), userIDFrom(r.Context()), leadID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, leadEnrichResponse{
		LeadID:         out.Lead.ID,
		Status:         out.Lead.Status,
		enrichResponse: newEnrichResponse(out.Result),
		Charged:        out.Charged,
		Balance:        out.Balance,
	})
}

func (s *Server) submitListJob(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "list_id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	job, err := s.jobs.Submit(ctx, userIDFrom(r.Context()), listID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, leads.ErrQueueClosed), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("submit list job failed", zap.String("list_id", listID), zap.Error(err))
		s.writeError(w, status, "could not queue job")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": string(job.Status)})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Job(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": string(job.Status)})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leads.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, leads.ErrInsufficientCredits):
		s.writeError(w, http.StatusPaymentRequired, "insufficient credits")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
