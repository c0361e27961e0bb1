// Package api exposes the HTTP interface of the crawler service: health
// probes, Prometheus metrics, and job submission.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/pipeline"
)

// Server wires HTTP handlers to the pipeline and job store.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	consolidator *pipeline.Consolidator
	jobs         land.JobStore
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	orchestrator *pipeline.Orchestrator,
	consolidator *pipeline.Consolidator,
	jobs land.JobStore,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		orchestrator: orchestrator,
		consolidator: consolidator,
		jobs:         jobs,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/lands/{land_id}", func(r chi.Router) {
			r.Post("/crawl", s.submitCrawl)
			r.Post("/consolidate", s.submitConsolidate)
		})
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type jobRequest struct {
	Limit        int    `json:"limit"`
	Depth        *int   `json:"depth"`
	HTTPStatus   string `json:"http_status"`
	AnalyzeMedia bool   `json:"analyze_media"`
}

func (s *Server) submitCrawl(w http.ResponseWriter, r *http.Request) {
	params, ok := s.jobParams(w, r)
	if !ok {
		return
	}
	jobID := uuid.NewString()
	if err := s.jobs.UpdateStatus(r.Context(), jobID, land.JobPending, nil, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "record job")
		return
	}
	// the job outlives the request; completion is visible via /v1/jobs
	go func() {
		if _, err := s.orchestrator.Crawl(context.Background(), jobID, params); err != nil {
			s.logger.Error("crawl job failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) submitConsolidate(w http.ResponseWriter, r *http.Request) {
	params, ok := s.jobParams(w, r)
	if !ok {
		return
	}
	jobID := uuid.NewString()
	if err := s.jobs.UpdateStatus(r.Context(), jobID, land.JobPending, nil, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "record job")
		return
	}
	go func() {
		if _, err := s.consolidator.Consolidate(context.Background(), jobID, params); err != nil {
			s.logger.Error("consolidation job failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, land.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load job")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) jobParams(w http.ResponseWriter, r *http.Request) (land.JobParams, bool) {
	landID, err := strconv.ParseInt(chi.URLParam(r, "land_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid land id")
		return land.JobParams{}, false
	}
	var req jobRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return land.JobParams{}, false
		}
	}
	return land.JobParams{
		LandID:       landID,
		Limit:        req.Limit,
		Depth:        req.Depth,
		HTTPStatus:   req.HTTPStatus,
		AnalyzeMedia: req.AnalyzeMedia,
	}, true
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
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
