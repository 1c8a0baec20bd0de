package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth returns liveness only
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the backing stores
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion returns the build version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Query endpoints

// queryRequest is the wire shape of a query call. Caller identity comes from
// the bearer token, never from the body.
type queryRequest struct {
	Query          string `json:"query"`
	MaxSubQueries  int    `json:"max_sub_queries,omitempty"`
	MaxParallelism int    `json:"max_parallelism,omitempty"`
	K              int    `json:"k,omitempty"`
	TopN           int    `json:"top_n,omitempty"`
	TTL            string `json:"ttl,omitempty"`
	DeadlineMS     int    `json:"deadline_ms,omitempty"`
}

// handleQuery runs the full query pipeline for one request
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	domainReq := domain.QueryRequest{
		Query:          req.Query,
		MaxSubQueries:  req.MaxSubQueries,
		MaxParallelism: req.MaxParallelism,
		K:              req.K,
		TopN:           req.TopN,
		TTL:            domain.TTLClass(req.TTL),
		Deadline:       time.Duration(req.DeadlineMS) * time.Millisecond,
	}
	if claims := GetCallerClaims(r.Context()); claims != nil {
		domainReq.CallerID = claims.CallerID
		domainReq.Tier = claims.Tier
	}

	result, err := s.queryService.ProcessQuery(r.Context(), domainReq)
	if err != nil {
		if rejection, ok := domain.IsAdmissionRejected(err); ok {
			// Backpressure, not failure. Tell the caller when to come back.
			seconds := int(rejection.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Ingestion endpoints

// ingestRequest is the wire shape of an ingestion trigger
type ingestRequest struct {
	Documents []domain.DocumentRef `json:"documents"`
}

// ingestResponse acknowledges an enqueued ingestion job
type ingestResponse struct {
	JobID string `json:"job_id"`
}

// handleIngest enqueues documents for background indexing
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := s.ingestionService.Enqueue(r.Context(), req.Documents)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue ingestion")
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{JobID: jobID})
}

// handleGetJob returns the state of one ingestion job
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := s.ingestionService.JobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// jobListResponse carries jobs plus queue-level counters
type jobListResponse struct {
	Jobs  []*domain.IngestionJob `json:"jobs"`
	Stats *driven.QueueStats     `json:"stats,omitempty"`
}

// handleListJobs lists ingestion jobs, optionally filtered by state
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := driven.JobFilter{
		State: domain.JobState(r.URL.Query().Get("state")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", limitStr))
			return
		}
		filter.Limit = limit
	}

	jobs, err := s.ingestionService.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := jobListResponse{Jobs: jobs}
	if stats, err := s.ingestionService.QueueStats(r.Context()); err == nil {
		resp.Stats = stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
