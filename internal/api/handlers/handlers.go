package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-scoring/internal/api/middleware"
	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/jobs"
	"github.com/dvloznov/credit-scoring/internal/pipeline"
)

// maxDatasetBytes bounds the size of an inline CSV payload on /api/score.
const maxDatasetBytes = 64 << 20

// ScoringHandler handles scoring-related endpoints.
type ScoringHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	opts      pipeline.Options
	log       zerolog.Logger
}

// NewScoringHandler creates a new scoring handler. opts carries the pipeline
// defaults applied when a request does not override them.
func NewScoringHandler(publisher jobs.Publisher, store jobs.JobStore, opts pipeline.Options, log zerolog.Logger) *ScoringHandler {
	return &ScoringHandler{
		publisher: publisher,
		store:     store,
		opts:      opts,
		log:       log,
	}
}

// Score handles POST /api/score. The request body is a raw CSV dataset,
// scored synchronously. Strategy, clusters and seed come from query
// parameters.
func (h *ScoringHandler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDatasetBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Request body is empty")
		return
	}

	opts := h.opts
	query := r.URL.Query()
	if s := query.Get("strategy"); s != "" {
		strategy, err := features.ParseStrategy(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown missing-value strategy: "+s)
			return
		}
		opts.Strategy = strategy
	}
	if c := query.Get("clusters"); c != "" {
		clusters, err := strconv.Atoi(c)
		if err != nil || clusters < 2 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid clusters parameter")
			return
		}
		opts.Clusters = clusters
	}
	if s := query.Get("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid seed parameter")
			return
		}
		opts.Seed = seed
	}

	result, err := pipeline.ProcessData(ctx, data, opts)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientData) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, "Not enough customers to segment")
			return
		}
		h.log.Error().Err(err).Msg("Failed to score dataset")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to score dataset")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":         result.RunID,
		"snapshot":       result.Snapshot,
		"processed":      result.Processed,
		"rfm":            result.RFM,
		"aggregates":     result.Aggregates,
		"customer_count": len(result.RFM),
	})
}

// EnqueueRun handles POST /api/runs. It queues a dataset scoring job for
// asynchronous processing.
func (h *ScoringHandler) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceURI string `json:"source_uri"`
		Strategy  string `json:"strategy"`
		Clusters  int    `json:"clusters"`
		Seed      int64  `json:"seed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SourceURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri is required")
		return
	}
	if req.Strategy != "" {
		if _, err := features.ParseStrategy(req.Strategy); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown missing-value strategy: "+req.Strategy)
			return
		}
	}

	ctx := r.Context()

	job := &jobs.ScoreDatasetJob{
		SourceURI: req.SourceURI,
		Strategy:  req.Strategy,
		Clusters:  req.Clusters,
		Seed:      req.Seed,
	}

	if err := h.publisher.PublishScoreDataset(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scoring job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scoring job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source_uri", req.SourceURI).Msg("Scoring job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"source_uri": req.SourceURI,
		"status":     string(job.Status),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *ScoringHandler) GetRun(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListRuns handles GET /api/runs
func (h *ScoringHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		SourceURI: query.Get("source_uri"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  jobsList,
		"count": len(jobsList),
	})
}
