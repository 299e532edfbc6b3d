// Package api is the operations surface: queue inspection, failure retry,
// rule reload, and on-demand batch runs. The analysis itself is driven by
// events, not HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/svcaudit/vigil/internal/analysis"
	"github.com/svcaudit/vigil/internal/pipeline"
	"github.com/svcaudit/vigil/internal/store"
)

// QueueStore is the work order and result bookkeeping the API exposes.
type QueueStore interface {
	QueueStatus(ctx context.Context) (store.QueueCounts, error)
	ResetFailed(ctx context.Context, ids []int64, limit int) (int64, error)
	PendingWorkOrders(ctx context.Context, limit int) ([]store.WorkOrder, error)
	HighRiskResults(ctx context.Context, limit int) ([]analysis.Result, error)
}

// Runner triggers batch analysis runs.
type Runner interface {
	RunBatch(ctx context.Context, workIDs []int64) pipeline.BatchSummary
}

// RuleCache invalidates the cached screening rules.
type RuleCache interface {
	Invalidate()
}

type Server struct {
	router    *chi.Mux
	port      int
	store     QueueStore
	runner    Runner
	rules     RuleCache
	batchSize int
	logger    *slog.Logger
}

func NewServer(port int, qs QueueStore, runner Runner, rules RuleCache, batchSize int, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		store:     qs,
		runner:    runner,
		rules:     rules,
		batchSize: batchSize,
		logger:    logger,
	}
	if s.batchSize <= 0 {
		s.batchSize = 50
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/vigil", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/queue", s.queue)
		r.Get("/results/high-risk", s.highRiskResults)
		r.Post("/retry", s.retry)
		r.Post("/analyze", s.analyze)
		r.Post("/rules/reload", s.reloadRules)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "vigil",
		"status":  "running",
	})
}

func (s *Server) queue(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.QueueStatus(r.Context())
	if err != nil {
		s.logger.Error("queue status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "queue status failed"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) highRiskResults(w http.ResponseWriter, r *http.Request) {
	limit := s.batchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}

	results, err := s.store.HighRiskResults(r.Context(), limit)
	if err != nil {
		s.logger.Error("high risk lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "high risk lookup failed"})
		return
	}
	if results == nil {
		results = []analysis.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

type retryRequest struct {
	WorkIDs []int64 `json:"work_ids,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.batchSize
	}

	reset, err := s.store.ResetFailed(r.Context(), req.WorkIDs, req.Limit)
	if err != nil {
		s.logger.Error("retry failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}

	s.logger.Info("failed work orders reset", "count", reset)
	writeJSON(w, http.StatusOK, map[string]int64{"reset": reset})
}

type analyzeRequest struct {
	WorkIDs []int64 `json:"work_ids,omitempty"`
}

// analyze runs a batch over the given work orders, or over pending orders
// when none are named.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	ids := req.WorkIDs
	if len(ids) == 0 {
		orders, err := s.store.PendingWorkOrders(r.Context(), s.batchSize)
		if err != nil {
			s.logger.Error("pending lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "pending lookup failed"})
			return
		}
		for _, o := range orders {
			ids = append(ids, o.WorkID)
		}
	}

	summary := s.runner.RunBatch(r.Context(), ids)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) reloadRules(w http.ResponseWriter, r *http.Request) {
	s.rules.Invalidate()
	s.logger.Info("rule cache invalidated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
