package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/svcaudit/vigil/internal/analysis"
	"github.com/svcaudit/vigil/internal/merge"
	"github.com/svcaudit/vigil/internal/pipeline"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/store"
)

type fakeQueueStore struct {
	counts    store.QueueCounts
	pending   []store.WorkOrder
	highRisk  []analysis.Result
	resetIDs  []int64
	resetLim  int
	riskLimit int
}

func (f *fakeQueueStore) QueueStatus(ctx context.Context) (store.QueueCounts, error) {
	return f.counts, nil
}

func (f *fakeQueueStore) ResetFailed(ctx context.Context, ids []int64, limit int) (int64, error) {
	f.resetIDs = ids
	f.resetLim = limit
	if len(ids) > 0 {
		return int64(len(ids)), nil
	}
	return 2, nil
}

func (f *fakeQueueStore) PendingWorkOrders(ctx context.Context, limit int) ([]store.WorkOrder, error) {
	return f.pending, nil
}

func (f *fakeQueueStore) HighRiskResults(ctx context.Context, limit int) ([]analysis.Result, error) {
	f.riskLimit = limit
	return f.highRisk, nil
}

type fakeRunner struct {
	gotIDs []int64
}

func (f *fakeRunner) RunBatch(ctx context.Context, workIDs []int64) pipeline.BatchSummary {
	f.gotIDs = workIDs
	return pipeline.BatchSummary{Total: len(workIDs), Succeeded: len(workIDs)}
}

type fakeRuleCache struct {
	invalidated int
}

func (f *fakeRuleCache) Invalidate() { f.invalidated++ }

func testServer() (*Server, *fakeQueueStore, *fakeRunner, *fakeRuleCache) {
	qs := &fakeQueueStore{
		counts:  store.QueueCounts{Pending: 3, Failed: 1},
		pending: []store.WorkOrder{{WorkID: 101}, {WorkID: 102}},
	}
	runner := &fakeRunner{}
	cache := &fakeRuleCache{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(8750, qs, runner, cache, 50, logger), qs, runner, cache
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("GET", "/api/v1/vigil/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "vigil" {
		t.Errorf("expected service vigil, got %q", body["service"])
	}
}

func TestQueueEndpoint(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("GET", "/api/v1/vigil/queue", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var counts store.QueueCounts
	if err := json.NewDecoder(w.Body).Decode(&counts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if counts.Pending != 3 || counts.Failed != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestRetryEndpoint(t *testing.T) {
	srv, qs, _, _ := testServer()

	req := httptest.NewRequest("POST", "/api/v1/vigil/retry", strings.NewReader(`{"work_ids": [7, 8]}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if len(qs.resetIDs) != 2 {
		t.Errorf("reset ids = %v", qs.resetIDs)
	}

	var body map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["reset"] != 2 {
		t.Errorf("reset = %d", body["reset"])
	}
}

func TestRetryEndpoint_BadJSON(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("POST", "/api/v1/vigil/retry", strings.NewReader(`{`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAnalyzeEndpoint_DefaultsToPending(t *testing.T) {
	srv, _, runner, _ := testServer()

	req := httptest.NewRequest("POST", "/api/v1/vigil/analyze", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if len(runner.gotIDs) != 2 || runner.gotIDs[0] != 101 {
		t.Errorf("batch ids = %v, want pending orders", runner.gotIDs)
	}

	var summary pipeline.BatchSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestHighRiskResultsEndpoint(t *testing.T) {
	srv, qs, _, _ := testServer()
	qs.highRisk = []analysis.Result{
		{
			WorkID: 42,
			Judgement: &merge.Result{
				HasEvasion: true,
				RiskLevel:  rules.RiskHigh,
				Confidence: 0.92,
			},
		},
	}

	req := httptest.NewRequest("GET", "/api/v1/vigil/results/high-risk?limit=10", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if qs.riskLimit != 10 {
		t.Errorf("limit = %d, want 10", qs.riskLimit)
	}

	var body struct {
		Count   int               `json:"count"`
		Results []analysis.Result `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 1 || len(body.Results) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Results[0].WorkID != 42 || body.Results[0].Judgement.RiskLevel != rules.RiskHigh {
		t.Errorf("result = %+v", body.Results[0])
	}
}

func TestHighRiskResultsEndpoint_BadLimit(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("GET", "/api/v1/vigil/results/high-risk?limit=zero", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReloadRulesEndpoint(t *testing.T) {
	srv, _, _, cache := testServer()

	req := httptest.NewRequest("POST", "/api/v1/vigil/rules/reload", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if cache.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", cache.invalidated)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _, _, _ := testServer()

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
