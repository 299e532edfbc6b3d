package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/svcaudit/vigil/internal/screening"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 45},
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(completionBody("好的，明白了"))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "qwen-test")
	got, err := client.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Text != "好的，明白了" {
		t.Errorf("text = %q", got.Text)
	}
	if got.InputTokens != 120 || got.OutputTokens != 45 {
		t.Errorf("usage = %d/%d", got.InputTokens, got.OutputTokens)
	}
	if gotReq.Model != "qwen-test" || gotReq.Stream {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Temperature != completionTemperature || gotReq.MaxTokens != completionMaxTokens {
		t.Errorf("generation settings = %g/%d", gotReq.Temperature, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestOpenAIClient_APIErrorIsResponseKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "k", "m")
	_, err := client.Complete(context.Background(), "s", "p")

	var oerr *Error
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T", err)
	}
	if oerr.Kind != ErrResponse {
		t.Errorf("kind = %q, want %q", oerr.Kind, ErrResponse)
	}
}

func TestOpenAIClient_ConnectionFailureIsTransportKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewOpenAIClient(srv.URL, "k", "m")
	_, err := client.Complete(context.Background(), "s", "p")

	var oerr *Error
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T", err)
	}
	if oerr.Kind != ErrTransport {
		t.Errorf("kind = %q, want %q", oerr.Kind, ErrTransport)
	}
}

func TestJudge_ParsesFencedVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "```json\n{\"has_evasion\": true, \"risk_level\": \"high\", \"confidence_score\": 0.9, \"evasion_types\": [\"推卸责任\"]}\n```"
		json.NewEncoder(w).Encode(completionBody(content))
	}))
	defer srv.Close()

	judge := NewJudge(NewOpenAIClient(srv.URL, "k", "m"), discardLogger())
	scr := &screening.Result{Suspicious: true, MatchedCategories: []string{"推卸责任"}}

	j, err := judge.Judge(context.Background(), 7, "对话内容", scr, nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !j.Verdict.HasEvasion || j.Verdict.RiskLevel != "high" {
		t.Errorf("verdict = %+v", j.Verdict)
	}
	if j.InputTokens != 120 || j.OutputTokens != 45 {
		t.Errorf("token accounting = %d/%d", j.InputTokens, j.OutputTokens)
	}
	if j.Raw == "" {
		t.Error("raw response not preserved")
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider("bard", "", "k", "m"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
