package aiscore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/aiscore"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/testutil"
)

func scoreInput(counts model.SeverityCounts) *aiscore.Input {
	return &aiscore.Input{URL: "https://target.example", Counts: counts}
}

// chatHandler builds an OpenAI-compatible handler returning the given
// payload string as the assistant message.
func chatHandler(t *testing.T, payload func(model string) (string, int)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding chat request: %v", err)
		}
		content, status := payload(req.Model)
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"model overloaded"}}`)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding chat response: %v", err)
		}
	}
}

func modelConfig(baseURL string) aiscore.Config {
	return aiscore.Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		PrimaryModel:   "primary",
		FallbackModels: []string{"backup"},
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		Timeout:        5 * time.Second,
	}
}

// ─── Rule-based scorer ─────────────────────────────────────────────────

func TestRuleBased_ScoreFormula(t *testing.T) {
	t.Parallel()

	scorer := &aiscore.RuleBasedScorer{}
	score, err := scorer.Attempt(context.Background(), scoreInput(model.SeverityCounts{
		Critical: 1, High: 1, Medium: 2, Low: 5,
	}))
	if err != nil {
		t.Fatalf("rule-based scorer must not fail: %v", err)
	}
	// 10 - 3 - 1.5 - 1 - 0.5 = 4
	if score.Score != 4 {
		t.Errorf("score = %v, want 4", score.Score)
	}
	if !score.RuleBased {
		t.Error("RuleBased flag not set")
	}
	if score.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", score.Confidence)
	}
}

func TestRuleBased_ScoreFloorsAtOne(t *testing.T) {
	t.Parallel()

	scorer := &aiscore.RuleBasedScorer{}
	score, _ := scorer.Attempt(context.Background(), scoreInput(model.SeverityCounts{Critical: 4}))

	if score.Score != 1 {
		t.Errorf("score = %v, want floor of 1", score.Score)
	}
}

func TestRuleBased_CleanTargetScoresTen(t *testing.T) {
	t.Parallel()

	scorer := &aiscore.RuleBasedScorer{}
	score, _ := scorer.Attempt(context.Background(), scoreInput(model.SeverityCounts{}))

	if score.Score != 10 {
		t.Errorf("score = %v, want 10", score.Score)
	}
	if score.Summary == "" {
		t.Error("summary must not be empty")
	}
}

func TestRuleBased_RecommendationsTakeMostSevereFive(t *testing.T) {
	t.Parallel()

	findings := []model.Finding{
		{Title: "low-1", Severity: model.SeverityLow},
		{Title: "med-1", Severity: model.SeverityMedium},
		{Title: "crit-1", Severity: model.SeverityCritical},
		{Title: "low-2", Severity: model.SeverityLow},
		{Title: "high-1", Severity: model.SeverityHigh},
		{Title: "med-2", Severity: model.SeverityMedium},
		{Title: "low-3", Severity: model.SeverityLow},
	}
	in := scoreInput(model.CountBySeverity(findings))
	in.Findings = findings

	score, _ := (&aiscore.RuleBasedScorer{}).Attempt(context.Background(), in)

	if len(score.Recommendations) != 5 {
		t.Fatalf("recommendations = %d, want 5", len(score.Recommendations))
	}
	if score.Recommendations[0].Title != "Fix: crit-1" {
		t.Errorf("first recommendation = %q, want the critical finding", score.Recommendations[0].Title)
	}
	if score.Recommendations[0].Priority != string(model.SeverityCritical) {
		t.Errorf("priority = %q", score.Recommendations[0].Priority)
	}
	for _, rec := range score.Recommendations {
		if rec.Confidence != 0.7 {
			t.Errorf("recommendation confidence = %v, want 0.7", rec.Confidence)
		}
	}
}

// ─── Agent ladder ──────────────────────────────────────────────────────

func TestAgent_NoEndpointFallsBackToRuleBased(t *testing.T) {
	t.Parallel()

	agent := aiscore.NewAgent(aiscore.Config{}, &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{High: 1}))

	if score == nil {
		t.Fatal("Score must never return nil")
	}
	if !score.RuleBased {
		t.Error("without a model endpoint the rule-based rung must answer")
	}
}

func TestAgent_PrimaryModelAnswers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		return `{"score":7.5,"confidence":0.8,"summary":"Mostly solid posture.","recommendations":[],"explanations":{"no-https":"Traffic can be read in transit."}}`, http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{Medium: 1}))

	if score.RuleBased {
		t.Fatal("model answered, result must not be rule-based")
	}
	if score.Model != "primary" {
		t.Errorf("model = %q, want primary", score.Model)
	}
	if score.Score != 7.5 || score.Confidence != 0.8 {
		t.Errorf("score = %v confidence = %v", score.Score, score.Confidence)
	}
	if score.Explanations["no-https"] == "" {
		t.Error("explanations map not carried over")
	}
}

func TestAgent_OutOfRangeModelOutputIsClamped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		return `{"score":42,"confidence":3,"summary":"Overenthusiastic.","recommendations":[{"title":"r","confidence":-2}]}`, http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{}))

	if score.Score != 10 {
		t.Errorf("score = %v, want clamp to 10", score.Score)
	}
	if score.Confidence != 1 {
		t.Errorf("confidence = %v, want clamp to 1", score.Confidence)
	}
	if score.Recommendations[0].Confidence != 0 {
		t.Errorf("recommendation confidence = %v, want clamp to 0", score.Recommendations[0].Confidence)
	}
}

func TestAgent_MarkdownFencedJSONAccepted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		return "```json\n{\"score\":6,\"confidence\":0.6,\"summary\":\"Fenced.\"}\n```", http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{}))

	if score.RuleBased {
		t.Fatal("fenced JSON should still parse")
	}
	if score.Score != 6 {
		t.Errorf("score = %v, want 6", score.Score)
	}
}

func TestAgent_RetriesPrimaryBeforeFallback(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		if calls.Add(1) == 1 {
			return "", http.StatusInternalServerError
		}
		return `{"score":8,"confidence":0.9,"summary":"Recovered on retry."}`, http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{}))

	if score.Model != "primary" {
		t.Errorf("model = %q, retry should have stayed on primary", score.Model)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("api calls = %d, want 2", got)
	}
}

func TestAgent_FallsBackToSecondModel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(modelName string) (string, int) {
		if modelName == "primary" {
			return "", http.StatusInternalServerError
		}
		return `{"score":5,"confidence":0.6,"summary":"Backup model answered."}`, http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{}))

	if score.Model != "backup" {
		t.Errorf("model = %q, want backup", score.Model)
	}
	if score.RuleBased {
		t.Error("fallback model answered, result must not be rule-based")
	}
}

func TestAgent_AllModelsDownEndsRuleBased(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		return "", http.StatusInternalServerError
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{Critical: 1}))

	if score == nil {
		t.Fatal("Score must never return nil")
	}
	if !score.RuleBased {
		t.Error("with every model down the rule-based rung must answer")
	}
	if score.Score != 7 {
		t.Errorf("score = %v, want 7 for one critical finding", score.Score)
	}
}

func TestAgent_EmptySummaryIsRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatHandler(t, func(string) (string, int) {
		return `{"score":9,"confidence":0.9,"summary":""}`, http.StatusOK
	}))
	defer srv.Close()

	agent := aiscore.NewAgent(modelConfig(srv.URL), &testutil.DummyLogger{})
	score := agent.Score(context.Background(), scoreInput(model.SeverityCounts{}))

	if !score.RuleBased {
		t.Error("an empty summary must not be accepted as a model answer")
	}
}
