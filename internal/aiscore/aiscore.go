// Package aiscore produces the narrative score for a finished analysis. A
// ladder of strategies is tried in order: the primary model with retries,
// each fallback model once, then a deterministic rule-based scorer that
// cannot fail. The caller always gets a usable AIScore.
package aiscore

import (
	"context"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// Input bundles everything a scoring strategy may consider.
type Input struct {
	URL          string
	Findings     []model.Finding
	Counts       model.SeverityCounts
	SecurityData *model.SecurityData
	Vulns        *model.VulnReport
	DeepSecurity *model.DeepSecurityReport
	VibeCheck    *model.VibeReport
	Copy         *model.CopyReport
	SEO          *model.SEOReport
}

// Strategy is one rung of the ladder. Attempt returns a validated score or
// an error that moves the agent to the next rung.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, in *Input) (*model.AIScore, error)
}

// Config configures the agent and its model strategies.
type Config struct {
	BaseURL        string // OpenAI-compatible endpoint root, empty disables model calls
	APIKey         string
	PrimaryModel   string
	FallbackModels []string
	MaxRetries     int // retries for the primary model only
	InitialBackoff time.Duration
	Timeout        time.Duration
}

// DefaultConfig returns settings suitable for production use once BaseURL
// and APIKey are filled in.
func DefaultConfig() Config {
	return Config{
		PrimaryModel:   "gpt-4o",
		FallbackModels: []string{"gpt-4o-mini"},
		MaxRetries:     2,
		InitialBackoff: 2 * time.Second,
		Timeout:        60 * time.Second,
	}
}

// Agent walks its strategies in order and returns the first success. The
// last strategy is always the rule-based scorer, so Score never fails.
type Agent struct {
	strategies []Strategy
	logger     logging.Logger
}

// NewAgent assembles the ladder from config. With no BaseURL the ladder is
// just the rule-based scorer.
func NewAgent(cfg Config, logger logging.Logger) *Agent {
	log := logger.With(logging.Field{Key: "component", Value: "ai-scorer"})

	var ladder []Strategy
	if cfg.BaseURL != "" && cfg.PrimaryModel != "" {
		client := newModelClient(cfg, log)
		ladder = append(ladder, &retryingStrategy{
			inner:   &modelStrategy{client: client, model_: cfg.PrimaryModel},
			retries: cfg.MaxRetries,
			backoff: cfg.InitialBackoff,
		})
		for _, fallback := range cfg.FallbackModels {
			ladder = append(ladder, &modelStrategy{client: client, model_: fallback})
		}
	}
	ladder = append(ladder, &RuleBasedScorer{})

	return &Agent{strategies: ladder, logger: log}
}

// Score runs the ladder. Errors from individual strategies are logged and
// absorbed; the returned score is never nil.
func (a *Agent) Score(ctx context.Context, in *Input) *model.AIScore {
	for _, strat := range a.strategies {
		score, err := strat.Attempt(ctx, in)
		if err != nil {
			a.logger.Warn("scoring strategy failed, trying next",
				logging.Field{Key: "strategy", Value: strat.Name()},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		a.logger.Info("scoring strategy succeeded",
			logging.Field{Key: "strategy", Value: strat.Name()},
			logging.Field{Key: "score", Value: score.Score})
		return score
	}
	// Unreachable while the rule-based rung is last, kept as a guard.
	score, _ := (&RuleBasedScorer{}).Attempt(ctx, in)
	return score
}

// retryingStrategy wraps a strategy with bounded exponential backoff.
type retryingStrategy struct {
	inner   Strategy
	retries int
	backoff time.Duration
}

func (r *retryingStrategy) Name() string { return r.inner.Name() }

func (r *retryingStrategy) Attempt(ctx context.Context, in *Input) (*model.AIScore, error) {
	delay := r.backoff
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		score, err := r.inner.Attempt(ctx, in)
		if err == nil {
			return score, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// clampScore forces model output into the documented ranges before anyone
// downstream sees it.
func clampScore(s *model.AIScore) *model.AIScore {
	if s.Score < 1 {
		s.Score = 1
	}
	if s.Score > 10 {
		s.Score = 10
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	for i := range s.Recommendations {
		if s.Recommendations[i].Confidence < 0 {
			s.Recommendations[i].Confidence = 0
		}
		if s.Recommendations[i].Confidence > 1 {
			s.Recommendations[i].Confidence = 1
		}
	}
	return s
}
