package aiscore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// RuleBasedScorer is the terminal rung of the ladder. It is deterministic
// and cannot fail, so every scan ends with a score even when no model is
// reachable.
type RuleBasedScorer struct{}

func (r *RuleBasedScorer) Name() string { return "rule-based" }

func (r *RuleBasedScorer) Attempt(_ context.Context, in *Input) (*model.AIScore, error) {
	c := in.Counts
	raw := 10 - 3*float64(c.Critical) - 1.5*float64(c.High) - 0.5*float64(c.Medium) - 0.1*float64(c.Low)
	score := math.Round(math.Min(10, math.Max(1, raw)))

	return &model.AIScore{
		Score:           score,
		Confidence:      0.5,
		Summary:         ruleSummary(in, score),
		Recommendations: topRecommendations(in.Findings),
		RuleBased:       true,
	}, nil
}

func ruleSummary(in *Input, score float64) string {
	c := in.Counts
	if c.Total() == 0 {
		return fmt.Sprintf("No security findings were identified for %s. The automated checks that ran came back clean, though absence of findings is not proof of absence of issues.", in.URL)
	}
	return fmt.Sprintf("Automated assessment of %s identified %d findings (%d critical, %d high, %d medium, %d low), resulting in a score of %.0f out of 10. Address the highest-severity items first.",
		in.URL, c.Total(), c.Critical, c.High, c.Medium, c.Low, score)
}

// topRecommendations promotes the five most severe findings into
// remediation items at a fixed moderate confidence.
func topRecommendations(findings []model.Finding) []model.Recommendation {
	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.MoreSevere(sorted[j].Severity)
	})

	var recs []model.Recommendation
	for _, f := range sorted {
		if len(recs) == 5 {
			break
		}
		recs = append(recs, model.Recommendation{
			Title:      "Fix: " + f.Title,
			Detail:     f.Description,
			Priority:   string(f.Severity),
			Confidence: 0.7,
		})
	}
	return recs
}
