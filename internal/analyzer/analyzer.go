// Package analyzer holds the analysis agents. Every agent follows the same
// contract: it consumes the immutable collection output, never returns an
// error, and computes its sub-score only from evidence it actually observed.
// Checks that could not run are recorded as untested rather than guessed.
package analyzer

import (
	"github.com/google/uuid"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// severityPenalty is the score deduction per finding, applied against a
// 100-point baseline.
var severityPenalty = map[model.Severity]int{
	model.SeverityCritical: 25,
	model.SeverityHigh:     15,
	model.SeverityMedium:   8,
	model.SeverityLow:      3,
	model.SeverityInfo:     0,
}

// scoreFromFindings computes a 0-100 sub-score from a 100-point baseline.
func scoreFromFindings(findings []model.Finding) int {
	score := 100
	for _, f := range findings {
		score -= severityPenalty[f.Severity]
	}
	if score < 0 {
		score = 0
	}
	return score
}

// newFinding builds a finding with a fresh ID.
func newFinding(analyzer, findingType, title string, severity model.Severity, category, evidence string, confidence float64) model.Finding {
	return model.Finding{
		ID:         uuid.New().String(),
		Type:       findingType,
		Title:      title,
		Severity:   severity,
		Category:   category,
		Evidence:   evidence,
		Confidence: confidence,
		Analyzer:   analyzer,
	}
}

// passed and failed build CheckResults for exercised checks; untested records
// a check that could not run.
func passed(name, evidence string) model.CheckResult {
	return model.CheckResult{Name: name, Tested: true, Passed: true, Evidence: evidence}
}

func failed(name, evidence string) model.CheckResult {
	return model.CheckResult{Name: name, Tested: true, Passed: false, Evidence: evidence}
}

func untested(name, evidence string) model.CheckResult {
	return model.CheckResult{Name: name, Tested: false, Evidence: evidence}
}
