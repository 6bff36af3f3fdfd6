package model

import "time"

// CheckResult is a single verdict within an analyzer sub-report. Tested is
// false when the check was inapplicable or evidence could not be gathered;
// Passed is meaningful only when Tested is true.
type CheckResult struct {
	Name     string `json:"name"`
	Tested   bool   `json:"tested"`
	Passed   bool   `json:"passed"`
	Evidence string `json:"evidence,omitempty"`
}

// VulnReport is the VulnerabilityScanner sub-report. Score is 0-100.
type VulnReport struct {
	Findings []Finding     `json:"findings,omitempty"`
	Checks   []CheckResult `json:"checks,omitempty"`
	Score    int           `json:"score"`
}

// CategoryScore is one weighted category inside the deep security report.
// Weight is the effective weight after any redistribution; weights of tested
// and untested-redistributed categories always sum to 100.
type CategoryScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // 0-100
	Weight float64 `json:"weight"` // percentage, effective
	Tested bool    `json:"tested"`
}

// DeepSecurityReport combines behavioral tests, auth hardening review and
// claim verification into one weighted score.
type DeepSecurityReport struct {
	Categories     []CategoryScore `json:"categories"`
	CSRFProtection CheckResult     `json:"csrf_protection"`
	RateLimiting   RateLimitResult `json:"rate_limiting"`
	Findings       []Finding       `json:"findings,omitempty"`
	Score          int             `json:"score"` // 0-100, weighted
}

// VibeReport is the VibeCodingVulnerabilityScanner sub-report: failure modes
// typical of rapidly generated applications. Score is 0-100.
type VibeReport struct {
	Findings []Finding     `json:"findings,omitempty"`
	Checks   []CheckResult `json:"checks,omitempty"`
	Score    int           `json:"score"`
}

// SecurityClaim is a marketing claim about security posture extracted from
// page copy, later verified against observed behavior.
type SecurityClaim struct {
	Claim    string `json:"claim"`
	Source   string `json:"source,omitempty"`
	Verified bool   `json:"verified"`
	Evidence string `json:"evidence,omitempty"`
}

// CopyReport is the CopyAnalyzer sub-report. Score is 0-100.
type CopyReport struct {
	WordCount      int             `json:"word_count"`
	ReadingEase    float64         `json:"reading_ease"`
	SecurityClaims []SecurityClaim `json:"security_claims,omitempty"`
	Issues         []string        `json:"issues,omitempty"`
	Score          int             `json:"score"`
}

// SEOReport is the SEOAnalyzer sub-report. Score is 0-100.
type SEOReport struct {
	Title          string        `json:"title,omitempty"`
	MetaDesc       string        `json:"meta_description,omitempty"`
	Checks         []CheckResult `json:"checks,omitempty"`
	MissingAltTags int           `json:"missing_alt_tags"`
	Score          int           `json:"score"`
}

// Recommendation is an actionable remediation step in the final report.
type Recommendation struct {
	Title      string  `json:"title"`
	Detail     string  `json:"detail,omitempty"`
	Priority   string  `json:"priority,omitempty"`
	Confidence float64 `json:"confidence"` // 0-1
}

// AIScore is the narrative scoring output, whether produced by a model or by
// the deterministic fallback. Score is 1-10, Confidence 0-1; both are clamped
// before acceptance.
type AIScore struct {
	Score           float64           `json:"score"`
	Confidence      float64           `json:"confidence"`
	Summary         string            `json:"summary"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
	Explanations    map[string]string `json:"explanations,omitempty"` // finding type -> plain-language note
	Model           string            `json:"model,omitempty"`
	RuleBased       bool              `json:"rule_based"`
}

// TechStackSummary is the human-facing tech/auth context in the report.
// Fields are never empty strings; unknown values carry an inferred
// placeholder such as "Not detected".
type TechStackSummary struct {
	Framework string `json:"framework"`
	Hosting   string `json:"hosting"`
	CMS       string `json:"cms"`
	AuthModel string `json:"auth_model"`
}

// Report is the terminal aggregate for a completed job. Written once, then
// immutable.
type Report struct {
	JobID        string              `json:"job_id"`
	URL          string              `json:"url"`
	OverallScore float64             `json:"overall_score"` // 1-10
	Summary      string              `json:"summary"`
	AI           *AIScore            `json:"ai,omitempty"`
	Findings     []Finding           `json:"findings,omitempty"`
	Counts       SeverityCounts      `json:"counts"`
	TechStack    TechStackSummary    `json:"tech_stack"`
	Security     *SecurityData       `json:"security,omitempty"`
	Vulns        *VulnReport         `json:"vulnerabilities,omitempty"`
	DeepSecurity *DeepSecurityReport `json:"deep_security,omitempty"`
	VibeCheck    *VibeReport         `json:"vibe_check,omitempty"`
	Copy         *CopyReport         `json:"copy,omitempty"`
	SEO          *SEOReport          `json:"seo,omitempty"`
	Duration     time.Duration       `json:"duration_ns"`
	Version      string              `json:"version"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// ReportPreview is the redacted view served before identity verification:
// counts and categories only, no evidence or recommendation text.
type ReportPreview struct {
	JobID        string         `json:"job_id"`
	URL          string         `json:"url"`
	OverallScore float64        `json:"overall_score"`
	Counts       SeverityCounts `json:"counts"`
	Categories   []string       `json:"categories,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Preview derives the redacted subset from a full report.
func (r *Report) Preview() *ReportPreview {
	seen := map[string]bool{}
	var cats []string
	for _, f := range r.Findings {
		if f.Category != "" && !seen[f.Category] {
			seen[f.Category] = true
			cats = append(cats, f.Category)
		}
	}
	return &ReportPreview{
		JobID:        r.JobID,
		URL:          r.URL,
		OverallScore: r.OverallScore,
		Counts:       r.Counts,
		Categories:   cats,
		GeneratedAt:  r.GeneratedAt,
	}
}
