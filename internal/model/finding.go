package model

// Severity buckets findings for scoring and display.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities for sorting, highest first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// MoreSevere reports whether s ranks above other.
func (s Severity) MoreSevere(other Severity) bool {
	return severityRank[s] < severityRank[other]
}

// Finding is one detected issue. Type is a stable machine identifier
// (e.g. "missing-csp", "exposed-env-file") used to cross-reference AI
// explanations during report assembly.
type Finding struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"` // "headers" | "cookies" | "exposure" | "auth" | "content" | ...
	Description string   `json:"description,omitempty"`
	Evidence    string   `json:"evidence,omitempty"`
	Confidence  float64  `json:"confidence"` // 0-1
	Analyzer    string   `json:"analyzer,omitempty"`

	// Explanation is a plain-language annotation filled in by the report
	// assembler from AI output when available.
	Explanation string `json:"explanation,omitempty"`
}

// SeverityCounts tallies findings by severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the sum across all buckets.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// CountBySeverity tallies the given findings.
func CountBySeverity(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		default:
			c.Info++
		}
	}
	return c
}
