// Package report assembles the terminal report for a finished scan and
// performs the final persistence writes.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
)

// Version is stamped into every generated report.
const Version = "1.0"

// Inputs carries everything the assembler merges.
type Inputs struct {
	JobID      string
	URL        string
	StartedAt  time.Time
	Collection *model.CollectionResult
	Vulns      *model.VulnReport
	Deep       *model.DeepSecurityReport
	Vibe       *model.VibeReport
	Copy       *model.CopyReport
	SEO        *model.SEOReport
	Findings   []model.Finding
	AI         *model.AIScore
}

// Assembler merges analysis output into one report, writes it to both
// storage tiers and records job completion.
type Assembler struct {
	reports *store.ReportStore
	jobs    *store.JobStateStore
	logger  logging.Logger
}

func NewAssembler(reports *store.ReportStore, jobs *store.JobStateStore, logger logging.Logger) *Assembler {
	return &Assembler{
		reports: reports,
		jobs:    jobs,
		logger:  logger.With(logging.Field{Key: "component", Value: "report-assembler"}),
	}
}

// Assemble builds the report without persisting it.
func (a *Assembler) Assemble(in *Inputs) *model.Report {
	findings := annotate(in.Findings, in.AI)

	var security *model.SecurityData
	if in.Collection != nil {
		security = in.Collection.Security
	}

	rpt := &model.Report{
		JobID:        in.JobID,
		URL:          in.URL,
		Summary:      in.AI.Summary,
		OverallScore: in.AI.Score,
		AI:           in.AI,
		Findings:     findings,
		Counts:       model.CountBySeverity(findings),
		TechStack:    summarizeTechStack(in.Collection),
		Security:     security,
		Vulns:        in.Vulns,
		DeepSecurity: in.Deep,
		VibeCheck:    in.Vibe,
		Copy:         in.Copy,
		SEO:          in.SEO,
		Duration:     time.Since(in.StartedAt),
		Version:      Version,
		GeneratedAt:  time.Now().UTC(),
	}
	return rpt
}

// Persist writes the report (cache tier authoritative, durable tier
// best-effort inside the store) and marks the job completed. The report key
// exists once and only once the job reaches completed.
func (a *Assembler) Persist(ctx context.Context, rpt *model.Report) error {
	if err := a.reports.Put(ctx, rpt); err != nil {
		return fmt.Errorf("storing report for job %s: %w", rpt.JobID, err)
	}

	completed := model.JobCompleted
	progress := 100
	stage := "completed"
	message := "Scan complete"
	now := time.Now().UTC()
	key := store.ReportKey(rpt.JobID)
	if _, err := a.jobs.Upsert(ctx, rpt.JobID, model.JobPatch{
		Status:       &completed,
		Progress:     &progress,
		CurrentStage: &stage,
		StageMessage: &message,
		CompletedAt:  &now,
		ReportKey:    &key,
	}); err != nil {
		return fmt.Errorf("marking job %s completed: %w", rpt.JobID, err)
	}

	a.logger.Info("report persisted",
		logging.Field{Key: "job_id", Value: rpt.JobID},
		logging.Field{Key: "score", Value: rpt.OverallScore},
		logging.Field{Key: "findings", Value: len(rpt.Findings)})
	return nil
}

// annotate copies findings, attaching AI explanations matched by finding
// type. The input slice is never mutated.
func annotate(findings []model.Finding, ai *model.AIScore) []model.Finding {
	out := make([]model.Finding, len(findings))
	copy(out, findings)
	if ai == nil || len(ai.Explanations) == 0 {
		return out
	}
	for i := range out {
		if note, ok := ai.Explanations[out[i].Type]; ok {
			out[i].Explanation = note
		}
	}
	return out
}

// summarizeTechStack folds detected technologies into the human-facing
// summary. Fields are never empty; unknowns carry a placeholder.
func summarizeTechStack(collection *model.CollectionResult) model.TechStackSummary {
	summary := model.TechStackSummary{
		Framework: "Not detected",
		Hosting:   "Not detected",
		CMS:       "Not detected",
		AuthModel: "No authentication detected",
	}
	if collection == nil || collection.Security == nil {
		return summary
	}

	for _, tech := range collection.Security.TechStack {
		switch tech.Category {
		case "framework":
			if summary.Framework == "Not detected" {
				summary.Framework = tech.Name
			}
		case "hosting":
			if summary.Hosting == "Not detected" {
				summary.Hosting = tech.Name
			}
		case "cms":
			if summary.CMS == "Not detected" {
				summary.CMS = tech.Name
			}
		}
	}

	summary.AuthModel = describeAuthModel(collection.Security.AuthFlow)
	return summary
}

func describeAuthModel(flow model.AuthFlow) string {
	var parts []string
	if flow.LoginForm != nil {
		parts = append(parts, "password login")
	}
	if len(flow.OAuthProviders) > 0 {
		names := make([]string, 0, len(flow.OAuthProviders))
		for _, p := range flow.OAuthProviders {
			names = append(names, p.Name)
		}
		parts = append(parts, "OAuth ("+strings.Join(names, ", ")+")")
	}
	if len(parts) == 0 {
		if flow.HasLogin {
			return "Login present, mechanism not determined"
		}
		return "No authentication detected"
	}
	return strings.Join(parts, " + ")
}
