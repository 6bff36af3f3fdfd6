// Package pipeline runs the scan: collection, analysis, scoring and report
// assembly, with progress checkpoints written to the job store and mirrored
// onto the event bus. The same run path backs both queued and inline
// execution.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/aiscore"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/analyzer"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/authflow"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/crawler"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/extractor"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/report"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
)

// Progress checkpoints. Clients depend on these exact values to render
// stage UI, so they are constants rather than derived.
const (
	progressStart         = 3
	progressDiscoveryDone = 22
	progressContentDone   = 38
	progressAuthDone      = 42
	progressScanningDone  = 78
	progressAIDone        = 88
	progressComplete      = 100
)

// Config controls orchestrator construction.
type Config struct {
	Crawler crawler.Config
	Deep    analyzer.DeepConfig
	AI      aiscore.Config
}

func DefaultConfig() Config {
	return Config{
		Crawler: crawler.DefaultConfig(),
		Deep:    analyzer.DefaultDeepConfig(),
		AI:      aiscore.DefaultConfig(),
	}
}

// Orchestrator owns one scan at a time per Run call; it is safe for
// concurrent Run calls on distinct jobs.
type Orchestrator struct {
	jobs      *store.JobStateStore
	bus       interfaces.Bus
	assembler *report.Assembler

	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	postAuth  *authflow.PostAuthDiscoverer
	authCrawl *authflow.AuthenticatedCrawler

	vulnScan *analyzer.VulnerabilityScanner
	deepScan *analyzer.DeepSecurityAnalyzer
	vibeScan *analyzer.VibeScanner
	copyScan *analyzer.CopyAnalyzer
	seoScan  *analyzer.SEOAnalyzer

	scorer *aiscore.Agent
	logger logging.Logger
}

// New wires every agent against the shared web client and stores.
func New(cfg Config, wc interfaces.WebClient, jobs *store.JobStateStore, reports *store.ReportStore, bus interfaces.Bus, logger logging.Logger) *Orchestrator {
	log := logger.With(logging.Field{Key: "component", Value: "orchestrator"})
	return &Orchestrator{
		jobs:      jobs,
		bus:       bus,
		assembler: report.NewAssembler(reports, jobs, logger),
		crawler:   crawler.New(cfg.Crawler, wc, logger),
		extractor: extractor.New(logger),
		postAuth:  authflow.NewPostAuthDiscoverer(wc, logger),
		authCrawl: authflow.NewAuthenticatedCrawler(wc, logger),
		vulnScan:  analyzer.NewVulnerabilityScanner(wc, logger),
		deepScan:  analyzer.NewDeepSecurityAnalyzer(cfg.Deep, logger),
		vibeScan:  analyzer.NewVibeScanner(wc, logger),
		copyScan:  analyzer.NewCopyAnalyzer(logger),
		seoScan:   analyzer.NewSEOAnalyzer(logger),
		scorer:    aiscore.NewAgent(cfg.AI, logger),
		logger:    log,
	}
}

// Run executes the full pipeline for one job. Credentials may be nil. The
// returned error is non-nil only when the job failed; the failure has
// already been written to the job record by the time Run returns.
func (o *Orchestrator) Run(ctx context.Context, jobID, targetURL string, creds *model.Credentials) error {
	startedAt := time.Now().UTC()
	if job, err := o.jobs.Get(ctx, jobID); err == nil && job != nil {
		startedAt = job.CreatedAt
	}

	o.publish(jobID, model.EventStarted, 0, "", "")
	o.checkpoint(ctx, jobID, model.JobScanning, progressStart, "discovery", "Fetching and crawling the target")

	// Initial crawl is the only stage-fatal step: with no page there is
	// nothing to analyze.
	crawl, err := o.crawler.Crawl(ctx, targetURL)
	if err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("site could not be reached: %w", err))
	}
	o.checkpoint(ctx, jobID, model.JobScanning, progressDiscoveryDone, "discovery", "Site structure mapped")

	collection := &model.CollectionResult{Crawl: crawl}
	collection.Security = o.extractor.Extract(crawl)

	// Post-extraction trio: surface probing plus the two content analyzers
	// run concurrently; none of them can fail the job.
	var seoReport *model.SEOReport
	var copyReport *model.CopyReport
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		collection.PostAuth = o.postAuth.Discover(ctx, crawl.FinalURL)
	}()
	go func() {
		defer wg.Done()
		seoReport = o.seoScan.Analyze(ctx, crawl)
	}()
	go func() {
		defer wg.Done()
		copyReport = o.copyScan.Analyze(ctx, crawl)
	}()
	wg.Wait()
	o.checkpoint(ctx, jobID, model.JobScanning, progressContentDone, "content", "Content and surface analysis finished")

	if !creds.Empty() {
		o.checkpoint(ctx, jobID, model.JobAuthenticating, progressContentDone, "auth", "Testing authentication flow")
		collection.AuthTest = o.authCrawl.Run(ctx, crawl.FinalURL, creds, collection.Security, collection.PostAuth)
	}
	o.checkpoint(ctx, jobID, model.JobAnalyzing, progressAuthDone, "auth", "Authentication stage finished")

	// Security analyzer trio. Sibling failures cannot propagate: each
	// analyzer recovers its own panics and always returns a report.
	var vulnReport *model.VulnReport
	var deepReport *model.DeepSecurityReport
	var vibeReport *model.VibeReport
	wg.Add(3)
	go func() {
		defer wg.Done()
		vulnReport = o.vulnScan.Analyze(ctx, collection)
	}()
	go func() {
		defer wg.Done()
		deepReport = o.deepScan.Analyze(ctx, collection, copyReport)
	}()
	go func() {
		defer wg.Done()
		vibeReport = o.vibeScan.Analyze(ctx, crawl, collection.Security)
	}()
	wg.Wait()
	o.checkpoint(ctx, jobID, model.JobAnalyzing, progressScanningDone, "security", "Security scanning finished")

	findings := mergeFindings(vulnReport, deepReport, vibeReport)

	o.checkpoint(ctx, jobID, model.JobGenerating, progressScanningDone, "scoring", "Scoring results")
	aiResult := o.scorer.Score(ctx, &aiscore.Input{
		URL:          targetURL,
		Findings:     findings,
		Counts:       model.CountBySeverity(findings),
		SecurityData: collection.Security,
		Vulns:        vulnReport,
		DeepSecurity: deepReport,
		VibeCheck:    vibeReport,
		Copy:         copyReport,
		SEO:          seoReport,
	})
	o.checkpoint(ctx, jobID, model.JobGenerating, progressAIDone, "scoring", "Scoring finished")

	rpt := o.assembler.Assemble(&report.Inputs{
		JobID:      jobID,
		URL:        targetURL,
		StartedAt:  startedAt,
		Collection: collection,
		Vulns:      vulnReport,
		Deep:       deepReport,
		Vibe:       vibeReport,
		Copy:       copyReport,
		SEO:        seoReport,
		Findings:   findings,
		AI:         aiResult,
	})
	if err := o.assembler.Persist(ctx, rpt); err != nil {
		return o.fail(ctx, jobID, err)
	}

	o.publish(jobID, model.EventProgress, progressComplete, "completed", "Scan complete")
	o.bus.Publish(jobID, model.AgentEvent{
		Type:      model.EventCompleted,
		Agent:     "orchestrator",
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Result:    rpt.Preview(),
	})

	o.logger.Info("scan completed",
		logging.Field{Key: "job_id", Value: jobID},
		logging.Field{Key: "url", Value: targetURL},
		logging.Field{Key: "duration", Value: time.Since(startedAt).String()})
	return nil
}

// checkpoint writes progress to the job record and mirrors it on the bus.
func (o *Orchestrator) checkpoint(ctx context.Context, jobID string, status model.JobStatus, progress int, stage, message string) {
	if _, err := o.jobs.Upsert(ctx, jobID, model.JobPatch{
		Status:       &status,
		Progress:     &progress,
		CurrentStage: &stage,
		StageMessage: &message,
	}); err != nil {
		o.logger.Error("progress write failed",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "error", Value: err.Error()})
	}
	o.publish(jobID, model.EventProgress, progress, stage, message)
}

func (o *Orchestrator) publish(jobID string, typ model.AgentEventType, progress int, stage, message string) {
	o.bus.Publish(jobID, model.AgentEvent{
		Type:      typ,
		Agent:     "orchestrator",
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Progress:  progress,
		Stage:     stage,
		Message:   message,
	})
}

// fail marks the job failed with a flat error string and emits the terminal
// event. Always returns err for the caller to propagate.
func (o *Orchestrator) fail(ctx context.Context, jobID string, err error) error {
	failedStatus := model.JobFailed
	msg := err.Error()
	if _, uerr := o.jobs.Upsert(ctx, jobID, model.JobPatch{
		Status: &failedStatus,
		Error:  &msg,
	}); uerr != nil {
		o.logger.Error("failure write failed",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "error", Value: uerr.Error()})
	}
	o.bus.Publish(jobID, model.AgentEvent{
		Type:      model.EventFailed,
		Agent:     "orchestrator",
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
	o.logger.Error("scan failed",
		logging.Field{Key: "job_id", Value: jobID},
		logging.Field{Key: "error", Value: msg})
	return err
}

func mergeFindings(vuln *model.VulnReport, deep *model.DeepSecurityReport, vibe *model.VibeReport) []model.Finding {
	var findings []model.Finding
	if vuln != nil {
		findings = append(findings, vuln.Findings...)
	}
	if deep != nil {
		findings = append(findings, deep.Findings...)
	}
	if vibe != nil {
		findings = append(findings, vibe.Findings...)
	}
	return findings
}
