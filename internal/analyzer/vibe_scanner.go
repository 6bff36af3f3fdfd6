package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// secretPatterns match credential material that should never reach client
// markup. Each pattern is anchored to a recognizable prefix so ordinary
// hex strings and hashes do not trip it.
var secretPatterns = []struct {
	name     string
	severity model.Severity
	re       *regexp.Regexp
}{
	{"openai-api-key", model.SeverityCritical, regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"stripe-secret-key", model.SeverityCritical, regexp.MustCompile(`sk_live_[A-Za-z0-9]{10,}`)},
	{"aws-access-key", model.SeverityCritical, regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"github-token", model.SeverityCritical, regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{30,}`)},
	{"supabase-service-role", model.SeverityCritical, regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*c2VydmljZV9yb2xl[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+`)},
	{"private-key-block", model.SeverityCritical, regexp.MustCompile(`-----BEGIN (?:RSA |EC )?PRIVATE KEY-----`)},
	{"generic-secret-assignment", model.SeverityHigh, regexp.MustCompile(`(?i)(?:api[_-]?secret|secret[_-]?key|db[_-]?password)["']?\s*[:=]\s*["'][^"']{8,}["']`)},
}

// debugEndpoints are commonly left enabled by scaffolding tools.
var debugEndpoints = []struct {
	path     string
	severity model.Severity
	marker   string // substring that confirms the endpoint is real, empty = status alone
}{
	{"/api/debug", model.SeverityHigh, ""},
	{"/debug", model.SeverityMedium, ""},
	{"/__nextjs_original-stack-frame", model.SeverityMedium, ""},
	{"/graphql", model.SeverityMedium, "graphiql"},
	{"/api/graphql", model.SeverityMedium, "graphiql"},
	{"/phpinfo.php", model.SeverityHigh, "phpinfo"},
}

// scaffoldMarkers are default texts left behind when a generated app ships
// without review.
var scaffoldMarkers = []string{
	"welcome to next.js",
	"create react app",
	"edit src/app.js and save to reload",
	"it works!",
	"lorem ipsum",
	"made with lovable",
	"built with bolt",
	"vite + react",
}

// scriptSrcRe pulls absolute script URLs out of markup for source-map
// probing.
var scriptSrcRe = regexp.MustCompile(`https?://[^\s"'<>]+\.js`)

var verboseErrorMarkers = []string{
	"traceback (most recent call last)",
	"at object.<anonymous>",
	"ora-00",
	"syntax error near",
	"pg::error",
	"sqlstate[",
	"unhandled runtime error",
}

// VibeScanner looks for the failure modes typical of rapidly generated
// applications: secrets pasted into client code, scaffolding leftovers,
// debug surfaces and client-side database config.
type VibeScanner struct {
	wc     interfaces.WebClient
	logger logging.Logger
}

func NewVibeScanner(wc interfaces.WebClient, logger logging.Logger) *VibeScanner {
	return &VibeScanner{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "vibe-scanner"}),
	}
}

// Analyze never fails; probes that error are recorded as untested.
func (v *VibeScanner) Analyze(ctx context.Context, crawl *model.CrawlResult, security *model.SecurityData) *model.VibeReport {
	report := &model.VibeReport{}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("vibe scan panicked, returning partial result",
				logging.Field{Key: "panic", Value: r})
			report.Score = scoreFromFindings(report.Findings)
		}
	}()

	v.checkClientSecrets(crawl, report)
	v.checkScaffolding(crawl, report)
	v.checkVerboseErrors(crawl, report)
	v.checkClientDatabases(crawl, security, report)
	v.probeSourceMaps(ctx, crawl, report)
	v.probeDebugEndpoints(ctx, crawl, report)

	report.Score = scoreFromFindings(report.Findings)
	v.logger.Info("vibe scan finished",
		logging.Field{Key: "findings", Value: len(report.Findings)},
		logging.Field{Key: "score", Value: report.Score})
	return report
}

func (v *VibeScanner) checkClientSecrets(crawl *model.CrawlResult, report *model.VibeReport) {
	corpus := crawl.HTML
	for _, page := range crawl.Pages {
		corpus += "\n" + page.HTML
	}
	found := false
	for _, pat := range secretPatterns {
		match := pat.re.FindString(corpus)
		if match == "" {
			continue
		}
		found = true
		report.Findings = append(report.Findings, newFinding("vibe-scanner",
			"exposed-secret",
			fmt.Sprintf("Credential material in client code (%s)", pat.name),
			pat.severity, "secrets", redactSecret(match), 0.85))
	}
	if found {
		report.Checks = append(report.Checks, failed("client-secrets", "credential-like strings found in markup"))
	} else {
		report.Checks = append(report.Checks, passed("client-secrets", "no credential-like strings in markup"))
	}
}

// redactSecret keeps enough of the match to locate it without republishing
// the credential.
func redactSecret(s string) string {
	if len(s) <= 12 {
		return s[:4] + "..."
	}
	return s[:8] + "..." + s[len(s)-4:]
}

func (v *VibeScanner) checkScaffolding(crawl *model.CrawlResult, report *model.VibeReport) {
	lower := strings.ToLower(crawl.HTML)
	for _, marker := range scaffoldMarkers {
		if strings.Contains(lower, marker) {
			report.Findings = append(report.Findings, newFinding("vibe-scanner",
				"scaffold-leftover",
				"Default scaffolding text shipped to production",
				model.SeverityLow, "hygiene", fmt.Sprintf("page contains %q", marker), 0.8))
		}
	}
}

func (v *VibeScanner) checkVerboseErrors(crawl *model.CrawlResult, report *model.VibeReport) {
	pages := append([]model.Page{{URL: crawl.FinalURL, HTML: crawl.HTML}}, crawl.Pages...)
	for _, page := range pages {
		lower := strings.ToLower(page.HTML)
		for _, marker := range verboseErrorMarkers {
			if strings.Contains(lower, marker) {
				report.Findings = append(report.Findings, newFinding("vibe-scanner",
					"verbose-error-output",
					"Stack trace or database error rendered to visitors",
					model.SeverityMedium, "information-disclosure",
					fmt.Sprintf("%s contains %q", page.URL, marker), 0.75))
				break
			}
		}
	}
}

// checkClientDatabases flags backend-as-a-service config visible in the
// client. The config itself is expected to be public for these products;
// the finding is informational pressure to verify row-level rules exist.
func (v *VibeScanner) checkClientDatabases(crawl *model.CrawlResult, security *model.SecurityData, report *model.VibeReport) {
	lower := strings.ToLower(crawl.HTML)
	baas := map[string]string{
		"supabase": ".supabase.co",
		"firebase": "firebaseio.com",
	}
	for name, marker := range baas {
		if strings.Contains(lower, marker) {
			report.Findings = append(report.Findings, newFinding("vibe-scanner",
				"client-side-database",
				fmt.Sprintf("Client-accessible %s database in use", name),
				model.SeverityLow, "architecture",
				fmt.Sprintf("%s endpoint referenced in markup; access rules were not verified", name), 0.6))
		}
	}
	_ = security
}

// probeSourceMaps requests the .map sibling of each first-party script.
func (v *VibeScanner) probeSourceMaps(ctx context.Context, crawl *model.CrawlResult, report *model.VibeReport) {
	scripts := scriptSrcRe.FindAllString(crawl.HTML, 20)
	probed := 0
	for _, src := range scripts {
		if probed >= 5 {
			break
		}
		probed++
		resp, err := v.wc.Get(ctx, src+".map")
		if err != nil {
			continue
		}
		if resp.StatusCode == 200 && strings.Contains(string(resp.Body), `"sourcesContent"`) {
			report.Findings = append(report.Findings, newFinding("vibe-scanner",
				"exposed-source-map",
				"Source map with original sources publicly served",
				model.SeverityMedium, "information-disclosure", src+".map", 0.9))
		}
	}
	if probed == 0 {
		report.Checks = append(report.Checks, untested("source-maps", "no probeable first-party scripts"))
	} else {
		report.Checks = append(report.Checks, passed("source-maps", fmt.Sprintf("probed %d script source maps", probed)))
	}
}

func (v *VibeScanner) probeDebugEndpoints(ctx context.Context, crawl *model.CrawlResult, report *model.VibeReport) {
	root, err := utils.NewURLTools(crawl.FinalURL)
	if err != nil {
		report.Checks = append(report.Checks, untested("debug-endpoints", "could not derive origin"))
		return
	}
	origin := root.URL.Scheme + "://" + root.URL.Host

	for _, ep := range debugEndpoints {
		select {
		case <-ctx.Done():
			return
		default:
		}
		resp, err := v.wc.Do(ctx, &model.Request{
			Method:  "GET",
			URL:     origin + ep.path,
			Options: map[string]string{"no_redirect": "true"},
		})
		if err != nil || resp.StatusCode != 200 {
			continue
		}
		if ep.marker != "" && !strings.Contains(strings.ToLower(string(resp.Body)), ep.marker) {
			continue
		}
		if ep.marker == "" && looksLikeHTMLErrorPage(resp.Body) {
			continue
		}
		report.Findings = append(report.Findings, newFinding("vibe-scanner",
			"debug-endpoint",
			fmt.Sprintf("Debug surface reachable at %s", ep.path),
			ep.severity, "configuration", fmt.Sprintf("%s%s returned 200", origin, ep.path), 0.7))
	}
}
