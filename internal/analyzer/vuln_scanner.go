package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// requiredSecurityHeaders are checked on the landing response. CSP carries a
// higher severity than the rest.
var requiredSecurityHeaders = []string{
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Strict-Transport-Security",
	"Referrer-Policy",
}

// sensitivePaths are non-destructive GET probes for files that should never
// be reachable.
var sensitivePaths = []struct {
	path     string
	title    string
	severity model.Severity
}{
	{"/.env", "Environment file exposed", model.SeverityCritical},
	{"/.git/config", "Git repository metadata exposed", model.SeverityCritical},
	{"/config.json", "Configuration file exposed", model.SeverityHigh},
	{"/backup.sql", "Database backup exposed", model.SeverityCritical},
	{"/.DS_Store", "Directory metadata exposed", model.SeverityLow},
	{"/server-status", "Server status page exposed", model.SeverityMedium},
}

// VulnerabilityScanner runs the baseline heuristic checks: header hygiene,
// cookie flags, transport security, sensitive-file exposure and CORS
// misconfiguration.
type VulnerabilityScanner struct {
	wc     interfaces.WebClient
	logger logging.Logger
}

// NewVulnerabilityScanner constructs the scanner with an injected client for
// its exposure probes.
func NewVulnerabilityScanner(wc interfaces.WebClient, logger logging.Logger) *VulnerabilityScanner {
	return &VulnerabilityScanner{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "vuln-scanner"}),
	}
}

// Analyze never fails; probe errors degrade to untested checks.
func (v *VulnerabilityScanner) Analyze(ctx context.Context, collection *model.CollectionResult) *model.VulnReport {
	report := &model.VulnReport{}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("vulnerability scan panicked, returning partial result",
				logging.Field{Key: "panic", Value: r})
		}
	}()

	crawl := collection.Crawl
	if crawl == nil {
		report.Checks = append(report.Checks, untested("security-headers", "no crawl data available"))
		report.Score = scoreFromFindings(report.Findings)
		return report
	}

	v.checkHeaders(crawl, report)
	v.checkTransport(crawl, collection.Security, report)
	v.checkCookies(collection.Security, report)
	v.checkMixedContent(crawl, report)
	v.checkCORS(crawl, report)
	v.probeSensitiveFiles(ctx, crawl, report)

	report.Score = scoreFromFindings(report.Findings)

	v.logger.Info("vulnerability scan finished",
		logging.Field{Key: "findings", Value: len(report.Findings)},
		logging.Field{Key: "score", Value: report.Score})

	return report
}

func (v *VulnerabilityScanner) checkHeaders(crawl *model.CrawlResult, report *model.VulnReport) {
	for _, header := range requiredSecurityHeaders {
		if crawl.Headers.Get(header) != "" {
			report.Checks = append(report.Checks, passed("header:"+header, crawl.Headers.Get(header)))
			continue
		}
		severity := model.SeverityLow
		if header == "Content-Security-Policy" || header == "Strict-Transport-Security" {
			severity = model.SeverityMedium
		}
		report.Checks = append(report.Checks, failed("header:"+header, "header not present"))
		report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
			"missing-header-"+strings.ToLower(header),
			"Missing security header: "+header,
			severity, "headers", "header not present on "+crawl.FinalURL, 0.95))
	}

	if server := crawl.Headers.Get("Server"); strings.ContainsAny(server, "0123456789") {
		report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
			"server-version-disclosure",
			"Server version disclosed",
			model.SeverityLow, "headers", "Server: "+server, 0.9))
	}
}

func (v *VulnerabilityScanner) checkTransport(crawl *model.CrawlResult, security *model.SecurityData, report *model.VulnReport) {
	if security != nil && !security.UsesHTTPS {
		report.Checks = append(report.Checks, failed("https", "final URL is plain http"))
		report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
			"no-https",
			"Site served over plain HTTP",
			model.SeverityCritical, "transport", crawl.FinalURL, 1.0))
		return
	}
	report.Checks = append(report.Checks, passed("https", "final URL uses https"))
}

func (v *VulnerabilityScanner) checkCookies(security *model.SecurityData, report *model.VulnReport) {
	if security == nil || len(security.Cookies) == 0 {
		report.Checks = append(report.Checks, untested("cookie-flags", "no cookies observed"))
		return
	}
	for _, cookie := range security.Cookies {
		if !cookie.Secure {
			report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
				"cookie-missing-secure",
				fmt.Sprintf("Cookie %q lacks Secure flag", cookie.Name),
				model.SeverityMedium, "cookies", "cookie "+cookie.Name, 0.9))
		}
		if !cookie.HTTPOnly {
			report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
				"cookie-missing-httponly",
				fmt.Sprintf("Cookie %q lacks HttpOnly flag", cookie.Name),
				model.SeverityLow, "cookies", "cookie "+cookie.Name, 0.9))
		}
	}
	report.Checks = append(report.Checks, passed("cookie-flags", fmt.Sprintf("%d cookies inspected", len(security.Cookies))))
}

func (v *VulnerabilityScanner) checkMixedContent(crawl *model.CrawlResult, report *model.VulnReport) {
	if !strings.HasPrefix(crawl.FinalURL, "https://") {
		report.Checks = append(report.Checks, untested("mixed-content", "site not served over https"))
		return
	}
	if strings.Contains(crawl.HTML, `src="http://`) || strings.Contains(crawl.HTML, `href="http://`) {
		report.Checks = append(report.Checks, failed("mixed-content", "http:// sub-resources on https page"))
		report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
			"mixed-content",
			"Mixed content: insecure sub-resources on HTTPS page",
			model.SeverityMedium, "transport", crawl.FinalURL, 0.85))
		return
	}
	report.Checks = append(report.Checks, passed("mixed-content", "no insecure sub-resources found"))
}

func (v *VulnerabilityScanner) checkCORS(crawl *model.CrawlResult, report *model.VulnReport) {
	origin := crawl.Headers.Get("Access-Control-Allow-Origin")
	creds := crawl.Headers.Get("Access-Control-Allow-Credentials")
	if origin == "*" && strings.EqualFold(creds, "true") {
		report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
			"cors-wildcard-credentials",
			"CORS allows any origin with credentials",
			model.SeverityHigh, "headers",
			"Access-Control-Allow-Origin: * with Access-Control-Allow-Credentials: true", 0.95))
	}
}

func (v *VulnerabilityScanner) probeSensitiveFiles(ctx context.Context, crawl *model.CrawlResult, report *model.VulnReport) {
	root, err := utils.NewURLTools(crawl.FinalURL)
	if err != nil {
		report.Checks = append(report.Checks, untested("sensitive-files", "could not derive origin"))
		return
	}
	origin := root.URL.Scheme + "://" + root.URL.Host

	probed := 0
	for _, probe := range sensitivePaths {
		resp, err := v.wc.Get(ctx, origin+probe.path)
		if err != nil {
			continue
		}
		probed++
		if resp.StatusCode == http.StatusOK && len(resp.Body) > 0 && !looksLikeHTMLErrorPage(resp.Body) {
			report.Findings = append(report.Findings, newFinding("vulnerability-scanner",
				"exposed"+strings.ReplaceAll(probe.path, "/", "-"),
				probe.title,
				probe.severity, "exposure",
				fmt.Sprintf("%s%s returned 200 (%d bytes)", origin, probe.path, len(resp.Body)), 0.8))
		}
	}
	if probed == 0 {
		report.Checks = append(report.Checks, untested("sensitive-files", "all probes failed"))
		return
	}
	report.Checks = append(report.Checks, passed("sensitive-files", fmt.Sprintf("%d paths probed", probed)))
}

// looksLikeHTMLErrorPage filters SPAs that return their shell for any path:
// a 200 with a full HTML document is not evidence of an exposed file.
func looksLikeHTMLErrorPage(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 256)]))
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}
