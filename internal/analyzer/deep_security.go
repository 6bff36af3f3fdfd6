package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// Category names used in the deep security report.
const (
	CategorySecurityCopy = "security-copy-accuracy"
	CategoryAuth         = "authentication-hardening"
	CategoryBehavioral   = "behavioral-tests"
	CategoryClaims       = "claim-verification"
)

// DeepConfig carries the category weights. The defaults are product
// decisions, not invariants; the only hard requirement is that effective
// weights always sum to 100.
type DeepConfig struct {
	SecurityCopyWeight float64
	AuthWeight         float64
	BehavioralWeight   float64
	ClaimsWeight       float64
}

// DefaultDeepConfig returns the standard 25/35/25/15 split.
func DefaultDeepConfig() DeepConfig {
	return DeepConfig{
		SecurityCopyWeight: 25,
		AuthWeight:         35,
		BehavioralWeight:   25,
		ClaimsWeight:       15,
	}
}

// DeepSecurityAnalyzer combines security-copy accuracy, authentication
// hardening, behavioral test results and claim verification into one
// weighted score. When credentialed auth testing was not exercised, its
// weight is redistributed proportionally across the remaining categories so
// static targets are not penalized for an inapplicable category.
type DeepSecurityAnalyzer struct {
	cfg    DeepConfig
	logger logging.Logger
}

// NewDeepSecurityAnalyzer constructs the analyzer.
func NewDeepSecurityAnalyzer(cfg DeepConfig, logger logging.Logger) *DeepSecurityAnalyzer {
	// The no-auth branch rescales the non-auth weights, so those three must
	// carry positive weight on their own.
	if cfg.SecurityCopyWeight+cfg.BehavioralWeight+cfg.ClaimsWeight <= 0 {
		cfg = DefaultDeepConfig()
	}
	return &DeepSecurityAnalyzer{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "deep-security"}),
	}
}

// Analyze never fails. copyReport supplies the extracted security claims and
// may be nil.
func (d *DeepSecurityAnalyzer) Analyze(ctx context.Context, collection *model.CollectionResult, copyReport *model.CopyReport) *model.DeepSecurityReport {
	report := &model.DeepSecurityReport{}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("deep security analysis panicked, returning partial result",
				logging.Field{Key: "panic", Value: r})
		}
	}()

	report.CSRFProtection = d.csrfVerdict(collection.Security)
	if collection.AuthTest != nil {
		report.RateLimiting = collection.AuthTest.RateLimiting
	}

	authExercised := collection.AuthTest != nil && collection.AuthTest.Attempted

	copyScore := d.scoreSecurityCopy(collection, copyReport, report)
	behavioralScore := d.scoreBehavioral(collection, report)
	claimsScore := d.scoreClaims(collection, copyReport, report)

	var authScore float64
	if authExercised {
		authScore = d.scoreAuthHardening(collection, report)
	}

	report.Categories = d.weigh(authExercised, copyScore, authScore, behavioralScore, claimsScore)

	var total float64
	for _, cat := range report.Categories {
		if cat.Tested {
			total += cat.Score * cat.Weight / 100
		}
	}
	report.Score = int(total + 0.5)

	d.logger.Info("deep security analysis finished",
		logging.Field{Key: "score", Value: report.Score},
		logging.Field{Key: "auth_exercised", Value: authExercised})

	return report
}

// weigh produces the category list with effective weights. In the no-auth
// branch the auth weight is redistributed proportionally so tested weights
// still sum to exactly 100.
func (d *DeepSecurityAnalyzer) weigh(authExercised bool, copyScore, authScore, behavioralScore, claimsScore float64) []model.CategoryScore {
	if authExercised {
		return []model.CategoryScore{
			{Name: CategorySecurityCopy, Score: copyScore, Weight: d.cfg.SecurityCopyWeight, Tested: true},
			{Name: CategoryAuth, Score: authScore, Weight: d.cfg.AuthWeight, Tested: true},
			{Name: CategoryBehavioral, Score: behavioralScore, Weight: d.cfg.BehavioralWeight, Tested: true},
			{Name: CategoryClaims, Score: claimsScore, Weight: d.cfg.ClaimsWeight, Tested: true},
		}
	}

	remaining := d.cfg.SecurityCopyWeight + d.cfg.BehavioralWeight + d.cfg.ClaimsWeight
	scale := 100 / remaining
	return []model.CategoryScore{
		{Name: CategorySecurityCopy, Score: copyScore, Weight: d.cfg.SecurityCopyWeight * scale, Tested: true},
		{Name: CategoryAuth, Weight: 0, Tested: false},
		{Name: CategoryBehavioral, Score: behavioralScore, Weight: d.cfg.BehavioralWeight * scale, Tested: true},
		{Name: CategoryClaims, Score: claimsScore, Weight: d.cfg.ClaimsWeight * scale, Tested: true},
	}
}

// csrfVerdict: with zero forms there is nothing to test, so no pass/fail is
// fabricated.
func (d *DeepSecurityAnalyzer) csrfVerdict(security *model.SecurityData) model.CheckResult {
	if security == nil || len(security.Forms) == 0 {
		return untested("csrf-protection", "no forms detected")
	}

	postForms, tokenized := 0, 0
	for _, form := range security.Forms {
		if form.Method != "POST" {
			continue
		}
		postForms++
		if form.HasCSRFToken {
			tokenized++
		}
	}
	if postForms == 0 {
		return untested("csrf-protection", "no state-changing forms detected")
	}
	if tokenized == postForms {
		return passed("csrf-protection", fmt.Sprintf("all %d POST forms carry CSRF tokens", postForms))
	}
	return failed("csrf-protection", fmt.Sprintf("%d of %d POST forms lack CSRF tokens", postForms-tokenized, postForms))
}

// scoreSecurityCopy measures whether the page's security-related copy is
// consistent with observed behavior.
func (d *DeepSecurityAnalyzer) scoreSecurityCopy(collection *model.CollectionResult, copyReport *model.CopyReport, report *model.DeepSecurityReport) float64 {
	if copyReport == nil || len(copyReport.SecurityClaims) == 0 {
		return 100 // nothing claimed, nothing to contradict
	}

	contradicted := 0
	for _, claim := range copyReport.SecurityClaims {
		if claimContradicted(claim, collection) {
			contradicted++
			report.Findings = append(report.Findings, newFinding("deep-security",
				"contradicted-security-claim",
				"Security claim contradicted by observed behavior",
				model.SeverityMedium, "content",
				fmt.Sprintf("claim %q vs observed configuration", claim.Claim), 0.7))
		}
	}
	return 100 * float64(len(copyReport.SecurityClaims)-contradicted) / float64(len(copyReport.SecurityClaims))
}

// claimContradicted flags claims the observed configuration plainly refutes.
func claimContradicted(claim model.SecurityClaim, collection *model.CollectionResult) bool {
	lower := strings.ToLower(claim.Claim)
	if strings.Contains(lower, "encrypt") || strings.Contains(lower, "secure") {
		if collection.Security != nil && !collection.Security.UsesHTTPS {
			return true
		}
	}
	return false
}

// scoreAuthHardening is only invoked when credentialed testing ran.
func (d *DeepSecurityAnalyzer) scoreAuthHardening(collection *model.CollectionResult, report *model.DeepSecurityReport) float64 {
	authTest := collection.AuthTest
	score := 100.0

	if !authTest.RateLimiting.Protected && authTest.RateLimiting.Tested {
		score -= 40
		report.Findings = append(report.Findings, newFinding("deep-security",
			"no-login-rate-limiting",
			"Login endpoint accepts unlimited failed attempts",
			model.SeverityHigh, "auth", authTest.RateLimiting.Evidence, 0.9))
	}

	for _, cookie := range authTest.SessionCookies {
		if !cookie.Secure || !cookie.HTTPOnly {
			score -= 20
			report.Findings = append(report.Findings, newFinding("deep-security",
				"weak-session-cookie",
				fmt.Sprintf("Session cookie %q lacks Secure/HttpOnly", cookie.Name),
				model.SeverityHigh, "auth", "cookie "+cookie.Name, 0.9))
			break
		}
	}

	if report.CSRFProtection.Tested && !report.CSRFProtection.Passed {
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	return score
}

// scoreBehavioral is the pass rate over the behavioral observations that
// were actually made.
func (d *DeepSecurityAnalyzer) scoreBehavioral(collection *model.CollectionResult, report *model.DeepSecurityReport) float64 {
	var total, passedCount int

	observe := func(ok bool) {
		total++
		if ok {
			passedCount++
		}
	}

	if collection.Security != nil {
		observe(collection.Security.UsesHTTPS)
	}
	if collection.Crawl != nil {
		observe(collection.Crawl.Headers.Get("Strict-Transport-Security") != "")
		observe(collection.Crawl.Headers.Get("Content-Security-Policy") != "")
	}
	if collection.PostAuth != nil {
		for _, probe := range collection.PostAuth.Probes {
			// An admin-ish path serving 200 without auth is a failure.
			observe(probe.StatusCode != 200 || probe.Protected)
		}
		for _, open := range collection.PostAuth.OpenPaths {
			report.Findings = append(report.Findings, newFinding("deep-security",
				"unprotected-authed-path",
				fmt.Sprintf("Typically-authenticated path %s served without login", open),
				model.SeverityMedium, "auth", open+" returned 200 unauthenticated", 0.6))
		}
	}

	if total == 0 {
		return 100
	}
	return 100 * float64(passedCount) / float64(total)
}

// scoreClaims is the verification rate over extracted security claims,
// mutating the claims in the copy report with verdicts.
func (d *DeepSecurityAnalyzer) scoreClaims(collection *model.CollectionResult, copyReport *model.CopyReport, report *model.DeepSecurityReport) float64 {
	if copyReport == nil || len(copyReport.SecurityClaims) == 0 {
		return 100
	}

	verified := 0
	for i := range copyReport.SecurityClaims {
		claim := &copyReport.SecurityClaims[i]
		claim.Verified, claim.Evidence = verifyClaim(claim.Claim, collection)
		if claim.Verified {
			verified++
		}
	}
	return 100 * float64(verified) / float64(len(copyReport.SecurityClaims))
}

// verifyClaim checks a claim against observable evidence. Claims about
// certifications cannot be verified externally and stay unverified with an
// explanatory evidence string.
func verifyClaim(claim string, collection *model.CollectionResult) (bool, string) {
	lower := strings.ToLower(claim)
	https := collection.Security != nil && collection.Security.UsesHTTPS
	hsts := collection.Crawl != nil && collection.Crawl.Headers.Get("Strict-Transport-Security") != ""

	switch {
	case strings.Contains(lower, "encrypt"):
		if https && hsts {
			return true, "TLS with HSTS observed"
		}
		if https {
			return true, "TLS observed (no HSTS)"
		}
		return false, "no TLS observed"
	case strings.Contains(lower, "soc 2"), strings.Contains(lower, "soc2"),
		strings.Contains(lower, "iso 27001"), strings.Contains(lower, "hipaa"):
		return false, "certification claims are not externally verifiable"
	case strings.Contains(lower, "gdpr"):
		// Presence of a cookie banner or privacy policy link is weak but
		// observable evidence.
		if collection.Crawl != nil && strings.Contains(strings.ToLower(collection.Crawl.HTML), "privacy") {
			return true, "privacy policy reference found"
		}
		return false, "no privacy policy reference found"
	default:
		return false, "no verification heuristic for this claim"
	}
}
