package analyzer_test

import (
	"net/http"
	"testing"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// httpsCrawl is a well-configured HTTPS landing page used as the baseline
// across analyzer tests.
func httpsCrawl(html string) *model.CrawlResult {
	return &model.CrawlResult{
		TargetURL:  "https://target.example",
		FinalURL:   "https://target.example",
		StatusCode: 200,
		HTML:       html,
		Headers: http.Header{
			"Content-Security-Policy":   []string{"default-src 'self'"},
			"X-Frame-Options":           []string{"DENY"},
			"X-Content-Type-Options":    []string{"nosniff"},
			"Strict-Transport-Security": []string{"max-age=63072000"},
			"Referrer-Policy":           []string{"no-referrer"},
		},
	}
}

func hasFinding(t *testing.T, findings []model.Finding, findingType string) bool {
	t.Helper()
	for _, f := range findings {
		if f.Type == findingType {
			return true
		}
	}
	return false
}

func findCheck(t *testing.T, checks []model.CheckResult, name string) (model.CheckResult, bool) {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return model.CheckResult{}, false
}
