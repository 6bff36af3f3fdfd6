package analyzer_test

import (
	"context"
	"testing"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/analyzer"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/testutil"
)

func newSEOAnalyzer() *analyzer.SEOAnalyzer {
	return analyzer.NewSEOAnalyzer(&testutil.DummyLogger{})
}

const wellFormedPage = `<html><head>
	<title>Acme Widgets</title>
	<meta name="description" content="Widgets for every occasion.">
	<link rel="canonical" href="https://target.example/">
	<meta property="og:title" content="Acme Widgets">
</head><body>
	<h1>Acme Widgets</h1>
	<img src="/hero.png" alt="A widget">
</body></html>`

func TestSEOAnalyzer_WellFormedPageScoresFull(t *testing.T) {
	t.Parallel()

	crawl := httpsCrawl(wellFormedPage)
	crawl.RobotsTxt = "User-agent: *\nAllow: /"
	crawl.SitemapXML = `<?xml version="1.0"?><urlset></urlset>`

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	if report.Score != 100 {
		t.Errorf("score = %d, want 100; checks: %+v", report.Score, report.Checks)
	}
	if report.Title != "Acme Widgets" {
		t.Errorf("title = %q", report.Title)
	}
	if report.MetaDesc != "Widgets for every occasion." {
		t.Errorf("meta description = %q", report.MetaDesc)
	}
}

func TestSEOAnalyzer_MissingAltTextFails(t *testing.T) {
	t.Parallel()

	crawl := httpsCrawl(`<html><head><title>T</title></head><body>
		<h1>T</h1><img src="/a.png"><img src="/b.png" alt="B">
	</body></html>`)

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	if report.MissingAltTags != 1 {
		t.Errorf("missing alt tags = %d, want 1", report.MissingAltTags)
	}
	check, ok := findCheck(t, report.Checks, "img-alt")
	if !ok {
		t.Fatal("img-alt check missing")
	}
	if check.Passed {
		t.Error("img-alt should fail with an uncaptioned image")
	}
}

func TestSEOAnalyzer_NoImagesSkipsAltCheck(t *testing.T) {
	t.Parallel()

	crawl := httpsCrawl(`<html><head><title>T</title></head><body><h1>T</h1></body></html>`)

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	if _, ok := findCheck(t, report.Checks, "img-alt"); ok {
		t.Error("img-alt check should not run without images")
	}
}

func TestSEOAnalyzer_MultipleH1Fails(t *testing.T) {
	t.Parallel()

	crawl := httpsCrawl(`<html><head><title>T</title></head><body><h1>A</h1><h1>B</h1></body></html>`)

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	check, ok := findCheck(t, report.Checks, "single-h1")
	if !ok {
		t.Fatal("single-h1 check missing")
	}
	if check.Passed {
		t.Error("two h1 elements should fail the check")
	}
}

func TestSEOAnalyzer_OverlongTitleFails(t *testing.T) {
	t.Parallel()

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	crawl := httpsCrawl(`<html><head><title>` + string(long) + `</title></head><body><h1>T</h1></body></html>`)

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	check, ok := findCheck(t, report.Checks, "title")
	if !ok {
		t.Fatal("title check missing")
	}
	if check.Passed {
		t.Error("80-character title should fail the length check")
	}
}

func TestSEOAnalyzer_NoindexIsFlagged(t *testing.T) {
	t.Parallel()

	crawl := httpsCrawl(`<html><head><title>T</title><meta name="robots" content="noindex,nofollow"></head><body><h1>T</h1></body></html>`)

	report := newSEOAnalyzer().Analyze(context.Background(), crawl)

	check, ok := findCheck(t, report.Checks, "indexable")
	if !ok {
		t.Fatal("indexable check missing for a noindex page")
	}
	if check.Passed {
		t.Error("noindex landing page must fail the indexable check")
	}
}

func TestSEOAnalyzer_MissingWellKnownFilesFail(t *testing.T) {
	t.Parallel()

	report := newSEOAnalyzer().Analyze(context.Background(), httpsCrawl(wellFormedPage))

	for _, name := range []string{"robots-txt", "sitemap"} {
		check, ok := findCheck(t, report.Checks, name)
		if !ok {
			t.Fatalf("%s check missing", name)
		}
		if check.Passed {
			t.Errorf("%s should fail when the file was not fetched", name)
		}
	}
}
