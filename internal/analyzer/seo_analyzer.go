package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// SEOAnalyzer runs structural on-page checks against the rendered landing
// page plus the well-known files gathered during the crawl.
type SEOAnalyzer struct {
	logger logging.Logger
}

func NewSEOAnalyzer(logger logging.Logger) *SEOAnalyzer {
	return &SEOAnalyzer{logger: logger.With(logging.Field{Key: "component", Value: "seo-analyzer"})}
}

// Analyze never fails.
func (s *SEOAnalyzer) Analyze(ctx context.Context, crawl *model.CrawlResult) *model.SEOReport {
	report := &model.SEOReport{Score: 50}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("seo analysis panicked, returning partial result",
				logging.Field{Key: "panic", Value: r})
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(crawl.HTML))
	if err != nil {
		s.logger.Warn("seo analysis skipped, unparseable markup",
			logging.Field{Key: "error", Value: err.Error()})
		return report
	}

	check := func(name string, ok bool, evidence string) {
		if ok {
			report.Checks = append(report.Checks, passed(name, evidence))
		} else {
			report.Checks = append(report.Checks, failed(name, evidence))
		}
	}

	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	check("title", report.Title != "" && len(report.Title) <= 70,
		fmt.Sprintf("%d characters", len(report.Title)))

	report.MetaDesc, _ = doc.Find(`meta[name="description"]`).Attr("content")
	check("meta-description", report.MetaDesc != "" && len(report.MetaDesc) <= 160,
		fmt.Sprintf("%d characters", len(report.MetaDesc)))

	h1 := doc.Find("h1").Length()
	check("single-h1", h1 == 1, fmt.Sprintf("%d h1 elements", h1))

	total, missing := 0, 0
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		total++
		if alt, ok := img.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			missing++
		}
	})
	report.MissingAltTags = missing
	if total > 0 {
		check("img-alt", missing == 0, fmt.Sprintf("%d of %d images lack alt text", missing, total))
	}

	_, hasCanonical := doc.Find(`link[rel="canonical"]`).Attr("href")
	check("canonical", hasCanonical, "link rel=canonical")

	ogTitle := doc.Find(`meta[property="og:title"]`).Length() > 0
	check("open-graph", ogTitle, "og:title meta tag")

	check("robots-txt", crawl.RobotsTxt != "", "/robots.txt")
	check("sitemap", crawl.SitemapXML != "", "/sitemap.xml")

	if robots, _ := doc.Find(`meta[name="robots"]`).Attr("content"); strings.Contains(strings.ToLower(robots), "noindex") {
		check("indexable", false, "meta robots noindex on landing page")
	}

	report.Score = seoScore(report.Checks)
	s.logger.Info("seo analysis finished", logging.Field{Key: "score", Value: report.Score})
	return report
}

// seoScore is the pass rate over executed checks.
func seoScore(checks []model.CheckResult) int {
	total, ok := 0, 0
	for _, c := range checks {
		if !c.Tested {
			continue
		}
		total++
		if c.Passed {
			ok++
		}
	}
	if total == 0 {
		return 50
	}
	return 100 * ok / total
}
