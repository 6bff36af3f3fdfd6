// Package crawler implements the unauthenticated collection stage: fetch the
// target with bounded redirect following, discover a handful of same-origin
// pages, and pull the well-known sub-resources the later analyzers need.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// Config controls crawl breadth.
type Config struct {
	// MaxRedirects bounds the redirect chain; exceeding it fails the crawl.
	MaxRedirects int

	// MaxPages bounds how many discovered same-origin pages are fetched in
	// addition to the landing page.
	MaxPages int
}

// DefaultConfig returns the standard crawl bounds.
func DefaultConfig() Config {
	return Config{
		MaxRedirects: 10,
		MaxPages:     5,
	}
}

// Crawler fetches and structurally collects target content. It performs no
// analysis of its own.
type Crawler struct {
	cfg    Config
	wc     interfaces.WebClient
	logger logging.Logger

	urlRe *regexp.Regexp
}

// New constructs a Crawler with an injected web client.
func New(cfg Config, wc interfaces.WebClient, logger logging.Logger) *Crawler {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultConfig().MaxRedirects
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	return &Crawler{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "crawler"}),
		urlRe:  regexp.MustCompile(`https?://[^\s"'<>]+`),
	}
}

// Crawl performs the discovery pass. Failure to obtain any response from the
// target is stage-fatal and returned as an error; everything after the
// landing page degrades silently.
func (c *Crawler) Crawl(ctx context.Context, targetURL string) (*model.CrawlResult, error) {
	landing, chain, cookies, err := c.followRedirects(ctx, targetURL)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", targetURL, err)
	}
	if landing.StatusCode >= 500 {
		return nil, fmt.Errorf("crawl %s: target returned %d", targetURL, landing.StatusCode)
	}

	result := &model.CrawlResult{
		TargetURL:     targetURL,
		FinalURL:      landing.Request.URL,
		RedirectChain: chain,
		StatusCode:    landing.StatusCode,
		Headers:       landing.Headers,
		HTML:          string(landing.Body),
		Cookies:       cookies,
		FetchedAt:     landing.FetchedAt,
	}

	c.collectPages(ctx, result)
	c.collectWellKnown(ctx, result)

	c.logger.Info("crawl finished",
		logging.Field{Key: "url", Value: targetURL},
		logging.Field{Key: "status", Value: result.StatusCode},
		logging.Field{Key: "pages", Value: len(result.Pages)})

	return result, nil
}

// followRedirects walks the redirect chain hop by hop so the chain and every
// Set-Cookie along the way stay observable. Fails closed past MaxRedirects.
func (c *Crawler) followRedirects(ctx context.Context, targetURL string) (*model.Response, []string, []*http.Cookie, error) {
	var (
		chain   []string
		cookies []*http.Cookie
		current = targetURL
	)

	for hop := 0; hop <= c.cfg.MaxRedirects; hop++ {
		resp, err := c.wc.Do(ctx, &model.Request{
			Method:  http.MethodGet,
			URL:     current,
			Options: map[string]string{"no_redirect": "true"},
		})
		if err != nil {
			return nil, nil, nil, err
		}
		cookies = append(cookies, resp.Cookies...)

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			return resp, chain, cookies, nil
		}

		loc := resp.Headers.Get("Location")
		if loc == "" {
			return resp, chain, cookies, nil
		}
		base, err := utils.NewURLTools(current)
		if err != nil {
			return nil, nil, nil, err
		}
		next, err := base.ResolveFullUrlString(loc)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve redirect %q: %w", loc, err)
		}
		chain = append(chain, next)
		current = next
	}

	return nil, nil, nil, fmt.Errorf("redirect limit (%d) exceeded", c.cfg.MaxRedirects)
}

// collectPages discovers same-origin links on the landing page and fetches up
// to MaxPages of them. Individual fetch failures degrade to skipped pages.
func (c *Crawler) collectPages(ctx context.Context, result *model.CrawlResult) {
	root, err := utils.NewURLTools(result.FinalURL)
	if err != nil {
		return
	}

	links := c.extractLinks(result.HTML, result.FinalURL)

	seen := map[string]bool{result.FinalURL: true}
	for _, link := range links {
		if len(result.Pages) >= c.cfg.MaxPages {
			break
		}
		linkURL, err := utils.NewURLTools(link)
		if err != nil || !root.DomainIsSame(linkURL) {
			continue
		}
		canonical := linkURL.URL.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		resp, err := c.wc.Get(ctx, canonical)
		if err != nil {
			c.logger.Warn("sub-page fetch failed",
				logging.Field{Key: "url", Value: canonical},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		result.Pages = append(result.Pages, model.Page{
			URL:        canonical,
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			HTML:       string(resp.Body),
			FetchedAt:  resp.FetchedAt,
		})
	}
}

// extractLinks pulls href/src attributes and URL literals out of inline
// scripts, resolved against baseURL.
func (c *Crawler) extractLinks(htmlText, baseURL string) []string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return c.urlRe.FindAllString(htmlText, -1)
	}

	base, err := utils.NewURLTools(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			hasSrc := false
			var raw []string
			for _, attr := range node.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					raw = append(raw, attr.Val)
					hasSrc = true
				}
			}
			if node.Data == "script" && !hasSrc && node.FirstChild != nil && node.FirstChild.Type == html.TextNode {
				raw = append(raw, c.urlRe.FindAllString(node.FirstChild.Data, -1)...)
			}
			for _, r := range raw {
				resolved, err := base.ResolveFullUrlString(r)
				if err != nil {
					continue
				}
				links = append(links, resolved)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

// collectWellKnown fetches robots.txt and sitemap.xml, best effort.
func (c *Crawler) collectWellKnown(ctx context.Context, result *model.CrawlResult) {
	root, err := utils.NewURLTools(result.FinalURL)
	if err != nil {
		return
	}
	origin := root.URL.Scheme + "://" + root.URL.Host

	if resp, err := c.wc.Get(ctx, origin+"/robots.txt"); err == nil && resp.StatusCode == http.StatusOK {
		result.RobotsTxt = string(resp.Body)
	}
	if resp, err := c.wc.Get(ctx, origin+"/sitemap.xml"); err == nil && resp.StatusCode == http.StatusOK {
		result.SitemapXML = string(resp.Body)
	}
}
