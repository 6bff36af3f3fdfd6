// Package extractor turns raw crawl output into structured SecurityData:
// inferred technology stack, authentication architecture, forms and cookie
// attributes. The extraction is heuristic; everything it cannot infer is
// simply absent from the result.
package extractor

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// Extractor parses crawl output. It performs no network I/O.
type Extractor struct {
	logger logging.Logger
}

// New constructs an Extractor.
func New(logger logging.Logger) *Extractor {
	return &Extractor{
		logger: logger.With(logging.Field{Key: "component", Value: "extractor"}),
	}
}

// Extract produces SecurityData from a crawl. A parse failure yields a
// partially filled result rather than an error; downstream analyzers treat
// the missing pieces as untested.
func (e *Extractor) Extract(crawl *model.CrawlResult) *model.SecurityData {
	data := &model.SecurityData{
		UsesHTTPS: strings.HasPrefix(crawl.FinalURL, "https://"),
	}

	data.TechStack = append(data.TechStack, techFromHeaders(crawl)...)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(crawl.HTML))
	if err != nil {
		e.logger.Warn("parsing landing page failed, extraction degraded",
			logging.Field{Key: "url", Value: crawl.FinalURL},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		data.PageTitle = strings.TrimSpace(doc.Find("title").First().Text())
		data.TechStack = append(data.TechStack, techFromDocument(doc)...)
		data.Forms = extractForms(doc, crawl.FinalURL)
		data.AuthFlow = extractAuthFlow(doc, data.Forms, crawl.FinalURL)
	}

	for _, page := range crawl.Pages {
		pageDoc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			continue
		}
		forms := extractForms(pageDoc, page.URL)
		data.Forms = append(data.Forms, forms...)
		if !data.AuthFlow.HasLogin {
			sub := extractAuthFlow(pageDoc, forms, page.URL)
			if sub.HasLogin {
				data.AuthFlow = sub
			}
		}
	}

	for _, cookie := range crawl.Cookies {
		data.Cookies = append(data.Cookies, model.CookieInfo{
			Name:     cookie.Name,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
			SameSite: sameSiteString(cookie.SameSite),
		})
	}

	data.TechStack = dedupeTech(data.TechStack)

	e.logger.Info("extraction finished",
		logging.Field{Key: "url", Value: crawl.FinalURL},
		logging.Field{Key: "technologies", Value: len(data.TechStack)},
		logging.Field{Key: "forms", Value: len(data.Forms)},
		logging.Field{Key: "has_login", Value: data.AuthFlow.HasLogin})

	return data
}

func techFromHeaders(crawl *model.CrawlResult) []model.Technology {
	var tech []model.Technology

	if server := crawl.Headers.Get("Server"); server != "" {
		tech = append(tech, model.Technology{Name: server, Category: "server", DetectedBy: "headers"})
	}
	if powered := crawl.Headers.Get("X-Powered-By"); powered != "" {
		tech = append(tech, model.Technology{Name: powered, Category: "framework", DetectedBy: "headers"})
	}

	hostingHeaders := map[string]string{
		"X-Vercel-Id":         "Vercel",
		"Fly-Request-Id":      "Fly.io",
		"CF-Ray":              "Cloudflare",
		"X-Amz-Cf-Id":         "AWS CloudFront",
		"X-Served-By":         "Fastly",
		"X-Github-Request-Id": "GitHub Pages",
	}
	for header, name := range hostingHeaders {
		if crawl.Headers.Get(header) != "" {
			tech = append(tech, model.Technology{Name: name, Category: "hosting", DetectedBy: "headers"})
		}
	}
	if strings.Contains(crawl.Headers.Get("Server"), "Netlify") {
		tech = append(tech, model.Technology{Name: "Netlify", Category: "hosting", DetectedBy: "headers"})
	}

	return tech
}

// scriptSignatures maps substrings of script URLs to the framework they
// betray.
var scriptSignatures = []struct {
	fragment string
	name     string
	category string
}{
	{"/_next/", "Next.js", "framework"},
	{"react", "React", "framework"},
	{"vue", "Vue.js", "framework"},
	{"angular", "Angular", "framework"},
	{"jquery", "jQuery", "library"},
	{"wp-content", "WordPress", "cms"},
	{"wp-includes", "WordPress", "cms"},
	{"shopify", "Shopify", "cms"},
	{"supabase", "Supabase", "backend"},
	{"firebase", "Firebase", "backend"},
	{"googletagmanager", "Google Tag Manager", "analytics"},
	{"google-analytics", "Google Analytics", "analytics"},
}

func techFromDocument(doc *goquery.Document) []model.Technology {
	var tech []model.Technology

	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok && generator != "" {
		tech = append(tech, model.Technology{Name: generator, Category: "cms", DetectedBy: "html"})
	}
	if doc.Find("#__next").Length() > 0 {
		tech = append(tech, model.Technology{Name: "Next.js", Category: "framework", DetectedBy: "html"})
	}
	if doc.Find("#root").Length() > 0 && doc.Find("[data-reactroot]").Length() > 0 {
		tech = append(tech, model.Technology{Name: "React", Category: "framework", DetectedBy: "html"})
	}

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		lower := strings.ToLower(src)
		for _, sig := range scriptSignatures {
			if strings.Contains(lower, sig.fragment) {
				tech = append(tech, model.Technology{Name: sig.name, Category: sig.category, DetectedBy: "scripts"})
			}
		}
	})

	return tech
}

// csrfFieldNames are hidden-input names that indicate a CSRF token.
var csrfFieldNames = []string{"csrf", "_token", "authenticity_token", "__requestverificationtoken", "xsrf"}

func extractForms(doc *goquery.Document, sourceURL string) []model.Form {
	var forms []model.Form

	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		form := model.Form{
			Action:    s.AttrOr("action", ""),
			Method:    strings.ToUpper(s.AttrOr("method", "GET")),
			SourceURL: sourceURL,
		}

		s.Find("input, textarea, select").Each(func(_ int, input *goquery.Selection) {
			name := input.AttrOr("name", "")
			inputType := strings.ToLower(input.AttrOr("type", "text"))
			if name == "" && inputType != "password" {
				return
			}
			form.Fields = append(form.Fields, model.FormField{Name: name, Type: inputType})
			if inputType == "password" {
				form.HasPassword = true
			}
			if inputType == "hidden" {
				lower := strings.ToLower(name)
				for _, csrfName := range csrfFieldNames {
					if strings.Contains(lower, csrfName) {
						form.HasCSRFToken = true
					}
				}
			}
		})

		forms = append(forms, form)
	})

	return forms
}

// oauthProviders maps URL fragments to provider names.
var oauthProviders = map[string]string{
	"accounts.google.com":    "Google",
	"github.com/login/oauth": "GitHub",
	"facebook.com/dialog":    "Facebook",
	"appleid.apple.com":      "Apple",
	"login.microsoftonline":  "Microsoft",
	"slack.com/oauth":        "Slack",
	"discord.com/oauth":      "Discord",
}

func extractAuthFlow(doc *goquery.Document, forms []model.Form, pageURL string) model.AuthFlow {
	flow := model.AuthFlow{}

	for i := range forms {
		if forms[i].HasPassword {
			flow.HasLogin = true
			flow.LoginURL = pageURL
			flow.LoginForm = &forms[i]
			if strings.Contains(strings.ToLower(forms[i].Action), "regist") ||
				strings.Contains(strings.ToLower(forms[i].Action), "signup") {
				flow.HasSignup = true
				flow.SignupURL = pageURL
			}
			break
		}
	}

	seenEndpoints := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)

		for fragment, name := range oauthProviders {
			if strings.Contains(lower, fragment) {
				flow.OAuthProviders = append(flow.OAuthProviders, model.OAuthProvider{Name: name, URL: href})
			}
		}

		switch {
		case containsAny(lower, "/login", "/signin", "/sign-in"):
			flow.HasLogin = true
			if flow.LoginURL == "" {
				flow.LoginURL = href
			}
		case containsAny(lower, "/signup", "/sign-up", "/register"):
			flow.HasSignup = true
			if flow.SignupURL == "" {
				flow.SignupURL = href
			}
		}

		if containsAny(lower, "/auth", "/oauth", "/login", "/signin", "/signup", "/register", "/logout") {
			if !seenEndpoints[href] {
				seenEndpoints[href] = true
				flow.AuthEndpoints = append(flow.AuthEndpoints, href)
			}
		}
	})

	return flow
}

func containsAny(s string, fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func sameSiteString(ss http.SameSite) string {
	switch ss {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	}
	return ""
}

func dedupeTech(tech []model.Technology) []model.Technology {
	seen := map[string]bool{}
	out := tech[:0]
	for _, t := range tech {
		key := t.Name + "|" + t.Category
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
