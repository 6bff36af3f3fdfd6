package model

import (
	"net/http"
	"time"
)

// Page is one fetched document within a crawl.
type Page struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"-"`
	HTML       string      `json:"-"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// CrawlResult is the raw output of the unauthenticated crawl: the landing
// page plus same-origin pages discovered from it.
type CrawlResult struct {
	TargetURL     string         `json:"target_url"`
	FinalURL      string         `json:"final_url"`
	RedirectChain []string       `json:"redirect_chain,omitempty"`
	StatusCode    int            `json:"status_code"`
	Headers       http.Header    `json:"-"`
	HTML          string         `json:"-"`
	Cookies       []*http.Cookie `json:"-"`
	Pages         []Page         `json:"pages,omitempty"`
	RobotsTxt     string         `json:"-"`
	SitemapXML    string         `json:"-"`
	FetchedAt     time.Time      `json:"fetched_at"`
}

// FormField is one input within a detected form.
type FormField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Form is a structurally parsed HTML form.
type Form struct {
	Action       string      `json:"action"`
	Method       string      `json:"method"`
	Fields       []FormField `json:"fields,omitempty"`
	HasPassword  bool        `json:"has_password"`
	HasCSRFToken bool        `json:"has_csrf_token"`
	SourceURL    string      `json:"source_url,omitempty"`
}

// OAuthProvider is a third-party sign-in option detected on the target.
type OAuthProvider struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// AuthFlow describes the authentication architecture inferred from markup.
type AuthFlow struct {
	HasLogin       bool            `json:"has_login"`
	HasSignup      bool            `json:"has_signup"`
	LoginURL       string          `json:"login_url,omitempty"`
	SignupURL      string          `json:"signup_url,omitempty"`
	LoginForm      *Form           `json:"login_form,omitempty"`
	OAuthProviders []OAuthProvider `json:"oauth_providers,omitempty"`
	AuthEndpoints  []string        `json:"auth_endpoints,omitempty"`
}

// Technology is one inferred stack component.
type Technology struct {
	Name       string `json:"name"`
	Category   string `json:"category"` // e.g. "framework", "cms", "hosting", "analytics"
	Version    string `json:"version,omitempty"`
	DetectedBy string `json:"detected_by,omitempty"` // "headers" | "html" | "scripts" | "cookies"
}

// CookieInfo records security-relevant attributes of an observed cookie.
type CookieInfo struct {
	Name     string `json:"name"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"http_only"`
	SameSite string `json:"same_site,omitempty"`
}

// SecurityData is the structured extraction over a CrawlResult. Produced once
// per job and read-only afterward.
type SecurityData struct {
	TechStack []Technology `json:"tech_stack,omitempty"`
	AuthFlow  AuthFlow     `json:"auth_flow"`
	Forms     []Form       `json:"forms,omitempty"`
	Cookies   []CookieInfo `json:"cookies,omitempty"`
	UsesHTTPS bool         `json:"uses_https"`
	PageTitle string       `json:"page_title,omitempty"`
}

// ProbeResult records the response to one well-known-path probe.
type ProbeResult struct {
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Protected  bool   `json:"protected"`
}

// PostAuthSurface maps the authenticated surface discovered by probing
// common post-login paths without credentials.
type PostAuthSurface struct {
	Probes         []ProbeResult `json:"probes,omitempty"`
	ProtectedPaths []string      `json:"protected_paths,omitempty"`
	OpenPaths      []string      `json:"open_paths,omitempty"`
}

// RateLimitResult is the outcome of the failed-login rate-limit probe.
type RateLimitResult struct {
	Tested    bool   `json:"tested"`
	Protected bool   `json:"protected"`
	Threshold int    `json:"threshold,omitempty"` // attempt count at which limiting kicked in
	Evidence  string `json:"evidence,omitempty"`
}

// AuthTestResult is the output of the credentialed crawl, when exercised.
type AuthTestResult struct {
	Attempted      bool            `json:"attempted"`
	LoginSucceeded bool            `json:"login_succeeded"`
	Evidence       string          `json:"evidence,omitempty"`
	SessionCookies []CookieInfo    `json:"session_cookies,omitempty"`
	AuthedPages    []Page          `json:"-"`
	RateLimiting   RateLimitResult `json:"rate_limiting"`
}

// CollectionResult bundles everything the collection stages produced. It is
// immutable once handed to the analysis stages.
type CollectionResult struct {
	Crawl    *CrawlResult     `json:"crawl"`
	Security *SecurityData    `json:"security"`
	PostAuth *PostAuthSurface `json:"post_auth,omitempty"`
	AuthTest *AuthTestResult  `json:"auth_test,omitempty"`
}
