package authflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// rateLimitAttempts is how many failed logins the rate-limit probe issues.
const rateLimitAttempts = 6

// AuthenticatedCrawler exercises the login flow with supplied credentials,
// re-crawls the post-auth surface with the obtained session, and runs the
// failed-login rate-limit probe. It never fails the pipeline: any error
// degrades to Attempted=false or LoginSucceeded=false with evidence.
type AuthenticatedCrawler struct {
	wc     interfaces.WebClient
	logger logging.Logger
}

// NewAuthenticatedCrawler constructs the crawler with an injected client.
func NewAuthenticatedCrawler(wc interfaces.WebClient, logger logging.Logger) *AuthenticatedCrawler {
	return &AuthenticatedCrawler{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "auth-crawler"}),
	}
}

// Run performs the credentialed pass. security supplies the detected login
// form; surface supplies the paths worth revisiting with a session.
func (a *AuthenticatedCrawler) Run(ctx context.Context, baseURL string, creds *model.Credentials, security *model.SecurityData, surface *model.PostAuthSurface) *model.AuthTestResult {
	result := &model.AuthTestResult{}

	if creds.Empty() {
		return result
	}
	if security == nil || security.AuthFlow.LoginForm == nil {
		result.Evidence = "no login form detected; credentialed testing skipped"
		return result
	}
	result.Attempted = true

	loginURL, err := a.resolveLoginAction(baseURL, security)
	if err != nil {
		result.Evidence = fmt.Sprintf("could not resolve login action: %v", err)
		return result
	}

	// Baseline view of the landing page while logged out, for the
	// similarity check after login.
	var baseline string
	if resp, err := a.wc.Get(ctx, baseURL); err == nil {
		baseline = string(resp.Body)
	}

	sessionCookies, loginResp, err := a.submitLogin(ctx, loginURL, security.AuthFlow.LoginForm, creds)
	if err != nil {
		result.Evidence = fmt.Sprintf("login request failed: %v", err)
		a.runRateLimitProbe(ctx, loginURL, security.AuthFlow.LoginForm, result)
		return result
	}

	result.LoginSucceeded, result.Evidence = a.detectLoginSuccess(ctx, baseURL, baseline, loginResp, sessionCookies)

	for _, cookie := range sessionCookies {
		result.SessionCookies = append(result.SessionCookies, model.CookieInfo{
			Name:     cookie.Name,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
		})
	}

	if result.LoginSucceeded && surface != nil {
		result.AuthedPages = a.crawlWithSession(ctx, baseURL, surface.ProtectedPaths, sessionCookies)
	}

	a.runRateLimitProbe(ctx, loginURL, security.AuthFlow.LoginForm, result)

	a.logger.Info("credentialed crawl finished",
		logging.Field{Key: "login_succeeded", Value: result.LoginSucceeded},
		logging.Field{Key: "authed_pages", Value: len(result.AuthedPages)},
		logging.Field{Key: "rate_limited", Value: result.RateLimiting.Protected})

	return result
}

func (a *AuthenticatedCrawler) resolveLoginAction(baseURL string, security *model.SecurityData) (string, error) {
	form := security.AuthFlow.LoginForm
	source := form.SourceURL
	if source == "" {
		source = baseURL
	}
	base, err := utils.NewURLTools(source)
	if err != nil {
		return "", err
	}
	action := form.Action
	if action == "" {
		return source, nil
	}
	return base.ResolveFullUrlString(action)
}

// submitLogin POSTs the form with the supplied credentials filled into the
// password field and the most likely identifier field.
func (a *AuthenticatedCrawler) submitLogin(ctx context.Context, loginURL string, form *model.Form, creds *model.Credentials) ([]*http.Cookie, *model.Response, error) {
	values := buildLoginValues(form, creds.Username, creds.Email, creds.Password)

	resp, err := a.wc.Do(ctx, &model.Request{
		Method:  http.MethodPost,
		URL:     loginURL,
		Headers: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
		Body:    []byte(values.Encode()),
		Options: map[string]string{"no_redirect": "true"},
	})
	if err != nil {
		return nil, nil, err
	}
	return resp.Cookies, resp, nil
}

// buildLoginValues maps credentials onto the form's field names. Unknown
// extra fields are sent empty, mirroring what a browser would do.
func buildLoginValues(form *model.Form, username, email, password string) url.Values {
	values := url.Values{}
	identifier := username
	if identifier == "" {
		identifier = email
	}

	for _, field := range form.Fields {
		lower := strings.ToLower(field.Name)
		switch {
		case field.Type == "password":
			values.Set(field.Name, password)
		case field.Type == "email" || strings.Contains(lower, "email"):
			if email != "" {
				values.Set(field.Name, email)
			} else {
				values.Set(field.Name, identifier)
			}
		case strings.Contains(lower, "user") || strings.Contains(lower, "login") || strings.Contains(lower, "name"):
			values.Set(field.Name, identifier)
		case field.Type == "hidden":
			// Hidden fields (incl. CSRF tokens) would need the live form
			// value; sent empty here.
			values.Set(field.Name, "")
		}
	}
	return values
}

// detectLoginSuccess combines three signals: a session cookie was set, the
// login response redirected away from the login flow, and the landing page
// changed materially when revisited with the session.
func (a *AuthenticatedCrawler) detectLoginSuccess(ctx context.Context, baseURL, baseline string, loginResp *model.Response, cookies []*http.Cookie) (bool, string) {
	gotSessionCookie := false
	for _, cookie := range cookies {
		lower := strings.ToLower(cookie.Name)
		if strings.Contains(lower, "session") || strings.Contains(lower, "token") || strings.Contains(lower, "auth") {
			gotSessionCookie = true
			break
		}
	}

	redirectedAway := loginResp.StatusCode >= 300 && loginResp.StatusCode <= 399 &&
		!looksLikeLoginRedirect(loginResp.Headers.Get("Location"))

	// Revisit the landing page with the session and compare against the
	// logged-out baseline.
	bodyChanged := false
	if baseline != "" && len(cookies) > 0 {
		if resp, err := a.get(ctx, baseURL, cookies); err == nil {
			similarity := bodySimilarity(baseline, string(resp.Body))
			bodyChanged = similarity < 0.9
		}
	}

	switch {
	case gotSessionCookie && (redirectedAway || bodyChanged):
		return true, "session cookie set and authenticated view differs from logged-out view"
	case redirectedAway && bodyChanged:
		return true, "login redirected away from login flow and page content changed"
	case loginResp.StatusCode == http.StatusOK && bodyChanged:
		return true, "page content changed materially after login"
	case loginResp.StatusCode == http.StatusUnauthorized || loginResp.StatusCode == http.StatusForbidden:
		return false, fmt.Sprintf("login rejected with status %d", loginResp.StatusCode)
	default:
		return false, fmt.Sprintf("no reliable success signal (status %d)", loginResp.StatusCode)
	}
}

// bodySimilarity returns the fraction of unchanged text between two
// documents, 0 (entirely different) to 1 (identical).
func bodySimilarity(before, after string) float64 {
	if before == "" && after == "" {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var same, total int
	for _, d := range diffs {
		total += len(d.Text)
		if d.Type == diffmatchpatch.DiffEqual {
			same += len(d.Text)
		}
	}
	if total == 0 {
		return 1
	}
	return float64(same) / float64(total)
}

func (a *AuthenticatedCrawler) crawlWithSession(ctx context.Context, baseURL string, paths []string, cookies []*http.Cookie) []model.Page {
	root, err := utils.NewURLTools(baseURL)
	if err != nil {
		return nil
	}
	origin := root.URL.Scheme + "://" + root.URL.Host

	var pages []model.Page
	for _, path := range paths {
		resp, err := a.get(ctx, origin+path, cookies)
		if err != nil {
			continue
		}
		pages = append(pages, model.Page{
			URL:        origin + path,
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			HTML:       string(resp.Body),
			FetchedAt:  resp.FetchedAt,
		})
	}
	return pages
}

// get issues a GET carrying the given cookies.
func (a *AuthenticatedCrawler) get(ctx context.Context, target string, cookies []*http.Cookie) (*model.Response, error) {
	headers := http.Header{}
	var pairs []string
	for _, cookie := range cookies {
		pairs = append(pairs, cookie.Name+"="+cookie.Value)
	}
	if len(pairs) > 0 {
		headers.Set("Cookie", strings.Join(pairs, "; "))
	}
	return a.wc.Do(ctx, &model.Request{Method: http.MethodGet, URL: target, Headers: headers})
}

// runRateLimitProbe issues rateLimitAttempts failed logins with a throwaway
// identity and records whether the target throttled them. A 429, an explicit
// lockout message, or a CAPTCHA challenge counts as protection.
func (a *AuthenticatedCrawler) runRateLimitProbe(ctx context.Context, loginURL string, form *model.Form, result *model.AuthTestResult) {
	result.RateLimiting.Tested = true

	for attempt := 1; attempt <= rateLimitAttempts; attempt++ {
		values := buildLoginValues(form, "ratelimit-probe", "ratelimit-probe@example.com", fmt.Sprintf("invalid-%d", attempt))

		resp, err := a.wc.Do(ctx, &model.Request{
			Method:  http.MethodPost,
			URL:     loginURL,
			Headers: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
			Body:    []byte(values.Encode()),
			Options: map[string]string{"no_redirect": "true"},
		})
		if err != nil {
			result.RateLimiting.Evidence = fmt.Sprintf("probe aborted on attempt %d: %v", attempt, err)
			return
		}

		body := strings.ToLower(string(resp.Body))
		limited := resp.StatusCode == http.StatusTooManyRequests ||
			strings.Contains(body, "too many attempts") ||
			strings.Contains(body, "account locked") ||
			strings.Contains(body, "captcha")
		if limited {
			result.RateLimiting.Protected = true
			result.RateLimiting.Threshold = attempt
			result.RateLimiting.Evidence = fmt.Sprintf("throttled after %d failed attempts (status %d)", attempt, resp.StatusCode)
			return
		}
	}

	result.RateLimiting.Protected = false
	result.RateLimiting.Evidence = fmt.Sprintf("%d consecutive failed logins accepted without throttling", rateLimitAttempts)
}
