package authflow_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/authflow"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/testutil"
)

const baseURL = "https://target.example"

func loginSecurity() *model.SecurityData {
	return &model.SecurityData{
		AuthFlow: model.AuthFlow{
			HasLogin: true,
			LoginForm: &model.Form{
				Action:      "/login",
				Method:      "POST",
				HasPassword: true,
				SourceURL:   baseURL,
				Fields: []model.FormField{
					{Name: "email", Type: "email"},
					{Name: "password", Type: "password"},
				},
			},
		},
	}
}

// throttlingClient rejects the first three login POSTs with 403, then
// starts answering 429. Everything else gets a plain 200.
type throttlingClient struct {
	mu    sync.Mutex
	posts int
}

func (c *throttlingClient) Do(_ context.Context, req *model.Request) (*model.Response, error) {
	if req.Method == http.MethodPost && strings.Contains(req.URL, "/login") {
		c.mu.Lock()
		c.posts++
		n := c.posts
		c.mu.Unlock()
		if n > 3 {
			return &model.Response{Request: req, StatusCode: http.StatusTooManyRequests, Body: []byte("slow down"), Headers: http.Header{}}, nil
		}
		return &model.Response{Request: req, StatusCode: http.StatusForbidden, Body: []byte("invalid credentials"), Headers: http.Header{}}, nil
	}
	return &model.Response{Request: req, StatusCode: http.StatusOK, Body: []byte("landing"), Headers: http.Header{}}, nil
}

func (c *throttlingClient) Get(ctx context.Context, url string) (*model.Response, error) {
	return c.Do(ctx, &model.Request{Method: http.MethodGet, URL: url})
}

func (c *throttlingClient) Close() error { return nil }

// ─── PostAuthDiscoverer ────────────────────────────────────────────────

func TestDiscover_ClassifiesProbedPaths(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{Match: "/dashboard", StatusCode: 302, Headers: http.Header{"Location": []string{"/login?next=/dashboard"}}},
			{Match: "/api/me", StatusCode: 401, Body: `{"error":"unauthorized"}`},
			{Match: "/admin", StatusCode: 200, Body: "<html>admin panel</html>"},
		},
	}
	d := authflow.NewPostAuthDiscoverer(wc, &testutil.DummyLogger{})

	surface := d.Discover(context.Background(), baseURL)

	protected := map[string]bool{}
	for _, p := range surface.ProtectedPaths {
		protected[p] = true
	}
	if !protected["/dashboard"] {
		t.Errorf("login redirect should mark /dashboard protected, got %v", surface.ProtectedPaths)
	}
	if !protected["/api/me"] {
		t.Errorf("401 should mark /api/me protected, got %v", surface.ProtectedPaths)
	}
	open := map[string]bool{}
	for _, p := range surface.OpenPaths {
		open[p] = true
	}
	if !open["/admin"] {
		t.Errorf("200 response should mark /admin open, got %v", surface.OpenPaths)
	}
	if protected["/admin"] {
		t.Error("/admin must not be listed as protected")
	}
}

func TestDiscover_ProbeFailuresAreSkipped(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		FailURLs: map[string]bool{baseURL + "/dashboard": true},
	}
	d := authflow.NewPostAuthDiscoverer(wc, &testutil.DummyLogger{})

	surface := d.Discover(context.Background(), baseURL)

	for _, probe := range surface.Probes {
		if probe.Path == "/dashboard" {
			t.Error("failed probe must not appear in results")
		}
	}
	if len(surface.Probes) == 0 {
		t.Fatal("remaining probes should still be recorded")
	}
}

func TestDiscover_InvalidBaseURLDegrades(t *testing.T) {
	t.Parallel()

	d := authflow.NewPostAuthDiscoverer(&testutil.DummyWebClient{}, &testutil.DummyLogger{})
	surface := d.Discover(context.Background(), "://not-a-url")

	if surface == nil {
		t.Fatal("expected empty surface, got nil")
	}
	if len(surface.Probes) != 0 {
		t.Errorf("expected no probes, got %d", len(surface.Probes))
	}
}

// ─── AuthenticatedCrawler ──────────────────────────────────────────────

func TestRun_EmptyCredentialsAreANoOp(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})

	result := a.Run(context.Background(), baseURL, nil, loginSecurity(), nil)

	if result.Attempted {
		t.Error("nil credentials must not attempt login")
	}
	if len(wc.Requests) != 0 {
		t.Errorf("no requests expected, got %d", len(wc.Requests))
	}
}

func TestRun_NoLoginFormSkipsWithEvidence(t *testing.T) {
	t.Parallel()

	a := authflow.NewAuthenticatedCrawler(&testutil.DummyWebClient{}, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}

	result := a.Run(context.Background(), baseURL, creds, &model.SecurityData{}, nil)

	if result.Attempted {
		t.Error("missing login form must not attempt login")
	}
	if !strings.Contains(result.Evidence, "no login form") {
		t.Errorf("evidence should explain the skip, got %q", result.Evidence)
	}
}

func TestRun_SuccessfulLoginCrawlsProtectedPaths(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{
				Match:      "/login",
				StatusCode: 302,
				Headers:    http.Header{"Location": []string{"/dashboard"}},
				Cookies:    []*http.Cookie{{Name: "session", Value: "abc123", Secure: true, HttpOnly: true}},
			},
		},
	}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}
	surface := &model.PostAuthSurface{ProtectedPaths: []string{"/dashboard", "/settings"}}

	result := a.Run(context.Background(), baseURL, creds, loginSecurity(), surface)

	if !result.Attempted {
		t.Fatal("expected login attempt")
	}
	if !result.LoginSucceeded {
		t.Fatalf("session cookie plus redirect away should count as success, evidence: %q", result.Evidence)
	}
	if len(result.SessionCookies) != 1 {
		t.Fatalf("expected 1 session cookie, got %d", len(result.SessionCookies))
	}
	if c := result.SessionCookies[0]; c.Name != "session" || !c.Secure || !c.HTTPOnly {
		t.Errorf("cookie attributes not carried over: %+v", c)
	}
	if len(result.AuthedPages) != 2 {
		t.Fatalf("expected 2 authed pages, got %d", len(result.AuthedPages))
	}
	if result.AuthedPages[0].URL != baseURL+"/dashboard" {
		t.Errorf("authed page url = %q", result.AuthedPages[0].URL)
	}
}

func TestRun_LoginFormValuesCarryCredentials(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}

	a.Run(context.Background(), baseURL, creds, loginSecurity(), nil)

	var loginBody string
	for _, req := range wc.Requests {
		if req.Method == http.MethodPost && strings.Contains(req.URL, "/login") {
			loginBody = string(req.Body)
			break
		}
	}
	if loginBody == "" {
		t.Fatal("no login POST recorded")
	}
	if !strings.Contains(loginBody, "password=hunter2") {
		t.Errorf("password field not filled, body = %q", loginBody)
	}
	if !strings.Contains(loginBody, "email=user%40example.com") {
		t.Errorf("email field not filled, body = %q", loginBody)
	}
}

func TestRun_RejectedLoginReportsEvidence(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{Match: "/login", StatusCode: 401, Body: "invalid credentials"},
		},
	}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})
	creds := &model.Credentials{Username: "user", Password: "wrong"}

	result := a.Run(context.Background(), baseURL, creds, loginSecurity(), nil)

	if result.LoginSucceeded {
		t.Error("401 must not count as success")
	}
	if !strings.Contains(result.Evidence, "401") {
		t.Errorf("evidence should carry the status, got %q", result.Evidence)
	}
	// The probe still runs after a rejected login.
	if !result.RateLimiting.Tested {
		t.Error("rate-limit probe should run regardless of login outcome")
	}
}

// ─── Rate-limit probe ──────────────────────────────────────────────────

func TestRateLimitProbe_ThrottledTargetIsProtected(t *testing.T) {
	t.Parallel()

	a := authflow.NewAuthenticatedCrawler(&throttlingClient{}, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}

	result := a.Run(context.Background(), baseURL, creds, loginSecurity(), nil)

	rl := result.RateLimiting
	if !rl.Tested {
		t.Fatal("probe should have run")
	}
	if !rl.Protected {
		t.Fatalf("429 responses should mark the target protected, evidence: %q", rl.Evidence)
	}
	// The credentialed login consumes the first POST, so the throttle
	// trips on the probe's third attempt.
	if rl.Threshold != 3 {
		t.Errorf("threshold = %d, want 3", rl.Threshold)
	}
	if !strings.Contains(rl.Evidence, "throttled after 3") {
		t.Errorf("evidence = %q", rl.Evidence)
	}
}

func TestRateLimitProbe_OpenTargetIsUnprotected(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{Match: "/login", StatusCode: 200, Body: "invalid credentials"},
		},
	}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}

	result := a.Run(context.Background(), baseURL, creds, loginSecurity(), nil)

	rl := result.RateLimiting
	if !rl.Tested {
		t.Fatal("probe should have run")
	}
	if rl.Protected {
		t.Error("unthrottled target must not be marked protected")
	}
	if !strings.Contains(rl.Evidence, "6 consecutive failed logins") {
		t.Errorf("evidence = %q", rl.Evidence)
	}
}

func TestRateLimitProbe_LockoutMessageCountsAsProtection(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{Match: "/login", StatusCode: 200, Body: "Too many attempts. Account locked for 15 minutes."},
		},
	}
	a := authflow.NewAuthenticatedCrawler(wc, &testutil.DummyLogger{})
	creds := &model.Credentials{Email: "user@example.com", Password: "hunter2"}

	result := a.Run(context.Background(), baseURL, creds, loginSecurity(), nil)

	if !result.RateLimiting.Protected {
		t.Errorf("lockout body should count as protection, evidence: %q", result.RateLimiting.Evidence)
	}
}
