// Package authflow covers the authentication-facing collection agents: the
// unauthenticated post-auth surface probe and the credentialed crawler.
package authflow

import (
	"context"
	"net/http"
	"strings"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// commonAuthedPaths are paths that typically sit behind authentication.
var commonAuthedPaths = []string{
	"/dashboard",
	"/account",
	"/admin",
	"/settings",
	"/profile",
	"/app",
	"/api/me",
	"/api/user",
}

// PostAuthDiscoverer maps the authenticated surface without credentials by
// probing common post-login paths and recording whether each redirects to a
// login flow, denies access, or serves content openly.
type PostAuthDiscoverer struct {
	wc     interfaces.WebClient
	logger logging.Logger
}

// NewPostAuthDiscoverer constructs the discoverer.
func NewPostAuthDiscoverer(wc interfaces.WebClient, logger logging.Logger) *PostAuthDiscoverer {
	return &PostAuthDiscoverer{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "postauth-discoverer"}),
	}
}

// Discover probes each well-known path once. Individual probe failures are
// skipped; the result only reflects what was observed.
func (d *PostAuthDiscoverer) Discover(ctx context.Context, baseURL string) *model.PostAuthSurface {
	surface := &model.PostAuthSurface{}

	root, err := utils.NewURLTools(baseURL)
	if err != nil {
		d.logger.Warn("invalid base url, skipping post-auth discovery",
			logging.Field{Key: "url", Value: baseURL})
		return surface
	}
	origin := root.URL.Scheme + "://" + root.URL.Host

	for _, path := range commonAuthedPaths {
		resp, err := d.wc.Do(ctx, &model.Request{
			Method:  http.MethodGet,
			URL:     origin + path,
			Options: map[string]string{"no_redirect": "true"},
		})
		if err != nil {
			d.logger.Debug("probe failed",
				logging.Field{Key: "path", Value: path},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}

		probe := model.ProbeResult{
			Path:       path,
			StatusCode: resp.StatusCode,
			RedirectTo: resp.Headers.Get("Location"),
		}
		// Protected: explicit denial, or redirect into a login flow.
		probe.Protected = resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden ||
			(resp.StatusCode >= 300 && resp.StatusCode <= 399 && looksLikeLoginRedirect(probe.RedirectTo))

		surface.Probes = append(surface.Probes, probe)
		if probe.Protected {
			surface.ProtectedPaths = append(surface.ProtectedPaths, path)
		} else if resp.StatusCode == http.StatusOK {
			surface.OpenPaths = append(surface.OpenPaths, path)
		}
	}

	d.logger.Info("post-auth surface mapped",
		logging.Field{Key: "protected", Value: len(surface.ProtectedPaths)},
		logging.Field{Key: "open", Value: len(surface.OpenPaths)})

	return surface
}

func looksLikeLoginRedirect(location string) bool {
	lower := strings.ToLower(location)
	for _, fragment := range []string{"login", "signin", "sign-in", "auth"} {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
