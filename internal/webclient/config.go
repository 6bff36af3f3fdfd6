package webclient

import "time"

// Backend names accepted by the factory.
const (
	BackendNetHTTP  = "nethttp"
	BackendChromeDP = "chromedp"
)

// Request option keys understood by backends.
const (
	// OptionNoRedirect ("true") makes the nethttp backend return the raw
	// 3xx response instead of following it. Callers that need a bounded
	// redirect chain follow hops themselves.
	OptionNoRedirect = "no_redirect"

	// OptionRender ("true") asks for a rendered DOM. Only the chromedp
	// backend honors it; the nethttp backend ignores it.
	OptionRender = "render"
)

// Config selects and parameterizes the WebClient backend.
type Config struct {
	// Backend is "nethttp" (default) or "chromedp".
	Backend string

	// Timeout applies per request on the nethttp backend.
	Timeout time.Duration

	// IdleAfter is how long the chromedp backend waits for network idle
	// before capturing the DOM.
	IdleAfter time.Duration

	// UserAgent overrides the default scanner user agent when non-empty.
	UserAgent string
}

// DefaultConfig returns development defaults: plain HTTP with a 30s timeout.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendNetHTTP,
		Timeout:   30 * time.Second,
		IdleAfter: 2 * time.Second,
	}
}
