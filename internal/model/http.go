package model

import (
	"net/http"
	"time"
)

// Request is the backend-agnostic request shape handed to a WebClient.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte

	// Options carries backend-specific hints, e.g. "render": "true" for the
	// chromedp backend.
	Options map[string]string
}

// Response is the backend-agnostic response shape returned by a WebClient.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	Cookies    []*http.Cookie
	FetchedAt  time.Time
}
