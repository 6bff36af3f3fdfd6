package interfaces

import (
	"context"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// WebClient abstracts page fetching so collection agents can run against
// either a plain HTTP backend or a rendering backend, and tests can supply
// doubles. Constructed explicitly and passed into each agent; never a
// package-level singleton.
type WebClient interface {
	Do(ctx context.Context, req *model.Request) (*model.Response, error)

	// Get is a convenience method for simple GET requests.
	Get(ctx context.Context, url string) (*model.Response, error)

	Close() error
}
