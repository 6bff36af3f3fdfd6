// Package cli parses command-line arguments for the entrypoints.
package cli

import (
	"flag"
	"io"
)

// Args are the parsed command-line options shared by the server and worker
// binaries.
type Args struct {
	ListenAddr string

	StoreBackend string
	StorePath    string
	DurablePath  string

	QueuePath string

	WebBackend string

	AIBaseURL      string
	AIPrimaryModel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns Args. Deterministic and free
// of os.Args so tests can pass arbitrary slices.
func ParseArgs(args []string) (*Args, error) {
	fs := flag.NewFlagSet("vibecode-audit", flag.ContinueOnError)
	var (
		listen       = fs.String("listen", ":8080", "HTTP listen address")
		storeBackend = fs.String("store", "memory", "KV backend: memory|sqlite")
		storePath    = fs.String("store-path", "", "sqlite database path for the KV backend")
		durablePath  = fs.String("durable-path", "", "optional sqlite path for the durable report tier")
		queuePath    = fs.String("queue", "", "sqlite path for the scan queue (empty = inline mode)")
		webBackend   = fs.String("web-backend", "nethttp", "fetch backend: nethttp|chromedp")
		aiBaseURL    = fs.String("ai-url", "", "OpenAI-compatible endpoint for scoring (empty = rule-based only)")
		aiModel      = fs.String("ai-model", "gpt-4o", "primary scoring model")
	)

	// Keep Parse quiet in tests.
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Args{
		ListenAddr:     *listen,
		StoreBackend:   *storeBackend,
		StorePath:      *storePath,
		DurablePath:    *durablePath,
		QueuePath:      *queuePath,
		WebBackend:     *webBackend,
		AIBaseURL:      *aiBaseURL,
		AIPrimaryModel: *aiModel,
		RawArgs:        args,
	}, nil
}
