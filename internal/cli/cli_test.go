package cli_test

import (
	"testing"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/cli"
)

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()

	args, err := cli.ParseArgs(nil)
	if err != nil {
		t.Fatalf("parsing empty args: %v", err)
	}

	if args.ListenAddr != ":8080" {
		t.Errorf("listen = %q, want :8080", args.ListenAddr)
	}
	if args.StoreBackend != "memory" {
		t.Errorf("store = %q, want memory", args.StoreBackend)
	}
	if args.QueuePath != "" {
		t.Errorf("queue = %q, want inline mode by default", args.QueuePath)
	}
	if args.WebBackend != "nethttp" {
		t.Errorf("web backend = %q, want nethttp", args.WebBackend)
	}
	if args.AIBaseURL != "" {
		t.Errorf("ai url = %q, want empty (rule-based only)", args.AIBaseURL)
	}
	if args.AIPrimaryModel != "gpt-4o" {
		t.Errorf("ai model = %q", args.AIPrimaryModel)
	}
}

func TestParseArgs_Overrides(t *testing.T) {
	t.Parallel()

	args, err := cli.ParseArgs([]string{
		"-listen", ":9090",
		"-store", "sqlite",
		"-store-path", "/tmp/kv.db",
		"-durable-path", "/tmp/durable.db",
		"-queue", "/tmp/queue.db",
		"-web-backend", "chromedp",
		"-ai-url", "https://api.example.com",
		"-ai-model", "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}

	if args.ListenAddr != ":9090" {
		t.Errorf("listen = %q", args.ListenAddr)
	}
	if args.StoreBackend != "sqlite" || args.StorePath != "/tmp/kv.db" {
		t.Errorf("store = %q path = %q", args.StoreBackend, args.StorePath)
	}
	if args.DurablePath != "/tmp/durable.db" {
		t.Errorf("durable path = %q", args.DurablePath)
	}
	if args.QueuePath != "/tmp/queue.db" {
		t.Errorf("queue = %q", args.QueuePath)
	}
	if args.WebBackend != "chromedp" {
		t.Errorf("web backend = %q", args.WebBackend)
	}
	if args.AIBaseURL != "https://api.example.com" || args.AIPrimaryModel != "gpt-4o-mini" {
		t.Errorf("ai = %q %q", args.AIBaseURL, args.AIPrimaryModel)
	}
}

func TestParseArgs_UnknownFlagFails(t *testing.T) {
	t.Parallel()

	if _, err := cli.ParseArgs([]string{"-bogus"}); err == nil {
		t.Error("unknown flag should be rejected")
	}
}
