package app

import (
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/pipeline"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/queue"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/server"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/webclient"
)

// Config aggregates the runtime configuration of every module. Entrypoints
// fill it from flags and environment, nothing in here reads either directly.
type Config struct {
	ServerCfg server.Config

	// StoreCfg selects the cache-tier KV backend for jobs and reports.
	StoreCfg store.Config

	// DurableStorePath enables a second, sqlite-backed report tier when
	// non-empty and the cache tier is not already that same database.
	DurableStorePath string

	// QueueCfg configures the scan queue. An empty Path selects inline
	// mode: scans run synchronously in the submitting request.
	QueueCfg queue.Config

	WebClientCfg webclient.Config

	PipelineCfg pipeline.Config

	// CredentialSecret derives the AES key protecting queued credentials.
	// Empty disables credentialed scans in queued mode.
	CredentialSecret string
}

// DefaultConfig returns development defaults: in-memory storage, inline
// execution, plain HTTP fetching.
func DefaultConfig() *Config {
	return &Config{
		ServerCfg:    server.DefaultConfig(),
		StoreCfg:     store.DefaultConfig(),
		QueueCfg:     queue.DefaultConfig(),
		WebClientCfg: webclient.DefaultConfig(),
		PipelineCfg:  pipeline.DefaultConfig(),
	}
}
