// Package app wires the modules into a runnable application. Entrypoints
// construct an Application and decide which surfaces (HTTP server, queue
// worker) to run.
package app

import (
	"context"
	"fmt"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/events"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/pipeline"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/queue"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/secrets"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/server"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/webclient"
)

// Application holds the shared services. Construct with New, release with
// Close.
type Application struct {
	Config *Config
	Logger logging.Logger

	WebClient interfaces.WebClient
	Bus       *events.Bus
	Jobs      *store.JobStateStore
	Reports   *store.ReportStore
	Queue     *queue.Queue // nil in inline mode
	Orch      *pipeline.Orchestrator
	Server    *server.Server

	box     *secrets.Box
	cache   interfaces.KVStore
	durable interfaces.KVStore
}

// New builds every module from cfg. The returned Application owns the
// stores, the queue and the web client.
func New(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("App")
	}

	a := &Application{Config: cfg, Logger: logger}

	var err error
	a.WebClient, err = webclient.New(cfg.WebClientCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building web client: %w", err)
	}

	a.cache, err = store.New(cfg.StoreCfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building kv store: %w", err)
	}
	if cfg.DurableStorePath != "" && cfg.DurableStorePath != cfg.StoreCfg.Path {
		a.durable, err = store.New(store.Config{
			Backend: "sqlite",
			Path:    cfg.DurableStorePath,
			TTL:     cfg.StoreCfg.TTL,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("building durable store: %w", err)
		}
	}

	a.Bus = events.NewBus(logger)
	a.Jobs = store.NewJobStateStore(a.cache, cfg.StoreCfg, logger)
	a.Reports = store.NewReportStore(a.cache, a.durable, cfg.StoreCfg, logger)

	if cfg.CredentialSecret != "" {
		a.box, err = secrets.NewBox(cfg.CredentialSecret)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("deriving credential key: %w", err)
		}
	}

	if cfg.QueueCfg.Path != "" {
		a.Queue, err = queue.Open(cfg.QueueCfg, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening scan queue: %w", err)
		}
	}

	a.Orch = pipeline.New(cfg.PipelineCfg, a.WebClient, a.Jobs, a.Reports, a.Bus, logger)
	a.Server = server.New(cfg.ServerCfg, a.Jobs, a.Reports, a.Bus, a.Queue, a.Orch, a.box)

	return a, nil
}

// NewWorker builds a queue worker bound to this application's orchestrator.
// Returns an error in inline mode.
func (a *Application) NewWorker() (*queue.Worker, error) {
	if a.Queue == nil {
		return nil, fmt.Errorf("no queue configured")
	}
	return queue.NewWorker(a.Queue, a.Orch.TaskHandler(a.box), a.Logger), nil
}

// RunWorker runs the queue worker until ctx is cancelled.
func (a *Application) RunWorker(ctx context.Context) error {
	w, err := a.NewWorker()
	if err != nil {
		return err
	}
	w.Run(ctx)
	return nil
}

// Close releases owned resources. Safe to call on a partially built
// Application.
func (a *Application) Close() {
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	if a.durable != nil {
		_ = a.durable.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.WebClient != nil {
		_ = a.WebClient.Close()
	}
}
