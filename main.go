// Command vibecode-audit starts the scan API server. With -queue it
// enqueues scans for workers and also runs an in-process worker; without it
// scans run inline in the submitting request.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/app"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/cli"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parsing arguments: %v", err)
	}

	logger := logging.NewStdoutLogger("Server")

	cfg := app.DefaultConfig()
	cfg.ServerCfg.ListenAddr = args.ListenAddr
	cfg.ServerCfg.Logger = logger
	cfg.StoreCfg.Backend = args.StoreBackend
	cfg.StoreCfg.Path = args.StorePath
	cfg.DurableStorePath = args.DurablePath
	cfg.QueueCfg.Path = args.QueuePath
	cfg.WebClientCfg.Backend = args.WebBackend
	cfg.PipelineCfg.AI.BaseURL = args.AIBaseURL
	cfg.PipelineCfg.AI.PrimaryModel = args.AIPrimaryModel
	cfg.PipelineCfg.AI.APIKey = os.Getenv("AI_API_KEY")
	cfg.CredentialSecret = os.Getenv("CREDENTIAL_SECRET")

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("building application: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if application.Queue != nil {
		go func() {
			if err := application.RunWorker(ctx); err != nil {
				logger.Error("worker stopped", logging.Field{Key: "error", Value: err.Error()})
			}
		}()
	}

	httpServer := application.Server.HTTPServer()
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	logger.Info("listening", logging.Field{Key: "addr", Value: args.ListenAddr})
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Info("server stopped", logging.Field{Key: "reason", Value: err.Error()})
	}
}
